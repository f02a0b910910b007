package ckb

import (
	"encoding/binary"
	"fmt"
)

// Molecule is the serialization format of every on-chain structure. Only the layouts needed
// for scripts, cells, transactions and witnesses are implemented here.
//
//   struct  : fields concatenated, fixed size.
//   fixvec  : item count (u32) followed by fixed size items.
//   dynvec  : total size (u32), one offset (u32) per item, then the items.
//   table   : same layout as dynvec, with fields instead of items.
//   option  : empty for none, otherwise the inner value.

const numberSize = 4

func packUint32(n uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, n)
	return b
}

func packUint64(n uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, n)
	return b
}

// packBytes serializes a byte fixvec.
func packBytes(b []byte) []byte {
	result := make([]byte, 0, numberSize+len(b))
	result = append(result, packUint32(uint32(len(b)))...)
	return append(result, b...)
}

func packFixVec(items [][]byte) []byte {
	result := packUint32(uint32(len(items)))
	for _, item := range items {
		result = append(result, item...)
	}
	return result
}

func packDynVec(items [][]byte) []byte {
	headerSize := numberSize * (len(items) + 1)
	total := headerSize
	for _, item := range items {
		total += len(item)
	}

	result := make([]byte, 0, total)
	result = append(result, packUint32(uint32(total))...)
	offset := headerSize
	for _, item := range items {
		result = append(result, packUint32(uint32(offset))...)
		offset += len(item)
	}
	for _, item := range items {
		result = append(result, item...)
	}
	return result
}

func packTable(fields [][]byte) []byte {
	return packDynVec(fields)
}

// unpackTable splits a table (or dynvec) into its fields.
func unpackTable(data []byte) ([][]byte, error) {
	if len(data) < numberSize {
		return nil, fmt.Errorf("Table header too short : %d", len(data))
	}

	total := int(binary.LittleEndian.Uint32(data))
	if total != len(data) {
		return nil, fmt.Errorf("Table size mismatch : header %d, actual %d", total, len(data))
	}
	if total == numberSize {
		return nil, nil // no fields
	}
	if total < numberSize*2 {
		return nil, fmt.Errorf("Table too short for first offset : %d", total)
	}

	first := int(binary.LittleEndian.Uint32(data[numberSize:]))
	if first%numberSize != 0 || first < numberSize*2 || first > total {
		return nil, fmt.Errorf("Invalid first offset : %d", first)
	}

	count := first/numberSize - 1
	offsets := make([]int, count+1)
	for i := 0; i < count; i++ {
		offsets[i] = int(binary.LittleEndian.Uint32(data[numberSize*(i+1):]))
	}
	offsets[count] = total

	fields := make([][]byte, count)
	for i := 0; i < count; i++ {
		if offsets[i] > offsets[i+1] {
			return nil, fmt.Errorf("Offsets out of order at field %d", i)
		}
		fields[i] = data[offsets[i]:offsets[i+1]]
	}
	return fields, nil
}

// unpackBytes parses a byte fixvec.
func unpackBytes(data []byte) ([]byte, error) {
	if len(data) < numberSize {
		return nil, fmt.Errorf("Bytes header too short : %d", len(data))
	}
	size := int(binary.LittleEndian.Uint32(data))
	if size != len(data)-numberSize {
		return nil, fmt.Errorf("Bytes size mismatch : header %d, actual %d", size,
			len(data)-numberSize)
	}
	result := make([]byte, size)
	copy(result, data[numberSize:])
	return result, nil
}
