package ckb

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// OneCKB is the number of shannons in one CKB.
const OneCKB uint64 = 100000000

// OutPoint references an output of a transaction.
type OutPoint struct {
	TxHash Hash
	Index  uint32
}

// Serialize returns the molecule struct encoding (36 bytes).
func (o OutPoint) Serialize() []byte {
	result := make([]byte, 0, HashSize+4)
	result = append(result, o.TxHash[:]...)
	return append(result, packUint32(o.Index)...)
}

// Equal returns true when both out points reference the same output.
func (o OutPoint) Equal(other OutPoint) bool {
	return o.TxHash == other.TxHash && o.Index == other.Index
}

func (o OutPoint) String() string {
	return fmt.Sprintf("%s:%d", o.TxHash, o.Index)
}

type jsonOutPoint struct {
	TxHash Hash        `json:"tx_hash"`
	Index  hexutil.Uint `json:"index"`
}

func (o OutPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonOutPoint{TxHash: o.TxHash, Index: hexutil.Uint(o.Index)})
}

func (o *OutPoint) UnmarshalJSON(data []byte) error {
	var jo jsonOutPoint
	if err := json.Unmarshal(data, &jo); err != nil {
		return err
	}
	if uint64(jo.Index) > 0xffffffff {
		return fmt.Errorf("Out point index overflows uint32 : %d", jo.Index)
	}
	o.TxHash = jo.TxHash
	o.Index = uint32(jo.Index)
	return nil
}

// DepType specifies whether a cell dep is the code itself or a group of code cells.
type DepType string

const (
	DepTypeCode     DepType = "code"
	DepTypeDepGroup DepType = "dep_group"
)

func (t DepType) byte() (byte, error) {
	switch t {
	case DepTypeCode:
		return 0x00, nil
	case DepTypeDepGroup:
		return 0x01, nil
	}
	return 0, fmt.Errorf("Unknown dep type : %s", string(t))
}

// CellDep references on-chain code needed to run a script.
type CellDep struct {
	OutPoint OutPoint `json:"out_point"`
	DepType  DepType  `json:"dep_type"`
}

// Serialize returns the molecule struct encoding (37 bytes).
func (d CellDep) Serialize() ([]byte, error) {
	depType, err := d.DepType.byte()
	if err != nil {
		return nil, err
	}
	return append(d.OutPoint.Serialize(), depType), nil
}

// CellInput references a cell consumed by a transaction.
type CellInput struct {
	Since          uint64
	PreviousOutput OutPoint
}

// Serialize returns the molecule struct encoding (44 bytes).
func (i CellInput) Serialize() []byte {
	return append(packUint64(i.Since), i.PreviousOutput.Serialize()...)
}

type jsonCellInput struct {
	Since          hexutil.Uint64 `json:"since"`
	PreviousOutput OutPoint       `json:"previous_output"`
}

func (i CellInput) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonCellInput{
		Since:          hexutil.Uint64(i.Since),
		PreviousOutput: i.PreviousOutput,
	})
}

func (i *CellInput) UnmarshalJSON(data []byte) error {
	var ji jsonCellInput
	if err := json.Unmarshal(data, &ji); err != nil {
		return err
	}
	i.Since = uint64(ji.Since)
	i.PreviousOutput = ji.PreviousOutput
	return nil
}

// CellOutput is the capacity, lock and optional type of a cell.
type CellOutput struct {
	Capacity uint64
	Lock     Script
	Type     *Script
}

// Serialize returns the molecule table encoding.
func (o CellOutput) Serialize() ([]byte, error) {
	lock, err := o.Lock.Serialize()
	if err != nil {
		return nil, err
	}

	var typeScript []byte // none
	if o.Type != nil {
		typeScript, err = o.Type.Serialize()
		if err != nil {
			return nil, err
		}
	}

	return packTable([][]byte{
		packUint64(o.Capacity),
		lock,
		typeScript,
	}), nil
}

// Copy returns a deep copy of the output.
func (o CellOutput) Copy() CellOutput {
	result := CellOutput{
		Capacity: o.Capacity,
		Lock:     o.Lock.Copy(),
	}
	if o.Type != nil {
		t := o.Type.Copy()
		result.Type = &t
	}
	return result
}

type jsonCellOutput struct {
	Capacity hexutil.Uint64 `json:"capacity"`
	Lock     Script         `json:"lock"`
	Type     *Script        `json:"type"`
}

func (o CellOutput) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonCellOutput{
		Capacity: hexutil.Uint64(o.Capacity),
		Lock:     o.Lock,
		Type:     o.Type,
	})
}

func (o *CellOutput) UnmarshalJSON(data []byte) error {
	var jo jsonCellOutput
	if err := json.Unmarshal(data, &jo); err != nil {
		return err
	}
	o.Capacity = uint64(jo.Capacity)
	o.Lock = jo.Lock
	o.Type = jo.Type
	return nil
}

// Cell is a live cell, or a cell being created when OutPoint is nil.
type Cell struct {
	Output      CellOutput
	Data        []byte
	OutPoint    *OutPoint
	BlockNumber uint64
}

// OccupiedCapacity returns the minimum capacity in shannons the cell must hold: one CKB per
// byte of capacity field, scripts and data.
func (c Cell) OccupiedCapacity() uint64 {
	size := uint64(8) + c.Output.Lock.Occupied() + uint64(len(c.Data))
	if c.Output.Type != nil {
		size += c.Output.Type.Occupied()
	}
	return size * OneCKB
}

// Copy returns a deep copy of the cell.
func (c Cell) Copy() Cell {
	result := Cell{
		Output:      c.Output.Copy(),
		BlockNumber: c.BlockNumber,
	}
	if c.Data != nil {
		result.Data = append([]byte{}, c.Data...)
	}
	if c.OutPoint != nil {
		op := *c.OutPoint
		result.OutPoint = &op
	}
	return result
}

// Header is the subset of a block header used here.
type Header struct {
	Hash       Hash
	ParentHash Hash
	Number     uint64
	Timestamp  uint64
	Epoch      uint64
}

type jsonHeader struct {
	Hash       Hash           `json:"hash"`
	ParentHash Hash           `json:"parent_hash"`
	Number     hexutil.Uint64 `json:"number"`
	Timestamp  hexutil.Uint64 `json:"timestamp"`
	Epoch      hexutil.Uint64 `json:"epoch"`
}

func (h Header) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonHeader{
		Hash:       h.Hash,
		ParentHash: h.ParentHash,
		Number:     hexutil.Uint64(h.Number),
		Timestamp:  hexutil.Uint64(h.Timestamp),
		Epoch:      hexutil.Uint64(h.Epoch),
	})
}

func (h *Header) UnmarshalJSON(data []byte) error {
	var jh jsonHeader
	if err := json.Unmarshal(data, &jh); err != nil {
		return err
	}
	h.Hash = jh.Hash
	h.ParentHash = jh.ParentHash
	h.Number = uint64(jh.Number)
	h.Timestamp = uint64(jh.Timestamp)
	h.Epoch = uint64(jh.Epoch)
	return nil
}
