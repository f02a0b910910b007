package ckb

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

// Transaction is the wire form of a CKB transaction, as submitted to send_transaction.
type Transaction struct {
	Version     uint32
	CellDeps    []CellDep
	HeaderDeps  []Hash
	Inputs      []CellInput
	Outputs     []CellOutput
	OutputsData [][]byte
	Witnesses   [][]byte
}

// SerializeRaw returns the molecule encoding of the transaction without witnesses. The
// transaction hash commits to these bytes only.
func (tx *Transaction) SerializeRaw() ([]byte, error) {
	cellDeps := make([][]byte, len(tx.CellDeps))
	for i, dep := range tx.CellDeps {
		b, err := dep.Serialize()
		if err != nil {
			return nil, errors.Wrapf(err, "cell dep %d", i)
		}
		cellDeps[i] = b
	}

	headerDeps := make([][]byte, len(tx.HeaderDeps))
	for i := range tx.HeaderDeps {
		headerDeps[i] = tx.HeaderDeps[i][:]
	}

	inputs := make([][]byte, len(tx.Inputs))
	for i, input := range tx.Inputs {
		inputs[i] = input.Serialize()
	}

	outputs := make([][]byte, len(tx.Outputs))
	for i, output := range tx.Outputs {
		b, err := output.Serialize()
		if err != nil {
			return nil, errors.Wrapf(err, "output %d", i)
		}
		outputs[i] = b
	}

	outputsData := make([][]byte, len(tx.OutputsData))
	for i, data := range tx.OutputsData {
		outputsData[i] = packBytes(data)
	}

	return packTable([][]byte{
		packUint32(tx.Version),
		packFixVec(cellDeps),
		packFixVec(headerDeps),
		packFixVec(inputs),
		packDynVec(outputs),
		packDynVec(outputsData),
	}), nil
}

// Serialize returns the molecule encoding of the full transaction including witnesses.
func (tx *Transaction) Serialize() ([]byte, error) {
	raw, err := tx.SerializeRaw()
	if err != nil {
		return nil, err
	}

	witnesses := make([][]byte, len(tx.Witnesses))
	for i, witness := range tx.Witnesses {
		witnesses[i] = packBytes(witness)
	}

	return packTable([][]byte{raw, packDynVec(witnesses)}), nil
}

// Hash returns the transaction hash.
func (tx *Transaction) Hash() (Hash, error) {
	raw, err := tx.SerializeRaw()
	if err != nil {
		return Hash{}, err
	}
	return Blake256(raw), nil
}

// SizeInBlock returns the number of bytes the transaction occupies in a block, which is what
// the fee rate applies to. It includes the 4 byte offset in the block's transaction vector.
func (tx *Transaction) SizeInBlock() (int, error) {
	b, err := tx.Serialize()
	if err != nil {
		return 0, err
	}
	return len(b) + numberSize, nil
}

// CalculateFee returns the fee for size bytes at feeRate shannons per 1000 bytes, rounded up.
func CalculateFee(size int, feeRate uint64) uint64 {
	fee := uint64(size) * feeRate / 1000
	if fee*1000 < uint64(size)*feeRate {
		fee++
	}
	return fee
}

type jsonTransaction struct {
	Version     hexutil.Uint    `json:"version"`
	CellDeps    []CellDep       `json:"cell_deps"`
	HeaderDeps  []Hash          `json:"header_deps"`
	Inputs      []CellInput     `json:"inputs"`
	Outputs     []CellOutput    `json:"outputs"`
	OutputsData []hexutil.Bytes `json:"outputs_data"`
	Witnesses   []hexutil.Bytes `json:"witnesses"`
	Hash        *Hash           `json:"hash,omitempty"`
}

func toHexBytes(list [][]byte) []hexutil.Bytes {
	result := make([]hexutil.Bytes, len(list))
	for i, b := range list {
		if b == nil {
			b = []byte{}
		}
		result[i] = b
	}
	return result
}

func fromHexBytes(list []hexutil.Bytes) [][]byte {
	result := make([][]byte, len(list))
	for i, b := range list {
		result[i] = []byte(b)
	}
	return result
}

// MarshalJSON converts to the node's json form. Empty lists are written as [] rather than
// null since the node rejects null lists.
func (tx Transaction) MarshalJSON() ([]byte, error) {
	jt := jsonTransaction{
		Version:     hexutil.Uint(tx.Version),
		CellDeps:    tx.CellDeps,
		HeaderDeps:  tx.HeaderDeps,
		Inputs:      tx.Inputs,
		Outputs:     tx.Outputs,
		OutputsData: toHexBytes(tx.OutputsData),
		Witnesses:   toHexBytes(tx.Witnesses),
	}
	if jt.CellDeps == nil {
		jt.CellDeps = []CellDep{}
	}
	if jt.HeaderDeps == nil {
		jt.HeaderDeps = []Hash{}
	}
	if jt.Inputs == nil {
		jt.Inputs = []CellInput{}
	}
	if jt.Outputs == nil {
		jt.Outputs = []CellOutput{}
	}
	return json.Marshal(jt)
}

// UnmarshalJSON converts from the node's json form. The optional "hash" field is ignored.
func (tx *Transaction) UnmarshalJSON(data []byte) error {
	var jt jsonTransaction
	if err := json.Unmarshal(data, &jt); err != nil {
		return err
	}
	tx.Version = uint32(jt.Version)
	tx.CellDeps = jt.CellDeps
	tx.HeaderDeps = jt.HeaderDeps
	tx.Inputs = jt.Inputs
	tx.Outputs = jt.Outputs
	tx.OutputsData = fromHexBytes(jt.OutputsData)
	tx.Witnesses = fromHexBytes(jt.Witnesses)
	return nil
}
