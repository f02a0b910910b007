package txbuilder

import (
	"github.com/tokenized/ckb-examples/pkg/ckb"
	"github.com/tokenized/ckb-examples/pkg/indexer"
)

const (
	SubSystem = "TxBuilder" // For logger

	// DefaultVersion is the transaction version the skeleton produces.
	DefaultVersion = uint32(0)
)

// Skeleton is a transaction under construction. It is a value: every transform returns a new
// Skeleton and copies what it changes, so a Skeleton held elsewhere never changes.
//
// Inputs and witnesses are positionally correlated. Outputs are cells without out points.
type Skeleton struct {
	provider       indexer.CellProvider
	inputs         []ckb.Cell
	outputs        []ckb.Cell
	witnesses      [][]byte
	inputSinces    map[int]uint64
	cellDeps       []ckb.CellDep
	headerDeps     []ckb.Hash
	fixedOutputs   map[int]bool
	signingEntries []SigningEntry
}

// CreateSkeleton returns an empty skeleton collecting cells from provider.
func CreateSkeleton(provider indexer.CellProvider) Skeleton {
	return Skeleton{provider: provider}
}

// CellProvider returns the provider the skeleton collects cells from.
func (s Skeleton) CellProvider() indexer.CellProvider {
	return s.provider
}

// Inputs returns a copy of the input cells.
func (s Skeleton) Inputs() []ckb.Cell {
	return copyCells(s.inputs)
}

// Outputs returns a copy of the output cells.
func (s Skeleton) Outputs() []ckb.Cell {
	return copyCells(s.outputs)
}

// Witnesses returns a copy of the witnesses.
func (s Skeleton) Witnesses() [][]byte {
	return copyBytesList(s.witnesses)
}

// InputSince returns the since value of an input and whether one is set.
func (s Skeleton) InputSince(index int) (uint64, bool) {
	since, exists := s.inputSinces[index]
	return since, exists
}

// CellDeps returns a copy of the cell deps.
func (s Skeleton) CellDeps() []ckb.CellDep {
	return append([]ckb.CellDep(nil), s.cellDeps...)
}

// HeaderDeps returns a copy of the header deps.
func (s Skeleton) HeaderDeps() []ckb.Hash {
	return append([]ckb.Hash(nil), s.headerDeps...)
}

// IsFixedOutput returns true when transfer and fee payment must not deduct from the output.
func (s Skeleton) IsFixedOutput(index int) bool {
	return s.fixedOutputs[index]
}

// SigningEntries returns a copy of the signing entries.
func (s Skeleton) SigningEntries() []SigningEntry {
	result := make([]SigningEntry, len(s.signingEntries))
	for i, entry := range s.signingEntries {
		result[i] = entry.Copy()
	}
	return result
}

// HasInput returns true when the cell at outPoint is already an input.
func (s Skeleton) HasInput(outPoint ckb.OutPoint) bool {
	for _, input := range s.inputs {
		if input.OutPoint != nil && input.OutPoint.Equal(outPoint) {
			return true
		}
	}
	return false
}

// AddInput returns a skeleton with cell appended to the inputs and the witnesses padded to
// keep them aligned with the inputs.
func (s Skeleton) AddInput(cell ckb.Cell) Skeleton {
	result := s.clone()
	result.inputs = append(result.inputs, cell.Copy())
	for len(result.witnesses) < len(result.inputs) {
		result.witnesses = append(result.witnesses, []byte{})
	}
	return result
}

// AddOutput returns a skeleton with cell appended to the outputs.
func (s Skeleton) AddOutput(cell ckb.Cell) Skeleton {
	result := s.clone()
	output := cell.Copy()
	output.OutPoint = nil
	if output.Data == nil {
		output.Data = []byte{}
	}
	result.outputs = append(result.outputs, output)
	return result
}

// AddFixedOutput returns a skeleton with cell appended to the outputs and marked so that
// transfer and fee payment never deduct from it.
func (s Skeleton) AddFixedOutput(cell ckb.Cell) Skeleton {
	result := s.AddOutput(cell)
	result.fixedOutputs[len(result.outputs)-1] = true
	return result
}

// SetInputSince returns a skeleton with the since value of an input set.
func (s Skeleton) SetInputSince(index int, since uint64) Skeleton {
	result := s.clone()
	result.inputSinces[index] = since
	return result
}

// SetWitness returns a skeleton with the witness at index replaced. Witnesses are padded
// with empty witnesses up to index.
func (s Skeleton) SetWitness(index int, witness []byte) Skeleton {
	result := s.clone()
	for len(result.witnesses) <= index {
		result.witnesses = append(result.witnesses, []byte{})
	}
	result.witnesses[index] = append([]byte{}, witness...)
	return result
}

// AddCellDep returns a skeleton including dep. Adding a dep that is already included
// returns an equal skeleton.
func (s Skeleton) AddCellDep(dep ckb.CellDep) Skeleton {
	for _, existing := range s.cellDeps {
		if existing.OutPoint.Equal(dep.OutPoint) && existing.DepType == dep.DepType {
			return s
		}
	}

	result := s.clone()
	result.cellDeps = append(result.cellDeps, dep)
	return result
}

// AddHeaderDep returns a skeleton including the block hash as a header dep.
func (s Skeleton) AddHeaderDep(hash ckb.Hash) Skeleton {
	for _, existing := range s.headerDeps {
		if existing.Equal(hash) {
			return s
		}
	}

	result := s.clone()
	result.headerDeps = append(result.headerDeps, hash)
	return result
}

// setOutputCapacity returns a skeleton with the capacity of an output replaced.
func (s Skeleton) setOutputCapacity(index int, capacity uint64) Skeleton {
	result := s.clone()
	result.outputs[index].Output.Capacity = capacity
	return result
}

// removeEmptyOutputs returns a skeleton without the outputs that were drained to zero
// capacity. Fixed outputs are kept and their indices updated.
func (s Skeleton) removeEmptyOutputs() Skeleton {
	result := s.clone()
	result.outputs = nil
	result.fixedOutputs = make(map[int]bool)
	for i, output := range s.outputs {
		if output.Output.Capacity == 0 && !s.fixedOutputs[i] {
			continue
		}
		if s.fixedOutputs[i] {
			result.fixedOutputs[len(result.outputs)] = true
		}
		result.outputs = append(result.outputs, output)
	}
	return result
}

// withSigningEntries returns a skeleton with the signing entries replaced.
func (s Skeleton) withSigningEntries(entries []SigningEntry) Skeleton {
	result := s.clone()
	result.signingEntries = entries
	return result
}

// Transaction returns the unsigned transaction. Witnesses are padded to the input count.
func (s Skeleton) Transaction() *ckb.Transaction {
	tx := &ckb.Transaction{
		Version:    DefaultVersion,
		CellDeps:   s.CellDeps(),
		HeaderDeps: s.HeaderDeps(),
		Witnesses:  s.Witnesses(),
	}

	for i, input := range s.inputs {
		var outPoint ckb.OutPoint
		if input.OutPoint != nil {
			outPoint = *input.OutPoint
		}
		tx.Inputs = append(tx.Inputs, ckb.CellInput{
			Since:          s.inputSinces[i],
			PreviousOutput: outPoint,
		})
	}

	for _, output := range s.outputs {
		tx.Outputs = append(tx.Outputs, output.Output.Copy())
		tx.OutputsData = append(tx.OutputsData, append([]byte{}, output.Data...))
	}

	for len(tx.Witnesses) < len(tx.Inputs) {
		tx.Witnesses = append(tx.Witnesses, []byte{})
	}

	return tx
}

// clone returns a copy sharing no slices or maps with s. Cells are copied by value, their
// byte slices are never modified in place.
func (s Skeleton) clone() Skeleton {
	result := Skeleton{
		provider:       s.provider,
		inputs:         append([]ckb.Cell(nil), s.inputs...),
		outputs:        append([]ckb.Cell(nil), s.outputs...),
		witnesses:      append([][]byte(nil), s.witnesses...),
		inputSinces:    make(map[int]uint64, len(s.inputSinces)),
		cellDeps:       append([]ckb.CellDep(nil), s.cellDeps...),
		headerDeps:     append([]ckb.Hash(nil), s.headerDeps...),
		fixedOutputs:   make(map[int]bool, len(s.fixedOutputs)),
		signingEntries: append([]SigningEntry(nil), s.signingEntries...),
	}
	for k, v := range s.inputSinces {
		result.inputSinces[k] = v
	}
	for k, v := range s.fixedOutputs {
		result.fixedOutputs[k] = v
	}
	return result
}

func copyCells(cells []ckb.Cell) []ckb.Cell {
	result := make([]ckb.Cell, len(cells))
	for i, cell := range cells {
		result[i] = cell.Copy()
	}
	return result
}

func copyBytesList(list [][]byte) [][]byte {
	result := make([][]byte, len(list))
	for i, b := range list {
		result[i] = append([]byte{}, b...)
	}
	return result
}
