package indexer

import (
	"context"
	"io"
	"sync"

	"github.com/tokenized/ckb-examples/pkg/ckb"

	"github.com/pkg/errors"
)

// MemoryProvider provides cells from an in memory set. Collectors read a snapshot taken when
// they are created.
type MemoryProvider struct {
	cells []ckb.Cell
	lock  sync.Mutex
}

// NewMemoryProvider returns a provider holding the cells. Every cell needs an out point.
func NewMemoryProvider(cells ...ckb.Cell) *MemoryProvider {
	result := &MemoryProvider{}
	for _, cell := range cells {
		result.cells = append(result.cells, cell.Copy())
	}
	return result
}

// Add adds a live cell.
func (p *MemoryProvider) Add(cell ckb.Cell) error {
	if cell.OutPoint == nil {
		return errors.New("Cell has no out point")
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	p.cells = append(p.cells, cell.Copy())
	return nil
}

// Commit applies a transaction, removing its inputs and adding its outputs at blockNumber.
func (p *MemoryProvider) Commit(tx *ckb.Transaction, blockNumber uint64) error {
	hash, err := tx.Hash()
	if err != nil {
		return errors.Wrap(err, "hash")
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	for _, input := range tx.Inputs {
		found := false
		for i, cell := range p.cells {
			if cell.OutPoint.Equal(input.PreviousOutput) {
				p.cells = append(p.cells[:i], p.cells[i+1:]...)
				found = true
				break
			}
		}
		if !found {
			return errors.Errorf("Input not live : %s", input.PreviousOutput)
		}
	}

	for i, output := range tx.Outputs {
		outPoint := ckb.OutPoint{TxHash: hash, Index: uint32(i)}
		cell := ckb.Cell{
			Output:      output.Copy(),
			OutPoint:    &outPoint,
			BlockNumber: blockNumber,
		}
		if i < len(tx.OutputsData) {
			cell.Data = append([]byte{}, tx.OutputsData[i]...)
		}
		p.cells = append(p.cells, cell)
	}

	return nil
}

// Collector returns a collector over the matching cells.
func (p *MemoryProvider) Collector(query QueryOptions) (CellCollector, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	var matches []ckb.Cell
	for _, cell := range p.cells {
		if query.Match(cell) {
			matches = append(matches, cell.Copy())
		}
	}

	if query.Order == OrderDesc {
		for i, j := 0, len(matches)-1; i < j; i, j = i+1, j-1 {
			matches[i], matches[j] = matches[j], matches[i]
		}
	}

	return &sliceCollector{cells: matches}, nil
}

type sliceCollector struct {
	cells []ckb.Cell
}

func (c *sliceCollector) Next(ctx context.Context) (*ckb.Cell, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(c.cells) == 0 {
		return nil, io.EOF
	}

	cell := c.cells[0]
	c.cells = c.cells[1:]
	return &cell, nil
}
