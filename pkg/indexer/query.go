package indexer

import (
	"bytes"
	"context"
	"io"

	"github.com/tokenized/ckb-examples/pkg/ckb"

	"github.com/pkg/errors"
)

const (
	// DefaultPageSize is the number of cells requested per get_cells call.
	DefaultPageSize = 100

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

var (
	// ErrMissingScript is returned for a query with neither a lock nor a type script.
	ErrMissingScript = errors.New("Query requires a lock or type script")
)

// QueryOptions selects live cells. Lock and Type match exactly unless ArgsPrefix is set. A
// nil Type matches any type script unless EmptyType is set.
type QueryOptions struct {
	Lock       *ckb.Script
	Type       *ckb.Script
	EmptyType  bool
	ArgsPrefix bool

	// Data matches the cell data exactly when not nil.
	Data []byte

	// FromBlock and ToBlock bound the block the cell was created in, [FromBlock, ToBlock).
	// Zero ToBlock means no upper bound.
	FromBlock uint64
	ToBlock   uint64

	Order    string
	PageSize uint32
}

// Validate checks the query can be run.
func (q QueryOptions) Validate() error {
	if q.Lock == nil && q.Type == nil {
		return ErrMissingScript
	}
	if q.Type != nil && q.EmptyType {
		return errors.New("Query can't require both a type script and an empty type")
	}
	switch q.Order {
	case "", OrderAsc, OrderDesc:
	default:
		return errors.Errorf("Unknown order : %s", q.Order)
	}
	return nil
}

func matchScript(script ckb.Script, want ckb.Script, prefix bool) bool {
	if !prefix {
		return script.Equal(want)
	}
	return script.CodeHash == want.CodeHash && script.HashType == want.HashType &&
		bytes.HasPrefix(script.Args, want.Args)
}

// Match returns true when the cell satisfies every criteria of the query.
func (q QueryOptions) Match(cell ckb.Cell) bool {
	if q.Lock != nil && !matchScript(cell.Output.Lock, *q.Lock, q.ArgsPrefix) {
		return false
	}

	if q.EmptyType && cell.Output.Type != nil {
		return false
	}
	if q.Type != nil && (cell.Output.Type == nil ||
		!matchScript(*cell.Output.Type, *q.Type, q.ArgsPrefix)) {
		return false
	}

	if q.Data != nil && !bytes.Equal(cell.Data, q.Data) {
		return false
	}

	if cell.BlockNumber < q.FromBlock {
		return false
	}
	if q.ToBlock != 0 && cell.BlockNumber >= q.ToBlock {
		return false
	}

	return true
}

// CellCollector lazily produces the cells of one query. Next returns io.EOF after the last
// cell. A collector can't be restarted; create a new one to read again.
type CellCollector interface {
	Next(ctx context.Context) (*ckb.Cell, error)
}

// CellProvider creates collectors for queries.
type CellProvider interface {
	Collector(query QueryOptions) (CellCollector, error)
}

// Collect reads every remaining cell from the collector.
func Collect(ctx context.Context, collector CellCollector) ([]ckb.Cell, error) {
	var result []ckb.Cell
	for {
		cell, err := collector.Next(ctx)
		if err == io.EOF {
			return result, nil
		}
		if err != nil {
			return result, err
		}
		result = append(result, *cell)
	}
}

// EmptyCollector produces no cells.
type EmptyCollector struct{}

func (EmptyCollector) Next(ctx context.Context) (*ckb.Cell, error) {
	return nil, io.EOF
}
