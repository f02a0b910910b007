package indexer

import (
	"context"
	"io"

	"github.com/tokenized/ckb-examples/pkg/ckb"
	"github.com/tokenized/ckb-examples/pkg/rpcnode"

	"github.com/pkg/errors"
)

// Node is the part of the RPC node used to search cells.
type Node interface {
	GetCells(ctx context.Context, searchKey rpcnode.SearchKey, order string, limit uint32,
		afterCursor []byte) (*rpcnode.LiveCells, error)
}

// RPCProvider provides cells from the indexer built into the node.
type RPCProvider struct {
	node Node
}

// NewRPCProvider returns a provider querying node.
func NewRPCProvider(node Node) *RPCProvider {
	return &RPCProvider{node: node}
}

// Collector returns a collector that pages through get_cells results as it is read.
func (p *RPCProvider) Collector(query QueryOptions) (CellCollector, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	return &rpcCollector{
		node:      p.node,
		query:     query,
		searchKey: searchKey(query),
	}, nil
}

func searchKey(query QueryOptions) rpcnode.SearchKey {
	result := rpcnode.SearchKey{
		ScriptType: rpcnode.ScriptTypeLock,
		WithData:   true,
	}
	filter := &rpcnode.SearchKeyFilter{}

	if query.Lock != nil {
		result.Script = query.Lock.Copy()
		if query.Type != nil {
			t := query.Type.Copy()
			filter.Script = &t
		}
	} else {
		result.Script = query.Type.Copy()
		result.ScriptType = rpcnode.ScriptTypeType
	}

	if query.EmptyType {
		filter.ScriptLenRange = &rpcnode.Range{0, 1}
	}

	if query.Data != nil {
		size := uint64(len(query.Data))
		filter.OutputDataLenRange = &rpcnode.Range{size, size + 1}
	}

	if query.FromBlock != 0 || query.ToBlock != 0 {
		to := query.ToBlock
		if to == 0 {
			to = ^uint64(0)
		}
		filter.BlockRange = &rpcnode.Range{query.FromBlock, to}
	}

	if *filter != (rpcnode.SearchKeyFilter{}) {
		result.Filter = filter
	}

	return result
}

type rpcCollector struct {
	node      Node
	query     QueryOptions
	searchKey rpcnode.SearchKey

	buffer []ckb.Cell
	cursor []byte
	done   bool
}

// Next returns the next matching cell. The node matches args by prefix so exact matching is
// applied here.
func (c *rpcCollector) Next(ctx context.Context) (*ckb.Cell, error) {
	for {
		if len(c.buffer) > 0 {
			cell := c.buffer[0]
			c.buffer = c.buffer[1:]
			if !c.query.Match(cell) {
				continue
			}
			return &cell, nil
		}

		if c.done {
			return nil, io.EOF
		}

		if err := c.fetch(ctx); err != nil {
			return nil, err
		}
	}
}

func (c *rpcCollector) fetch(ctx context.Context) error {
	order := c.query.Order
	if len(order) == 0 {
		order = OrderAsc
	}

	pageSize := c.query.PageSize
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}

	page, err := c.node.GetCells(ctx, c.searchKey, order, pageSize, c.cursor)
	if err != nil {
		return errors.Wrap(err, "get cells")
	}

	for _, object := range page.Objects {
		c.buffer = append(c.buffer, object.Cell())
	}

	if len(page.Objects) < int(pageSize) || len(page.LastCursor) == 0 {
		c.done = true
	}
	c.cursor = page.LastCursor

	return nil
}
