package tests

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/tokenized/ckb-examples/pkg/ckb"
	"github.com/tokenized/ckb-examples/pkg/rpcnode"

	"github.com/pkg/errors"
)

// Verifier checks the scripts of a transaction before the fake chain accepts it. Inputs are
// the resolved input cells in input order.
type Verifier func(tx *ckb.Transaction, inputs []ckb.Cell) error

type liveCell struct {
	cell    ckb.Cell
	txIndex uint32
	dead    bool
}

type chainTx struct {
	tx        ckb.Transaction
	status    string
	blockHash *ckb.Hash
	reason    string
}

// Chain is an in memory dev chain. It keeps live cells, a transaction pool and a block
// list, and serves them through the JSON-RPC methods the examples use. It is safe for
// concurrent use.
type Chain struct {
	verifier Verifier

	// stallBlocks is the number of following generate_block calls that return the current tip
	// hash without producing a block.
	stallBlocks int

	// indexerLag is the number of blocks the indexer trails the tip. Each get_indexer_tip call
	// lets it catch up by one block.
	indexerLag uint64

	// indexerStarted is false until the indexer has processed its first block.
	indexerStarted bool

	// rejectNext marks the next sent transaction as rejected instead of pending.
	rejectNext bool

	headers []ckb.Header
	cells   []*liveCell
	txs     map[ckb.Hash]*chainTx
	pool    []ckb.Hash
	calls   map[string]int

	lock sync.Mutex
}

// NewChain returns a chain holding only a genesis block.
func NewChain() *Chain {
	genesis := ckb.Header{Number: 0, Timestamp: 1}
	genesis.Hash = ckb.Blake256([]byte("genesis"))

	return &Chain{
		indexerStarted: true,
		headers:        []ckb.Header{genesis},
		txs:            make(map[ckb.Hash]*chainTx),
		calls:          make(map[string]int),
	}
}

// SetVerifier sets the check run by send_transaction.
func (c *Chain) SetVerifier(verifier Verifier) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.verifier = verifier
}

// StallBlocks makes the next count generate_block calls return the current tip hash.
func (c *Chain) StallBlocks(count int) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.stallBlocks = count
}

// SetIndexerLag makes the indexer trail the tip by count blocks.
func (c *Chain) SetIndexerLag(count uint64) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.indexerLag = count
}

// SetIndexerStarted controls whether get_indexer_tip returns a tip or null.
func (c *Chain) SetIndexerStarted(started bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.indexerStarted = started
}

// RejectNext marks the next sent transaction as rejected.
func (c *Chain) RejectNext() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.rejectNext = true
}

// Calls returns the number of times a JSON-RPC method was called.
func (c *Chain) Calls(method string) int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.calls[method]
}

// Tip returns the tip header.
func (c *Chain) Tip() ckb.Header {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.headers[len(c.headers)-1]
}

// Fund commits a transaction, with no inputs, creating one cell per capacity locked by lock.
// It returns the out points of the new cells.
func (c *Chain) Fund(lock ckb.Script, capacities ...uint64) []ckb.OutPoint {
	c.lock.Lock()
	defer c.lock.Unlock()

	tx := ckb.Transaction{
		// Makes each funding transaction unique.
		HeaderDeps: []ckb.Hash{ckb.Blake256(binary.LittleEndian.AppendUint64(nil,
			uint64(len(c.txs))))},
	}
	for _, capacity := range capacities {
		tx.Outputs = append(tx.Outputs, ckb.CellOutput{Capacity: capacity, Lock: lock.Copy()})
		tx.OutputsData = append(tx.OutputsData, []byte{})
	}

	hash, _ := tx.Hash()
	c.txs[hash] = &chainTx{tx: tx, status: rpcnode.StatusPending}
	c.pool = append(c.pool, hash)
	c.generateBlock()

	result := make([]ckb.OutPoint, len(capacities))
	for i := range capacities {
		result[i] = ckb.OutPoint{TxHash: hash, Index: uint32(i)}
	}
	return result
}

// Deploy marks transactions as committed in genesis, so cell deps pointing at them resolve.
// The transactions have no content.
func (c *Chain) Deploy(txHashes ...ckb.Hash) {
	c.lock.Lock()
	defer c.lock.Unlock()

	genesis := c.headers[0].Hash
	for _, hash := range txHashes {
		if _, exists := c.txs[hash]; exists {
			continue
		}
		c.txs[hash] = &chainTx{status: rpcnode.StatusCommitted, blockHash: &genesis}
	}
}

// Transaction returns a transaction known to the chain with its status.
func (c *Chain) Transaction(hash ckb.Hash) (*ckb.Transaction, string) {
	c.lock.Lock()
	defer c.lock.Unlock()

	ctx, ok := c.txs[hash]
	if !ok {
		return nil, rpcnode.StatusUnknown
	}
	tx := ctx.tx
	return &tx, ctx.status
}

// LiveCells returns the live cells locked by lock.
func (c *Chain) LiveCells(lock ckb.Script) []ckb.Cell {
	c.lock.Lock()
	defer c.lock.Unlock()

	var result []ckb.Cell
	for _, cell := range c.cells {
		if !cell.dead && cell.cell.Output.Lock.Equal(lock) {
			result = append(result, cell.cell.Copy())
		}
	}
	return result
}

// Balance returns the total capacity of the live cells locked by lock.
func (c *Chain) Balance(lock ckb.Script) uint64 {
	var result uint64
	for _, cell := range c.LiveCells(lock) {
		result += cell.Output.Capacity
	}
	return result
}

func (c *Chain) indexerTip() uint64 {
	tip := c.headers[len(c.headers)-1].Number
	if c.indexerLag > tip {
		return 0
	}
	return tip - c.indexerLag
}

func (c *Chain) findCell(outPoint ckb.OutPoint) *liveCell {
	for _, cell := range c.cells {
		if cell.cell.OutPoint.Equal(outPoint) {
			return cell
		}
	}
	return nil
}

func (c *Chain) spentInPool(outPoint ckb.OutPoint) bool {
	for _, hash := range c.pool {
		for _, input := range c.txs[hash].tx.Inputs {
			if input.PreviousOutput.Equal(outPoint) {
				return true
			}
		}
	}
	return false
}

// generateBlock commits every pool transaction in a new block. The lock must be held.
func (c *Chain) generateBlock() ckb.Hash {
	parent := c.headers[len(c.headers)-1]

	header := ckb.Header{
		ParentHash: parent.Hash,
		Number:     parent.Number + 1,
		Timestamp:  parent.Timestamp + 1000,
	}
	h := ckb.NewHasher()
	h.Write(parent.Hash[:])
	h.Write(binary.LittleEndian.AppendUint64(nil, header.Number))
	for _, hash := range c.pool {
		h.Write(hash[:])
	}
	header.Hash = h.Finalize()

	for _, hash := range c.pool {
		ctx := c.txs[hash]
		ctx.status = rpcnode.StatusCommitted
		blockHash := header.Hash
		ctx.blockHash = &blockHash

		for _, input := range ctx.tx.Inputs {
			if cell := c.findCell(input.PreviousOutput); cell != nil {
				cell.dead = true
			}
		}

		for i, output := range ctx.tx.Outputs {
			outPoint := ckb.OutPoint{TxHash: hash, Index: uint32(i)}
			var data []byte
			if i < len(ctx.tx.OutputsData) {
				data = append([]byte{}, ctx.tx.OutputsData[i]...)
			}
			c.cells = append(c.cells, &liveCell{
				cell: ckb.Cell{
					Output:      output.Copy(),
					Data:        data,
					OutPoint:    &outPoint,
					BlockNumber: header.Number,
				},
			})
		}
	}
	c.pool = nil

	c.headers = append(c.headers, header)
	return header.Hash
}

// acceptTransaction validates and adds a transaction to the pool. The lock must be held.
func (c *Chain) acceptTransaction(tx *ckb.Transaction) (ckb.Hash, error) {
	hash, err := tx.Hash()
	if err != nil {
		return hash, errors.Wrap(err, "hash")
	}

	if _, exists := c.txs[hash]; exists {
		return hash, fmt.Errorf("Duplicated transaction : %s", hash)
	}

	if len(tx.Inputs) == 0 {
		return hash, errors.New("Transaction has no inputs")
	}
	if len(tx.Outputs) != len(tx.OutputsData) {
		return hash, fmt.Errorf("Outputs data count %d doesn't match outputs %d",
			len(tx.OutputsData), len(tx.Outputs))
	}
	if len(tx.Witnesses) < len(tx.Inputs) {
		return hash, fmt.Errorf("Witness count %d less than input count %d",
			len(tx.Witnesses), len(tx.Inputs))
	}

	inputs := make([]ckb.Cell, len(tx.Inputs))
	var inputCapacity uint64
	for i, input := range tx.Inputs {
		cell := c.findCell(input.PreviousOutput)
		if cell == nil {
			return hash, fmt.Errorf("Unknown input : %s", input.PreviousOutput)
		}
		if cell.dead || c.spentInPool(input.PreviousOutput) {
			return hash, fmt.Errorf("Dead input : %s", input.PreviousOutput)
		}
		for _, other := range tx.Inputs[:i] {
			if other.PreviousOutput.Equal(input.PreviousOutput) {
				return hash, fmt.Errorf("Duplicate input : %s", input.PreviousOutput)
			}
		}
		inputs[i] = cell.cell.Copy()
		inputCapacity += cell.cell.Output.Capacity
	}

	var outputCapacity uint64
	for i, output := range tx.Outputs {
		cell := ckb.Cell{Output: output, Data: tx.OutputsData[i]}
		if output.Capacity < cell.OccupiedCapacity() {
			return hash, fmt.Errorf("Output %d capacity %d less than occupied %d", i,
				output.Capacity, cell.OccupiedCapacity())
		}
		outputCapacity += output.Capacity
	}

	if outputCapacity > inputCapacity {
		return hash, fmt.Errorf("Outputs capacity %d exceed inputs capacity %d",
			outputCapacity, inputCapacity)
	}

	for _, dep := range tx.CellDeps {
		if c.findCell(dep.OutPoint) == nil {
			if _, ok := c.txs[dep.OutPoint.TxHash]; !ok {
				return hash, fmt.Errorf("Unknown cell dep : %s", dep.OutPoint)
			}
		}
	}

	if c.verifier != nil {
		if err := c.verifier(tx, inputs); err != nil {
			return hash, errors.Wrap(err, "verify")
		}
	}

	ctx := &chainTx{tx: *tx, status: rpcnode.StatusPending}
	if c.rejectNext {
		c.rejectNext = false
		ctx.status = rpcnode.StatusRejected
		ctx.reason = "rejected by test"
		c.txs[hash] = ctx
		return hash, nil
	}

	c.txs[hash] = ctx
	c.pool = append(c.pool, hash)
	return hash, nil
}

// matchScript compares a script to a search script by exact or args prefix match.
func matchScript(script, search ckb.Script, mode string) bool {
	if script.CodeHash != search.CodeHash || script.HashType != search.HashType {
		return false
	}
	if mode == rpcnode.SearchModeExact {
		return bytes.Equal(script.Args, search.Args)
	}
	return bytes.HasPrefix(script.Args, search.Args)
}

func inRange(r *rpcnode.Range, value uint64) bool {
	return r == nil || (value >= r[0] && value < r[1])
}

func scriptLen(script *ckb.Script) uint64 {
	if script == nil {
		return 0
	}
	return script.Occupied()
}

// searchCells returns the indexed live cells matching the key in ascending order. The lock
// must be held.
func (c *Chain) searchCells(key rpcnode.SearchKey) []int {
	indexerTip := c.indexerTip()

	var result []int
	for i, cell := range c.cells {
		if cell.dead || cell.cell.BlockNumber > indexerTip {
			continue
		}

		output := cell.cell.Output
		var other *ckb.Script
		if key.ScriptType == rpcnode.ScriptTypeType {
			if output.Type == nil || !matchScript(*output.Type, key.Script,
				key.ScriptSearchMode) {
				continue
			}
			lock := output.Lock
			other = &lock
		} else {
			if !matchScript(output.Lock, key.Script, key.ScriptSearchMode) {
				continue
			}
			other = output.Type
		}

		if filter := key.Filter; filter != nil {
			if filter.Script != nil && (other == nil || !matchScript(*other, *filter.Script,
				rpcnode.SearchModePrefix)) {
				continue
			}
			if !inRange(filter.ScriptLenRange, scriptLen(other)) {
				continue
			}
			if !inRange(filter.OutputDataLenRange, uint64(len(cell.cell.Data))) {
				continue
			}
			if !inRange(filter.OutputCapacityRange, output.Capacity) {
				continue
			}
			if !inRange(filter.BlockRange, cell.cell.BlockNumber) {
				continue
			}
		}

		result = append(result, i)
	}

	return result
}
