package rpcnode

import (
	"encoding/json"

	"github.com/tokenized/ckb-examples/pkg/ckb"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Transaction statuses reported by get_transaction.
const (
	StatusPending   = "pending"
	StatusProposed  = "proposed"
	StatusCommitted = "committed"
	StatusUnknown   = "unknown"
	StatusRejected  = "rejected"
)

// TxStatus is the pool or chain status of a transaction.
type TxStatus struct {
	Status    string    `json:"status"`
	BlockHash *ckb.Hash `json:"block_hash"`
	Reason    *string   `json:"reason"`
}

// TransactionWithStatus is the result of get_transaction. Transaction is nil when the node
// doesn't know the transaction.
type TransactionWithStatus struct {
	Transaction *ckb.Transaction `json:"transaction"`
	TxStatus    TxStatus         `json:"tx_status"`
}

// IndexerTip is the last block processed by the node's built in indexer.
type IndexerTip struct {
	BlockHash   ckb.Hash
	BlockNumber uint64
}

type jsonIndexerTip struct {
	BlockHash   ckb.Hash       `json:"block_hash"`
	BlockNumber hexutil.Uint64 `json:"block_number"`
}

func (t *IndexerTip) UnmarshalJSON(data []byte) error {
	var jt jsonIndexerTip
	if err := json.Unmarshal(data, &jt); err != nil {
		return err
	}
	t.BlockHash = jt.BlockHash
	t.BlockNumber = uint64(jt.BlockNumber)
	return nil
}

func (t IndexerTip) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonIndexerTip{
		BlockHash:   t.BlockHash,
		BlockNumber: hexutil.Uint64(t.BlockNumber),
	})
}

// Search key script types and orders for get_cells.
const (
	ScriptTypeLock = "lock"
	ScriptTypeType = "type"

	OrderAsc  = "asc"
	OrderDesc = "desc"

	SearchModePrefix = "prefix"
	SearchModeExact  = "exact"
)

// Range is a half open [start, end) range sent as a pair of hex numbers.
type Range [2]uint64

func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]hexutil.Uint64{hexutil.Uint64(r[0]), hexutil.Uint64(r[1])})
}

func (r *Range) UnmarshalJSON(data []byte) error {
	var values [2]hexutil.Uint64
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	r[0] = uint64(values[0])
	r[1] = uint64(values[1])
	return nil
}

// SearchKeyFilter narrows a get_cells search. Nil fields are not applied.
type SearchKeyFilter struct {
	Script              *ckb.Script `json:"script,omitempty"`
	ScriptLenRange      *Range      `json:"script_len_range,omitempty"`
	OutputDataLenRange  *Range      `json:"output_data_len_range,omitempty"`
	OutputCapacityRange *Range      `json:"output_capacity_range,omitempty"`
	BlockRange          *Range      `json:"block_range,omitempty"`
}

// SearchKey is the first parameter of get_cells. The node matches script args by prefix
// unless ScriptSearchMode is exact.
type SearchKey struct {
	Script           ckb.Script       `json:"script"`
	ScriptType       string           `json:"script_type"`
	ScriptSearchMode string           `json:"script_search_mode,omitempty"`
	Filter           *SearchKeyFilter `json:"filter,omitempty"`
	WithData         bool             `json:"with_data"`
}

// IndexerCell is one live cell returned by get_cells.
type IndexerCell struct {
	Output      ckb.CellOutput
	OutputData  []byte
	OutPoint    ckb.OutPoint
	BlockNumber uint64
	TxIndex     uint32
}

type jsonIndexerCell struct {
	Output      ckb.CellOutput `json:"output"`
	OutputData  hexutil.Bytes  `json:"output_data"`
	OutPoint    ckb.OutPoint   `json:"out_point"`
	BlockNumber hexutil.Uint64 `json:"block_number"`
	TxIndex     hexutil.Uint   `json:"tx_index"`
}

func (c *IndexerCell) UnmarshalJSON(data []byte) error {
	var jc jsonIndexerCell
	if err := json.Unmarshal(data, &jc); err != nil {
		return err
	}
	c.Output = jc.Output
	c.OutputData = []byte(jc.OutputData)
	c.OutPoint = jc.OutPoint
	c.BlockNumber = uint64(jc.BlockNumber)
	c.TxIndex = uint32(jc.TxIndex)
	return nil
}

func (c IndexerCell) MarshalJSON() ([]byte, error) {
	data := c.OutputData
	if data == nil {
		data = []byte{}
	}
	return json.Marshal(jsonIndexerCell{
		Output:      c.Output,
		OutputData:  data,
		OutPoint:    c.OutPoint,
		BlockNumber: hexutil.Uint64(c.BlockNumber),
		TxIndex:     hexutil.Uint(c.TxIndex),
	})
}

// Cell converts to the chain cell type.
func (c IndexerCell) Cell() ckb.Cell {
	outPoint := c.OutPoint
	return ckb.Cell{
		Output:      c.Output,
		Data:        c.OutputData,
		OutPoint:    &outPoint,
		BlockNumber: c.BlockNumber,
	}
}

// LiveCells is one page of get_cells results.
type LiveCells struct {
	Objects    []IndexerCell `json:"objects"`
	LastCursor hexutil.Bytes `json:"last_cursor"`
}

// Live cell statuses reported by get_live_cell.
const (
	CellStatusLive    = "live"
	CellStatusDead    = "dead"
	CellStatusUnknown = "unknown"
)

// CellData is the data of a live cell and its hash.
type CellData struct {
	Content hexutil.Bytes `json:"content"`
	Hash    ckb.Hash      `json:"hash"`
}

// CellInfo is the output and optional data of a live cell.
type CellInfo struct {
	Output ckb.CellOutput `json:"output"`
	Data   *CellData      `json:"data"`
}

// CellWithStatus is the result of get_live_cell.
type CellWithStatus struct {
	Cell   *CellInfo `json:"cell"`
	Status string    `json:"status"`
}
