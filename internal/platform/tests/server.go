package tests

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/tokenized/ckb-examples/pkg/ckb"
	"github.com/tokenized/ckb-examples/pkg/rpcnode"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

type request struct {
	Version string            `json:"jsonrpc"`
	ID      json.RawMessage   `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

type responseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type response struct {
	Version string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *responseError  `json:"error,omitempty"`
}

// Server serves a Chain over JSON-RPC on a local HTTP listener.
type Server struct {
	*Chain
	http *httptest.Server
}

// NewServer starts serving a new chain. Call Close when done.
func NewServer() *Server {
	result := &Server{Chain: NewChain()}
	result.http = httptest.NewServer(http.HandlerFunc(result.handle))
	return result
}

// URL returns the JSON-RPC endpoint.
func (s *Server) URL() string {
	return s.http.URL
}

// Close stops the listener.
func (s *Server) Close() {
	s.http.Close()
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := response{Version: "2.0", ID: req.ID}
	result, err := s.dispatch(req.Method, req.Params)
	if err != nil {
		resp.Error = &responseError{Code: -32000, Message: err.Error()}
	} else {
		resp.Result = result
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// nullResult is encoded as a json null result, which omitempty would otherwise drop.
type nullResult struct{}

func (nullResult) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

func param(params []json.RawMessage, index int, value interface{}) error {
	if index >= len(params) {
		return fmt.Errorf("Missing param %d", index)
	}
	return json.Unmarshal(params[index], value)
}

func (s *Server) dispatch(method string, params []json.RawMessage) (interface{}, error) {
	c := s.Chain
	c.lock.Lock()
	defer c.lock.Unlock()

	c.calls[method]++

	switch method {
	case "get_tip_block_number":
		return hexutil.Uint64(c.headers[len(c.headers)-1].Number), nil

	case "get_tip_header":
		return c.headers[len(c.headers)-1], nil

	case "get_indexer_tip":
		if !c.indexerStarted {
			return nullResult{}, nil
		}
		number := c.indexerTip()
		if c.indexerLag > 0 {
			c.indexerLag--
		}
		return rpcnode.IndexerTip{
			BlockHash:   c.headers[number].Hash,
			BlockNumber: number,
		}, nil

	case "generate_block":
		if c.stallBlocks > 0 {
			c.stallBlocks--
			return c.headers[len(c.headers)-1].Hash, nil
		}
		return c.generateBlock(), nil

	case "send_transaction":
		var tx ckb.Transaction
		if err := param(params, 0, &tx); err != nil {
			return nil, err
		}
		return c.acceptTransaction(&tx)

	case "get_transaction":
		var hash ckb.Hash
		if err := param(params, 0, &hash); err != nil {
			return nil, err
		}
		ctx, ok := c.txs[hash]
		if !ok {
			return rpcnode.TransactionWithStatus{
				TxStatus: rpcnode.TxStatus{Status: rpcnode.StatusUnknown},
			}, nil
		}
		tx := ctx.tx
		result := rpcnode.TransactionWithStatus{
			Transaction: &tx,
			TxStatus: rpcnode.TxStatus{
				Status:    ctx.status,
				BlockHash: ctx.blockHash,
			},
		}
		if len(ctx.reason) > 0 {
			reason := ctx.reason
			result.TxStatus.Reason = &reason
		}
		return result, nil

	case "get_live_cell":
		var outPoint ckb.OutPoint
		if err := param(params, 0, &outPoint); err != nil {
			return nil, err
		}
		var withData bool
		if len(params) > 1 {
			if err := param(params, 1, &withData); err != nil {
				return nil, err
			}
		}

		cell := c.findCell(outPoint)
		if cell == nil {
			return rpcnode.CellWithStatus{Status: rpcnode.CellStatusUnknown}, nil
		}
		if cell.dead {
			return rpcnode.CellWithStatus{Status: rpcnode.CellStatusDead}, nil
		}
		info := &rpcnode.CellInfo{Output: cell.cell.Output}
		if withData {
			info.Data = &rpcnode.CellData{
				Content: append(hexutil.Bytes{}, cell.cell.Data...),
				Hash:    ckb.Blake256(cell.cell.Data),
			}
		}
		return rpcnode.CellWithStatus{Cell: info, Status: rpcnode.CellStatusLive}, nil

	case "get_cells":
		return s.getCells(params)
	}

	return nil, fmt.Errorf("Method not found : %s", method)
}

// getCells pages through matching cells. The cursor is the big endian position of the last
// returned cell in the search result.
func (s *Server) getCells(params []json.RawMessage) (interface{}, error) {
	var key rpcnode.SearchKey
	if err := param(params, 0, &key); err != nil {
		return nil, err
	}
	var order string
	if err := param(params, 1, &order); err != nil {
		return nil, err
	}
	var limit hexutil.Uint
	if err := param(params, 2, &limit); err != nil {
		return nil, err
	}
	var cursor hexutil.Bytes
	if len(params) > 3 && string(params[3]) != "null" {
		if err := param(params, 3, &cursor); err != nil {
			return nil, err
		}
	}
	if limit == 0 {
		return nil, fmt.Errorf("Limit must be greater than 0")
	}

	matches := s.Chain.searchCells(key)
	if order == rpcnode.OrderDesc {
		for i, j := 0, len(matches)-1; i < j; i, j = i+1, j-1 {
			matches[i], matches[j] = matches[j], matches[i]
		}
	}

	start := 0
	if len(cursor) == 8 {
		start = int(binary.BigEndian.Uint64(cursor)) + 1
	}

	result := rpcnode.LiveCells{Objects: []rpcnode.IndexerCell{}}
	position := start
	for ; position < len(matches) && len(result.Objects) < int(limit); position++ {
		cell := s.Chain.cells[matches[position]]
		indexed := rpcnode.IndexerCell{
			Output:      cell.cell.Output,
			OutPoint:    *cell.cell.OutPoint,
			BlockNumber: cell.cell.BlockNumber,
			TxIndex:     cell.txIndex,
		}
		if key.WithData {
			indexed.OutputData = cell.cell.Data
		}
		result.Objects = append(result.Objects, indexed)
	}

	if len(result.Objects) > 0 {
		result.LastCursor = binary.BigEndian.AppendUint64(nil, uint64(position-1))
	} else {
		result.LastCursor = hexutil.Bytes{}
	}
	return result, nil
}
