package rpcnode

/**
 * RPC Node Kit
 *
 * What is my purpose?
 * - You connect to a CKB node
 * - You make JSON-RPC calls for me, including the indexer and integration test modules
 */

import (
	"context"
	"time"

	"github.com/tokenized/ckb-examples/internal/platform/logger"
	"github.com/tokenized/ckb-examples/pkg/ckb"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
)

const (
	// SubSystem is used by the logger package
	SubSystem = "RPCNode"

	// OutputsValidatorPassthrough skips the node's default output checks, which reject lock
	// scripts it doesn't know, such as custom scripts on a dev chain.
	OutputsValidatorPassthrough = "passthrough"
)

// RPCNode is a JSON-RPC client of a CKB node. It is safe for concurrent use.
type RPCNode struct {
	client *rpc.Client
	config Config
}

// NewNode dials the node in the config. HTTP endpoints don't connect until the first call.
func NewNode(ctx context.Context, config *Config) (*RPCNode, error) {
	client, err := rpc.DialContext(ctx, config.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", config.String())
	}

	return &RPCNode{
		client: client,
		config: *config,
	}, nil
}

// Close shuts down the underlying client.
func (r *RPCNode) Close() {
	r.client.Close()
}

func (r *RPCNode) call(ctx context.Context, result interface{}, method string,
	args ...interface{}) error {

	ctx, span := trace.StartSpan(ctx, "rpcnode."+method)
	defer span.End()

	ctx = logger.ContextWithLogSubSystem(ctx, SubSystem)
	defer logger.Elapsed(ctx, time.Now(), method)

	if err := r.client.CallContext(ctx, result, method, args...); err != nil {
		span.SetStatus(trace.Status{Code: trace.StatusCodeUnknown, Message: err.Error()})
		return errors.Wrap(err, method)
	}

	return nil
}

// GetTipBlockNumber returns the number of the chain tip.
func (r *RPCNode) GetTipBlockNumber(ctx context.Context) (uint64, error) {
	var result hexutil.Uint64
	if err := r.call(ctx, &result, "get_tip_block_number"); err != nil {
		return 0, err
	}
	return uint64(result), nil
}

// GetTipHeader returns the header of the chain tip.
func (r *RPCNode) GetTipHeader(ctx context.Context) (*ckb.Header, error) {
	var result ckb.Header
	if err := r.call(ctx, &result, "get_tip_header"); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetIndexerTip returns the last block processed by the indexer. It returns nil while the
// indexer hasn't processed any block yet.
func (r *RPCNode) GetIndexerTip(ctx context.Context) (*IndexerTip, error) {
	var result *IndexerTip
	if err := r.call(ctx, &result, "get_indexer_tip"); err != nil {
		return nil, err
	}
	return result, nil
}

// GetTransaction returns the transaction and its status.
func (r *RPCNode) GetTransaction(ctx context.Context,
	txHash ckb.Hash) (*TransactionWithStatus, error) {

	var result *TransactionWithStatus
	if err := r.call(ctx, &result, "get_transaction", txHash); err != nil {
		return nil, err
	}
	if result == nil {
		return &TransactionWithStatus{TxStatus: TxStatus{Status: StatusUnknown}}, nil
	}
	return result, nil
}

// SendTransaction submits a sealed transaction to the pool and returns its hash.
func (r *RPCNode) SendTransaction(ctx context.Context, tx *ckb.Transaction) (ckb.Hash, error) {
	ctx, span := trace.StartSpan(ctx, "rpcnode.SendTransaction")
	defer span.End()

	var result ckb.Hash
	if err := r.call(ctx, &result, "send_transaction", tx,
		OutputsValidatorPassthrough); err != nil {
		return result, err
	}

	ctx = logger.ContextWithTXHash(ctx, result.String())
	logger.Info(ctx, "Sent transaction")
	return result, nil
}

// GenerateBlock asks a dev chain node to produce one block and returns its hash. The method
// is only served when the IntegrationTest RPC module is enabled.
func (r *RPCNode) GenerateBlock(ctx context.Context) (ckb.Hash, error) {
	var result ckb.Hash
	if err := r.call(ctx, &result, "generate_block"); err != nil {
		return result, err
	}
	return result, nil
}

// GetCells returns one page of live cells matching the search key. Pass a nil cursor for the
// first page.
func (r *RPCNode) GetCells(ctx context.Context, searchKey SearchKey, order string,
	limit uint32, afterCursor []byte) (*LiveCells, error) {

	var cursor interface{}
	if len(afterCursor) > 0 {
		cursor = hexutil.Bytes(afterCursor)
	}

	var result LiveCells
	if err := r.call(ctx, &result, "get_cells", searchKey, order, hexutil.Uint(limit),
		cursor); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetLiveCell returns the cell at outPoint with its status.
func (r *RPCNode) GetLiveCell(ctx context.Context, outPoint ckb.OutPoint,
	withData bool) (*CellWithStatus, error) {

	var result CellWithStatus
	if err := r.call(ctx, &result, "get_live_cell", outPoint, withData); err != nil {
		return nil, err
	}
	return &result, nil
}
