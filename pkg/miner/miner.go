package miner

/**
 * Dev Chain Miner
 *
 * What is my purpose?
 * - You produce blocks on a dev chain on request
 * - You wait until the indexer has caught up with the blocks you produced
 * - You keep mining until a transaction is committed
 *
 * Every wait is bounded by the caller's context and the miner's timeout.
 */

import (
	"context"
	"time"

	"github.com/tokenized/ckb-examples/internal/platform/logger"
	"github.com/tokenized/ckb-examples/pkg/ckb"
	"github.com/tokenized/ckb-examples/pkg/rpcnode"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"
)

const (
	SubSystem = "Miner" // For logger

	// DefaultPollInterval is the delay between indexer and status polls.
	DefaultPollInterval = 300 * time.Millisecond

	// DefaultStep is the number of blocks mined between transaction status checks.
	DefaultStep = 3
)

var (
	// ErrDeadlineExceeded is returned when a wait runs past the context deadline or the miner
	// timeout.
	ErrDeadlineExceeded = errors.New("Deadline exceeded")

	// ErrTransactionRejected is returned when the node rejects a transaction being mined.
	ErrTransactionRejected = errors.New("Transaction rejected")
)

// Node is the part of the node's JSON-RPC interface the miner uses.
type Node interface {
	GetTipBlockNumber(ctx context.Context) (uint64, error)
	GetTipHeader(ctx context.Context) (*ckb.Header, error)
	GetIndexerTip(ctx context.Context) (*rpcnode.IndexerTip, error)
	GenerateBlock(ctx context.Context) (ckb.Hash, error)
	GetTransaction(ctx context.Context, txHash ckb.Hash) (*rpcnode.TransactionWithStatus, error)
}

// Config controls polling and deadlines.
type Config struct {
	// PollInterval is the delay between polls. Zero means DefaultPollInterval.
	PollInterval time.Duration

	// Timeout bounds each call of Mine, WaitForIndexerReady, WaitIndexerStarted and
	// MineToCommitted. Zero means only the context bounds them.
	Timeout time.Duration
}

// Miner drives block production on a dev chain.
type Miner struct {
	node   Node
	config Config
}

// NewMiner returns a miner using node.
func NewMiner(node Node, config Config) *Miner {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}

	return &Miner{
		node:   node,
		config: config,
	}
}

// Mine produces count blocks and waits for the indexer to reach them. Calls to generate_block
// that don't change the tip hash are not counted.
func (m *Miner) Mine(ctx context.Context, count int) error {
	ctx, span := trace.StartSpan(ctx, "miner.Mine")
	defer span.End()

	ctx = logger.ContextWithLogSubSystem(ctx, SubSystem)
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	return m.mine(ctx, count)
}

// WaitForIndexerReady waits until the indexer tip is at or past blockNumber.
func (m *Miner) WaitForIndexerReady(ctx context.Context, blockNumber uint64) error {
	ctx, span := trace.StartSpan(ctx, "miner.WaitForIndexerReady")
	defer span.End()

	ctx = logger.ContextWithLogSubSystem(ctx, SubSystem)
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	return m.waitForIndexer(ctx, &blockNumber)
}

// WaitIndexerStarted waits until the indexer has processed its first block.
func (m *Miner) WaitIndexerStarted(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "miner.WaitIndexerStarted")
	defer span.End()

	ctx = logger.ContextWithLogSubSystem(ctx, SubSystem)
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	return m.waitForIndexer(ctx, nil)
}

// MineToCommitted mines step blocks at a time until the transaction is committed, then waits
// for the indexer to reach the tip.
func (m *Miner) MineToCommitted(ctx context.Context, txHash ckb.Hash, step int) error {
	ctx, span := trace.StartSpan(ctx, "miner.MineToCommitted")
	defer span.End()

	ctx = logger.ContextWithLogSubSystem(ctx, SubSystem)
	ctx = logger.ContextWithTXHash(ctx, txHash.String())
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	if step <= 0 {
		step = DefaultStep
	}

	start := time.Now()
	for {
		if err := m.mine(ctx, step); err != nil {
			return err
		}

		tx, err := m.node.GetTransaction(ctx, txHash)
		if err != nil {
			return m.check(ctx, err, "get transaction")
		}

		switch tx.TxStatus.Status {
		case rpcnode.StatusCommitted:
			logger.Elapsed(ctx, start, "Transaction committed")
			return nil
		case rpcnode.StatusRejected:
			reason := "no reason"
			if tx.TxStatus.Reason != nil {
				reason = *tx.TxStatus.Reason
			}
			return errors.Wrap(ErrTransactionRejected, reason)
		}

		logger.Debug(ctx, "Transaction status %s", tx.TxStatus.Status)
	}
}

func (m *Miner) mine(ctx context.Context, count int) error {
	tip, err := m.node.GetTipBlockNumber(ctx)
	if err != nil {
		return m.check(ctx, err, "get tip")
	}
	expected := tip + uint64(count)

	for count > 0 {
		header, err := m.node.GetTipHeader(ctx)
		if err != nil {
			return m.check(ctx, err, "get tip header")
		}

		mined, err := m.node.GenerateBlock(ctx)
		if err != nil {
			return m.check(ctx, err, "generate block")
		}

		if mined.Equal(header.Hash) {
			logger.Debug(ctx, "Block not produced at %d", header.Number)
			if err := m.sleep(ctx); err != nil {
				return err
			}
			continue
		}

		count--
	}

	logger.Debug(ctx, "Mined to block %d", expected)
	return m.waitForIndexer(ctx, &expected)
}

// waitForIndexer polls the indexer tip until it reaches blockNumber, or until it is non nil
// when blockNumber is nil.
func (m *Miner) waitForIndexer(ctx context.Context, blockNumber *uint64) error {
	count := 0
	for {
		tip, err := m.node.GetIndexerTip(ctx)
		if err != nil {
			return m.check(ctx, err, "get indexer tip")
		}

		if tip != nil && (blockNumber == nil || tip.BlockNumber >= *blockNumber) {
			return nil
		}

		if count > 10 {
			if blockNumber == nil {
				logger.Info(ctx, "Waiting for indexer to start")
			} else {
				logger.Info(ctx, "Waiting for indexer to reach block %d", *blockNumber)
			}
			count = 0
		}
		count++

		if err := m.sleep(ctx); err != nil {
			return err
		}
	}
}

func (m *Miner) sleep(ctx context.Context) error {
	timer := time.NewTimer(m.config.PollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return errors.Wrap(ErrDeadlineExceeded, ctx.Err().Error())
	case <-timer.C:
		return nil
	}
}

// check converts an RPC failure caused by the expired context into ErrDeadlineExceeded.
func (m *Miner) check(ctx context.Context, err error, message string) error {
	if ctx.Err() != nil {
		return errors.Wrapf(ErrDeadlineExceeded, "%s : %s", message, ctx.Err())
	}
	return errors.Wrap(err, message)
}

func (m *Miner) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.config.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.config.Timeout)
}
