package txbuilder

import (
	"context"
	"fmt"
	"io"

	"github.com/tokenized/ckb-examples/internal/platform/logger"
	"github.com/tokenized/ckb-examples/pkg/ckb"
	"github.com/tokenized/ckb-examples/pkg/indexer"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"
)

// Transfer adds an output of amount to the to address and funds it from the from addresses.
// Funds are taken first from existing outputs owned by a from address, then from cells
// collected from the from addresses in order. Each collected cell is spent to its owner and
// the amount deducted from that change output. Change outputs drained to zero are removed.
func (b *Builder) Transfer(ctx context.Context, skel Skeleton, from []string, to string,
	amount uint64) (Skeleton, error) {

	ctx, span := trace.StartSpan(ctx, "txbuilder.Transfer")
	defer span.End()

	ctx = logger.ContextWithLogSubSystem(ctx, SubSystem)

	config, err := b.registry.Get()
	if err != nil {
		return skel, errors.Wrap(err, "config")
	}

	toLock, err := config.ParseAddress(to)
	if err != nil {
		return skel, newError(ErrorCodeInvalidAddress, fmt.Sprintf("%s : %s", to, err))
	}

	fromLocks, err := b.parseAddresses(from)
	if err != nil {
		return skel, err
	}

	result := skel.AddFixedOutput(ckb.Cell{
		Output: ckb.CellOutput{Capacity: amount, Lock: toLock},
		Data:   []byte{},
	})

	result, err = b.inject(ctx, result, fromLocks, amount, ErrorCodeInsufficientFunds)
	if err != nil {
		return skel, err
	}

	logger.Debug(ctx, "Transfer %d shannons to %s with %d inputs", amount, to,
		len(result.inputs))
	return result, nil
}

// PayFee funds fee from the from addresses the same way Transfer funds its amount, without
// adding a recipient output.
func (b *Builder) PayFee(ctx context.Context, skel Skeleton, from []string,
	fee uint64) (Skeleton, error) {

	ctx, span := trace.StartSpan(ctx, "txbuilder.PayFee")
	defer span.End()

	ctx = logger.ContextWithLogSubSystem(ctx, SubSystem)

	fromLocks, err := b.parseAddresses(from)
	if err != nil {
		return skel, err
	}

	result, err := b.inject(ctx, skel, fromLocks, fee, ErrorCodeInsufficientFundsForFee)
	if err != nil {
		return skel, err
	}

	logger.Debug(ctx, "Paid fee of %d shannons", fee)
	return result, nil
}

func (b *Builder) parseAddresses(addresses []string) ([]ckb.Script, error) {
	if len(addresses) == 0 {
		return nil, newError(ErrorCodeInvalidAddress, "no from addresses")
	}

	config, err := b.registry.Get()
	if err != nil {
		return nil, errors.Wrap(err, "config")
	}

	result := make([]ckb.Script, len(addresses))
	for i, address := range addresses {
		result[i], err = config.ParseAddress(address)
		if err != nil {
			return nil, newError(ErrorCodeInvalidAddress, fmt.Sprintf("%s : %s", address, err))
		}
	}
	return result, nil
}

// inject takes amount from outputs and cells owned by locks. code is the error code returned
// when there isn't enough.
func (b *Builder) inject(ctx context.Context, skel Skeleton, locks []ckb.Script, amount uint64,
	code int) (Skeleton, error) {

	skel, remaining := deductFromOutputs(skel, locks, amount)

	for _, lock := range locks {
		if remaining == 0 {
			break
		}

		if _, err := b.Plugin(lock); err != nil {
			return skel, err
		}

		// Every plugin is asked for a collector. Plugins return no cells for locks they don't
		// own.
		for _, plugin := range b.registeredPlugins() {
			if remaining == 0 {
				break
			}

			collector, err := plugin.CellCollector(ctx, lock, skel.provider, indexer.QueryOptions{})
			if err != nil {
				return skel, errors.Wrap(err, "cell collector")
			}

			skel, remaining, err = collectInto(ctx, skel, plugin, collector, remaining)
			if err != nil {
				return skel, err
			}
		}
	}

	if remaining > 0 {
		return skel, newError(code, fmt.Sprintf("%d shannons short of %d", remaining, amount))
	}

	return skel.removeEmptyOutputs(), nil
}

// collectInto adds cells from collector as inputs until remaining is covered or the cells run
// out.
func collectInto(ctx context.Context, skel Skeleton, plugin LockScriptPlugin,
	collector indexer.CellCollector, remaining uint64) (Skeleton, uint64, error) {

	for remaining > 0 {
		cell, err := collector.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return skel, remaining, errors.Wrap(err, "next cell")
		}

		if cell.OutPoint == nil || skel.HasInput(*cell.OutPoint) {
			continue
		}

		skel, err = plugin.SetupInputCell(ctx, skel, *cell, SetupOptions{})
		if err != nil {
			return skel, remaining, errors.Wrap(err, "setup input")
		}

		// The plugin added the change output last.
		index := len(skel.outputs) - 1
		output := skel.outputs[index]
		if isPlainOutput(output) {
			take := deductible(output, remaining)
			skel = skel.setOutputCapacity(index, output.Output.Capacity-take)
			remaining -= take
		}

		logger.Debug(ctx, "Collected cell %s with %d shannons", cell.OutPoint,
			cell.Output.Capacity)
	}

	return skel, remaining, nil
}
