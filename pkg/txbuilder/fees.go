package txbuilder

import (
	"context"
	"fmt"

	"github.com/tokenized/ckb-examples/pkg/ckb"

	"github.com/pkg/errors"
)

const (
	// maxFeeIterations bounds how many times PayFeeByFeeRate re-estimates a fee that grew
	// because paying it added inputs.
	maxFeeIterations = 8
)

// The fee is estimated from the size of the transaction with lock placeholders in the
// witnesses. Placeholders have the size of the final signatures, so the estimate holds after
// sealing.

// InputCapacity returns the sum of the input capacities.
func (s Skeleton) InputCapacity() uint64 {
	var result uint64
	for _, input := range s.inputs {
		result += input.Output.Capacity
	}
	return result
}

// Fee returns the input capacity not spent to outputs.
func (s Skeleton) Fee() uint64 {
	inputs := s.InputCapacity()
	outputs := s.OutputCapacity()
	if outputs > inputs {
		return 0
	}
	return inputs - outputs
}

// EstimatedSize returns the size the transaction takes in a block.
func (s Skeleton) EstimatedSize() (int, error) {
	return s.Transaction().SizeInBlock()
}

// EstimatedFee returns the fee required at feeRate, in shannons per 1000 bytes.
func (s Skeleton) EstimatedFee(feeRate uint64) (uint64, error) {
	size, err := s.EstimatedSize()
	if err != nil {
		return 0, err
	}
	return ckb.CalculateFee(size, feeRate), nil
}

// PayFeeByFeeRate pays the fee required by the size of the transaction at feeRate, in
// shannons per 1000 bytes. Paying may add inputs and change outputs, so the fee is
// re-estimated on the result until it covers its own size.
func (b *Builder) PayFeeByFeeRate(ctx context.Context, skel Skeleton, from []string,
	feeRate uint64) (Skeleton, error) {

	fee, err := skel.EstimatedFee(feeRate)
	if err != nil {
		return skel, errors.Wrap(err, "estimate fee")
	}

	for i := 0; i < maxFeeIterations; i++ {
		paid, err := b.PayFee(ctx, skel, from, fee)
		if err != nil {
			return skel, err
		}

		required, err := paid.EstimatedFee(feeRate)
		if err != nil {
			return skel, errors.Wrap(err, "estimate fee")
		}

		if required <= fee {
			return paid, nil
		}
		fee = required
	}

	return skel, fmt.Errorf("Fee didn't converge after %d iterations", maxFeeIterations)
}
