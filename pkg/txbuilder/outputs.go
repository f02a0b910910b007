package txbuilder

import (
	"github.com/tokenized/ckb-examples/pkg/ckb"
)

// deductible returns how much of amount can be taken from an output while leaving it either
// empty, so it can be removed, or above its occupied capacity.
func deductible(output ckb.Cell, amount uint64) uint64 {
	capacity := output.Output.Capacity
	if amount >= capacity {
		return capacity
	}

	occupied := output.OccupiedCapacity()
	if capacity-amount >= occupied {
		return amount
	}
	if capacity > occupied {
		return capacity - occupied
	}
	return 0
}

// isPlainOutput returns true for outputs with no type script and no data. Only these are
// drained to pay, so typed cells are never destroyed.
func isPlainOutput(output ckb.Cell) bool {
	return output.Output.Type == nil && len(output.Data) == 0
}

func ownedBy(output ckb.Cell, locks []ckb.Script) bool {
	for _, lock := range locks {
		if output.Output.Lock.Equal(lock) {
			return true
		}
	}
	return false
}

// deductFromOutputs takes up to amount from the non fixed plain outputs locked by one of
// locks, starting with the most recently added. It returns the new skeleton and the amount
// still needed.
func deductFromOutputs(skel Skeleton, locks []ckb.Script, amount uint64) (Skeleton, uint64) {
	for i := len(skel.outputs) - 1; i >= 0 && amount > 0; i-- {
		output := skel.outputs[i]
		if skel.fixedOutputs[i] || !isPlainOutput(output) || !ownedBy(output, locks) {
			continue
		}

		take := deductible(output, amount)
		if take == 0 {
			continue
		}
		skel = skel.setOutputCapacity(i, output.Output.Capacity-take)
		amount -= take
	}

	return skel, amount
}

// OutputCapacity returns the sum of the output capacities.
func (s Skeleton) OutputCapacity() uint64 {
	var result uint64
	for _, output := range s.outputs {
		result += output.Output.Capacity
	}
	return result
}
