package txbuilder

import (
	"github.com/tokenized/ckb-examples/pkg/ckb"

	"github.com/pkg/errors"
)

// SetupOptions adjusts how a plugin adds an input cell.
type SetupOptions struct {
	// Since is the since value of the new input. Nil leaves it unset.
	Since *uint64

	// DefaultWitness is the witness placed for the new input. Nil means an empty witness.
	DefaultWitness []byte
}

// ScriptGroup is the set of inputs locked by one script.
type ScriptGroup struct {
	Script       ckb.Script
	InputIndices []int
}

// SetupCommon does the part of input setup every lock script shares. It appends the cell as
// an input, appends an output to the same lock with the same capacity, type and data, sets
// the since value and sets the input's witness.
func SetupCommon(skel Skeleton, cell ckb.Cell, options SetupOptions) Skeleton {
	result := skel.AddInput(cell)
	index := len(result.inputs) - 1

	result = result.AddOutput(cell)

	if options.Since != nil {
		result = result.SetInputSince(index, *options.Since)
	}

	if options.DefaultWitness != nil {
		result = result.SetWitness(index, options.DefaultWitness)
	}

	return result
}

// SetLockPlaceholder sets the lock field of the witness of the first input locked by lock to
// placeholder. Other fields of an existing witness are kept. The placeholder has the size of
// the final lock value so the transaction size is known before signing.
func SetLockPlaceholder(skel Skeleton, lock ckb.Script, placeholder []byte) (Skeleton, error) {
	for i, input := range skel.inputs {
		if !input.Output.Lock.Equal(lock) {
			continue
		}

		var witness []byte
		if i < len(skel.witnesses) {
			witness = skel.witnesses[i]
		}

		args, err := ckb.DeserializeWitnessArgs(witness)
		if err != nil {
			return skel, errors.Wrapf(err, "witness %d", i)
		}
		args.Lock = append([]byte{}, placeholder...)

		return skel.SetWitness(i, args.Serialize()), nil
	}

	return skel, errors.Errorf("No input locked by %s", lock)
}

// LockGroups returns the inputs grouped by lock script in order of first occurrence.
func (s Skeleton) LockGroups() []ScriptGroup {
	var result []ScriptGroup
	for i, input := range s.inputs {
		found := false
		for g := range result {
			if result[g].Script.Equal(input.Output.Lock) {
				result[g].InputIndices = append(result[g].InputIndices, i)
				found = true
				break
			}
		}

		if !found {
			result = append(result, ScriptGroup{
				Script:       input.Output.Lock.Copy(),
				InputIndices: []int{i},
			})
		}
	}
	return result
}
