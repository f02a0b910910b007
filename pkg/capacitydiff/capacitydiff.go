package capacitydiff

/**
 * Capacity Diff Lock
 *
 * What is my purpose?
 * - You let the transaction builder spend cells locked by the capacity diff script
 * - You produce the witness the script checks, the net capacity change of the lock
 *
 * The script authorizes a spend when the witness lock of the group's first input holds the
 * sum of the group's output capacities minus the sum of its input capacities, as a little
 * endian signed 64 bit integer. It is a test script. Anyone can spend its cells.
 */

import (
	"bytes"
	"context"
	"encoding/binary"

	"github.com/tokenized/ckb-examples/pkg/ckb"
	"github.com/tokenized/ckb-examples/pkg/indexer"
	"github.com/tokenized/ckb-examples/pkg/scripts"
	"github.com/tokenized/ckb-examples/pkg/txbuilder"

	"github.com/pkg/errors"
)

const (
	// ScriptName is the name of the script in the script config.
	ScriptName = "CAPACITY_DIFF"

	// PathSuffix identifies the script's cell in the genesis manifest.
	PathSuffix = "ckb-sdk-examples-capacity-diff)"

	// MessageSize is the size of the witness lock.
	MessageSize = 8
)

var (
	// ErrWrongWitness is returned by Verify when a witness doesn't hold the capacity change.
	ErrWrongWitness = errors.New("Wrong capacity diff witness")
)

// Register adds the script's deployment, found in the manifest environment, to registry.
func Register(registry *scripts.Registry, env scripts.Environment) error {
	config, err := registry.Get()
	if err != nil {
		return errors.Wrap(err, "config")
	}

	extended, err := config.AddSystemCell(env, ScriptName, PathSuffix)
	if err != nil {
		return errors.Wrap(err, "find script cell")
	}

	if err := registry.Extend(ScriptName, extended.Scripts[ScriptName]); err != nil {
		return errors.Wrap(err, "register")
	}
	return nil
}

// Plugin is the builder plugin of the capacity diff lock.
type Plugin struct {
	registry *scripts.Registry
}

// NewPlugin returns the plugin using the deployment in registry.
func NewPlugin(registry *scripts.Registry) *Plugin {
	return &Plugin{registry: registry}
}

func (p *Plugin) Config() (scripts.ScriptConfig, error) {
	return p.registry.Script(ScriptName)
}

func (p *Plugin) CellCollector(ctx context.Context, from ckb.Script,
	provider indexer.CellProvider, query indexer.QueryOptions) (indexer.CellCollector, error) {

	config, err := p.Config()
	if err != nil {
		return nil, err
	}
	return txbuilder.CollectorFor(ctx, config, from, provider, query)
}

func (p *Plugin) SetupInputCell(ctx context.Context, skel txbuilder.Skeleton, cell ckb.Cell,
	options txbuilder.SetupOptions) (txbuilder.Skeleton, error) {

	config, err := p.Config()
	if err != nil {
		return skel, err
	}
	return txbuilder.SetupScriptInput(skel, config, cell, options, make([]byte, MessageSize))
}

// SigningMessage returns the group's output capacity minus its input capacity.
func (p *Plugin) SigningMessage(skel txbuilder.Skeleton,
	group txbuilder.ScriptGroup) ([]byte, error) {

	inputs := skel.Inputs()
	var inputCapacities []uint64
	for _, index := range group.InputIndices {
		if index >= len(inputs) {
			return nil, errors.Errorf("Group input index out of range : %d", index)
		}
		inputCapacities = append(inputCapacities, inputs[index].Output.Capacity)
	}

	var outputs []ckb.CellOutput
	for _, output := range skel.Outputs() {
		outputs = append(outputs, output.Output)
	}

	return Message(group.Script, inputCapacities, outputs), nil
}

// Message returns the witness lock of a group.
func Message(lock ckb.Script, inputCapacities []uint64, outputs []ckb.CellOutput) []byte {
	var total int64
	for _, capacity := range inputCapacities {
		total -= int64(capacity)
	}
	for _, output := range outputs {
		if output.Lock.Equal(lock) {
			total += int64(output.Capacity)
		}
	}

	result := make([]byte, MessageSize)
	binary.LittleEndian.PutUint64(result, uint64(total))
	return result
}

// Signer signs capacity diff entries. The signature is the message itself.
type Signer struct {
	config scripts.ScriptConfig
}

// NewSigner returns a signer for every capacity diff lock in config.
func NewSigner(config scripts.ScriptConfig) *Signer {
	return &Signer{config: config}
}

func (s *Signer) CanSign(lock ckb.Script) bool {
	return s.config.Matches(lock)
}

func (s *Signer) Sign(entry txbuilder.SigningEntry) ([]byte, error) {
	if len(entry.Message) != MessageSize {
		return nil, errors.Errorf("Wrong message size : %d", len(entry.Message))
	}
	return append([]byte{}, entry.Message...), nil
}

// Verify runs the script's check on every capacity diff input group of tx. inputs are the
// cells spent by tx in input order.
func Verify(config scripts.ScriptConfig, tx *ckb.Transaction, inputs []ckb.Cell) error {
	type group struct {
		lock    ckb.Script
		indices []int
	}

	var groups []*group
	for i, input := range inputs {
		lock := input.Output.Lock
		if !config.Matches(lock) {
			continue
		}

		var found *group
		for _, g := range groups {
			if g.lock.Equal(lock) {
				found = g
				break
			}
		}
		if found == nil {
			found = &group{lock: lock}
			groups = append(groups, found)
		}
		found.indices = append(found.indices, i)
	}

	for _, g := range groups {
		var capacities []uint64
		for _, index := range g.indices {
			capacities = append(capacities, inputs[index].Output.Capacity)
		}
		want := Message(g.lock, capacities, tx.Outputs)

		first := g.indices[0]
		if first >= len(tx.Witnesses) {
			return errors.Wrapf(ErrWrongWitness, "missing witness %d", first)
		}
		args, err := ckb.DeserializeWitnessArgs(tx.Witnesses[first])
		if err != nil {
			return errors.Wrap(ErrWrongWitness, err.Error())
		}
		if !bytes.Equal(args.Lock, want) {
			return errors.Wrapf(ErrWrongWitness, "input %d : got %x, want %x", first, args.Lock,
				want)
		}
	}

	return nil
}
