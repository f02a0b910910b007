package txbuilder

import (
	"context"
	"sync"

	"github.com/tokenized/ckb-examples/pkg/ckb"
	"github.com/tokenized/ckb-examples/pkg/indexer"
	"github.com/tokenized/ckb-examples/pkg/scripts"

	"github.com/pkg/errors"
)

// LockScriptPlugin lets the builder spend cells locked by one lock script without knowing the
// script's rules. Plugins are matched to cells by the code hash and hash type of their
// script's deployment config.
type LockScriptPlugin interface {
	// Config returns the deployment of the plugin's script. It fails with
	// scripts.ErrScriptNotConfigured when the chain has no such script.
	Config() (scripts.ScriptConfig, error)

	// CellCollector returns a collector of the cells locked by from. It returns an empty
	// collector when from is not the plugin's script.
	CellCollector(ctx context.Context, from ckb.Script, provider indexer.CellProvider,
		query indexer.QueryOptions) (indexer.CellCollector, error)

	// SetupInputCell adds cell as an input along with a self transfer output, the script's
	// cell dep and a lock placeholder in the witness of the first input of the lock.
	SetupInputCell(ctx context.Context, skel Skeleton, cell ckb.Cell,
		options SetupOptions) (Skeleton, error)

	// SigningMessage returns the message that authorizes spending the group's inputs.
	SigningMessage(skel Skeleton, group ScriptGroup) ([]byte, error)
}

// Builder composes skeleton transforms using registered lock script plugins. It is safe for
// concurrent use.
type Builder struct {
	registry *scripts.Registry
	plugins  []LockScriptPlugin
	lock     sync.RWMutex
}

// NewBuilder returns a builder resolving addresses and scripts through registry.
func NewBuilder(registry *scripts.Registry, plugins ...LockScriptPlugin) *Builder {
	return &Builder{
		registry: registry,
		plugins:  append([]LockScriptPlugin(nil), plugins...),
	}
}

// Register adds a plugin. Plugins registered first are consulted first.
func (b *Builder) Register(plugin LockScriptPlugin) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.plugins = append(b.plugins, plugin)
}

// Registry returns the script registry the builder resolves with.
func (b *Builder) Registry() *scripts.Registry {
	return b.registry
}

func (b *Builder) registeredPlugins() []LockScriptPlugin {
	b.lock.RLock()
	defer b.lock.RUnlock()

	return append([]LockScriptPlugin(nil), b.plugins...)
}

// Plugin returns the plugin of a lock script.
func (b *Builder) Plugin(lock ckb.Script) (LockScriptPlugin, error) {
	for _, plugin := range b.registeredPlugins() {
		config, err := plugin.Config()
		if err != nil {
			return nil, errors.Wrap(err, "plugin config")
		}
		if config.Matches(lock) {
			return plugin, nil
		}
	}

	return nil, newError(ErrorCodeUnknownLockScript, lock.String())
}

// CollectorFor returns the collector of the plugin owning from, or an empty collector when
// the plugin's script config doesn't match. It is the collection step plugins share.
func CollectorFor(ctx context.Context, config scripts.ScriptConfig, from ckb.Script,
	provider indexer.CellProvider, query indexer.QueryOptions) (indexer.CellCollector, error) {

	if !config.Matches(from) {
		return indexer.EmptyCollector{}, nil
	}

	if provider == nil {
		return nil, newError(ErrorCodeMissingCellProvider, "")
	}

	lock := from.Copy()
	query.Lock = &lock
	if query.Type == nil {
		query.EmptyType = true
	}

	collector, err := provider.Collector(query)
	if err != nil {
		return nil, errors.Wrap(err, "collector")
	}
	return collector, nil
}

// SetupScriptInput is the input setup plugins share. It runs SetupCommon, adds the script's
// cell dep once and, for the first input of the lock, sets the witness lock placeholder.
func SetupScriptInput(skel Skeleton, config scripts.ScriptConfig, cell ckb.Cell,
	options SetupOptions, placeholder []byte) (Skeleton, error) {

	if !config.Matches(cell.Output.Lock) {
		return skel, errors.Errorf("Cell lock doesn't match script : %s", cell.Output.Lock)
	}

	dep, err := config.CellDep()
	if err != nil {
		return skel, errors.Wrap(err, "cell dep")
	}

	first := true
	for _, input := range skel.inputs {
		if input.Output.Lock.Equal(cell.Output.Lock) {
			first = false
			break
		}
	}

	result := SetupCommon(skel, cell, options)
	result = result.AddCellDep(dep)

	if first {
		result, err = SetLockPlaceholder(result, cell.Output.Lock, placeholder)
		if err != nil {
			return skel, errors.Wrap(err, "lock placeholder")
		}
	}

	return result, nil
}
