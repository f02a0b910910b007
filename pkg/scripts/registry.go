package scripts

import (
	"sync"

	"github.com/pkg/errors"
)

var (
	// ErrNotInitialized is returned when a registry is read before Initialize.
	ErrNotInitialized = errors.New("Registry not initialized")

	// ErrAlreadyInitialized is returned by a second call to Initialize.
	ErrAlreadyInitialized = errors.New("Registry already initialized")
)

// Registry holds the script config of the chain a process works with. It is initialized once
// at startup and then read by the builder and lock script plugins. It is safe for concurrent
// use.
type Registry struct {
	config *Config
	lock   sync.RWMutex
}

// NewRegistry returns an uninitialized registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// NewInitializedRegistry returns a registry holding config.
func NewInitializedRegistry(config Config) *Registry {
	result := &Registry{}
	result.config = &config
	return result
}

// Initialize sets the config. It fails with ErrAlreadyInitialized when called again, the
// first config is kept.
func (r *Registry) Initialize(config Config) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.config != nil {
		return ErrAlreadyInitialized
	}

	r.config = &config
	return nil
}

// Get returns the config.
func (r *Registry) Get() (Config, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if r.config == nil {
		return Config{}, ErrNotInitialized
	}
	return *r.config, nil
}

// Script returns the named script's config.
func (r *Registry) Script(name string) (ScriptConfig, error) {
	config, err := r.Get()
	if err != nil {
		return ScriptConfig{}, err
	}
	return config.Script(name)
}

// Extend replaces the config with a copy holding an additional script. It is how custom
// scripts deployed after startup are registered.
func (r *Registry) Extend(name string, script ScriptConfig) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.config == nil {
		return ErrNotInitialized
	}

	config := r.config.WithScript(name, script)
	r.config = &config
	return nil
}
