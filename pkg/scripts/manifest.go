package scripts

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/tokenized/ckb-examples/pkg/ckb"
	"github.com/tokenized/ckb-examples/pkg/storage"

	"github.com/pkg/errors"
)

const (
	// DevEnvironment is the manifest key of a local dev chain.
	DevEnvironment = "ckb_dev"
)

var (
	// ErrEnvironmentNotFound is returned when the manifest has no entry for an environment.
	ErrEnvironmentNotFound = errors.New("Environment not found")

	// ErrSystemCellNotFound is returned when no system cell has a matching path.
	ErrSystemCellNotFound = errors.New("System cell not found")
)

// Manifest is the output of `ckb list-hashes -f json`, keyed by environment name.
type Manifest map[string]Environment

// Environment holds the genesis cells of one chain.
type Environment struct {
	SpecHash    string       `json:"spec_hash"`
	Genesis     string       `json:"genesis"`
	Cellbase    string       `json:"cellbase"`
	SystemCells []SystemCell `json:"system_cells"`
	DepGroups   []DepGroup   `json:"dep_groups"`
}

// SystemCell is a cell holding script code deployed in the genesis block.
type SystemCell struct {
	Path     string    `json:"path"`
	TxHash   ckb.Hash  `json:"tx_hash"`
	Index    uint32    `json:"index"`
	DataHash ckb.Hash  `json:"data_hash"`
	TypeHash *ckb.Hash `json:"type_hash,omitempty"`
}

// DepGroup is a genesis cell listing other cells to load together as one cell dep.
type DepGroup struct {
	TxHash        ckb.Hash `json:"tx_hash"`
	Index         uint32   `json:"index"`
	IncludedCells []string `json:"included_cells"`
}

// ParseManifest parses manifest json.
func ParseManifest(data []byte) (Manifest, error) {
	var result Manifest
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrap(err, "unmarshal manifest")
	}
	return result, nil
}

// LoadManifest reads and parses the manifest stored at key.
func LoadManifest(ctx context.Context, store storage.Storage, key string) (Manifest, error) {
	data, err := store.Read(ctx, key)
	if err != nil {
		return nil, errors.Wrapf(err, "read manifest %s", key)
	}
	return ParseManifest(data)
}

// Environment returns the named environment.
func (m Manifest) Environment(name string) (Environment, error) {
	env, exists := m[name]
	if !exists {
		return Environment{}, errors.Wrap(ErrEnvironmentNotFound, name)
	}
	return env, nil
}

// FindSystemCell returns the first system cell whose path ends with suffix.
func (e Environment) FindSystemCell(suffix string) (SystemCell, error) {
	for _, cell := range e.SystemCells {
		if strings.HasSuffix(cell.Path, suffix) {
			return cell, nil
		}
	}
	return SystemCell{}, errors.Wrap(ErrSystemCellNotFound, suffix)
}

// BundledCellPath returns the path suffix of a system cell bundled with the node, as listed
// by `ckb list-hashes`.
func BundledCellPath(name string) string {
	return "specs/cells/" + name + ")"
}

// CodeHash returns the hash used to reference the cell's code from a script with hash type
// "type", or the data hash when the cell has no type script.
func (c SystemCell) CodeHash() (ckb.Hash, ckb.ScriptHashType) {
	if c.TypeHash != nil {
		return *c.TypeHash, ckb.HashTypeType
	}
	return c.DataHash, ckb.HashTypeData1
}
