package scripts

import (
	"fmt"

	"github.com/tokenized/ckb-examples/pkg/ckb"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

const (
	Secp256k1Blake160         = "SECP256K1_BLAKE160"
	Secp256k1Blake160Multisig = "SECP256K1_BLAKE160_MULTISIG"
	DAO                       = "DAO"

	// DepTypeCode and DepTypeDepGroup are the DEP_TYPE values of a script config.
	DepTypeCode     = "code"
	DepTypeDepGroup = "depGroup"
)

var (
	// ErrScriptNotConfigured is returned when a script name has no deployment config.
	ErrScriptNotConfigured = errors.New("Script not configured")

	// ErrInvalidManifest is returned when a manifest is missing cells a config needs.
	ErrInvalidManifest = errors.New("Invalid manifest")

	// ErrNoShortID is returned when a short address is requested for a script without one.
	ErrNoShortID = errors.New("Script has no short id")

	// Code hashes of the genesis scripts. They are the type hashes of the genesis cells, which
	// are the same on every chain built from the bundled specs.
	secp256k1Blake160CodeHash = mustHash(
		"0x9bd7e06f3ecf4be0f2fcd2188b23f1b9fcc88e5d4b65a8637b17723bbda3cce8")
	secp256k1Blake160MultisigCodeHash = mustHash(
		"0x5c5069eb0857efc65e1bca0c07df34c31663b3622fd3876c876320fc9634e2a8")
	daoCodeHash = mustHash(
		"0x82d76d1b75fe2fd9a27dfbaa65a039221a380d76c926f378d3f81cf3e7e13f2e")
)

func mustHash(s string) ckb.Hash {
	h, err := ckb.HexToHash(s)
	if err != nil {
		panic(err)
	}
	return h
}

// ScriptConfig is where a script's code is deployed and how to reference it.
type ScriptConfig struct {
	CodeHash ckb.Hash           `json:"CODE_HASH"`
	HashType ckb.ScriptHashType `json:"HASH_TYPE"`
	TxHash   ckb.Hash           `json:"TX_HASH"`
	Index    string             `json:"INDEX"`
	DepType  string             `json:"DEP_TYPE"`
	ShortID  *int               `json:"SHORT_ID,omitempty"`
}

// CellDep returns the cell dep that loads the script's code.
func (c ScriptConfig) CellDep() (ckb.CellDep, error) {
	index, err := hexutil.DecodeUint64(c.Index)
	if err != nil {
		return ckb.CellDep{}, errors.Wrapf(err, "index %s", c.Index)
	}
	if index > 0xffffffff {
		return ckb.CellDep{}, fmt.Errorf("Index overflows uint32 : %s", c.Index)
	}

	var depType ckb.DepType
	switch c.DepType {
	case DepTypeCode:
		depType = ckb.DepTypeCode
	case DepTypeDepGroup:
		depType = ckb.DepTypeDepGroup
	default:
		return ckb.CellDep{}, fmt.Errorf("Unknown dep type : %s", c.DepType)
	}

	return ckb.CellDep{
		OutPoint: ckb.OutPoint{TxHash: c.TxHash, Index: uint32(index)},
		DepType:  depType,
	}, nil
}

// Script returns a script running this code with args.
func (c ScriptConfig) Script(args []byte) ckb.Script {
	return ckb.Script{
		CodeHash: c.CodeHash,
		HashType: c.HashType,
		Args:     append([]byte{}, args...),
	}
}

// Matches returns true when the script runs this code, whatever its args.
func (c ScriptConfig) Matches(script ckb.Script) bool {
	return script.CodeHash == c.CodeHash && script.HashType == c.HashType
}

// Config maps script names to their deployments on one chain.
type Config struct {
	Prefix  string                  `json:"PREFIX"`
	Scripts map[string]ScriptConfig `json:"SCRIPTS"`
}

// Script returns the named script's config.
func (c Config) Script(name string) (ScriptConfig, error) {
	script, exists := c.Scripts[name]
	if !exists {
		return ScriptConfig{}, errors.Wrap(ErrScriptNotConfigured, name)
	}
	return script, nil
}

// WithScript returns a copy of the config with the named script set.
func (c Config) WithScript(name string, script ScriptConfig) Config {
	result := Config{
		Prefix:  c.Prefix,
		Scripts: make(map[string]ScriptConfig, len(c.Scripts)+1),
	}
	for n, s := range c.Scripts {
		result.Scripts[n] = s
	}
	result.Scripts[name] = script
	return result
}

// AddSystemCell returns a copy of the config with a script whose code is the system cell with
// a path ending in pathSuffix. The cell is referenced directly with dep type code.
func (c Config) AddSystemCell(env Environment, name, pathSuffix string) (Config, error) {
	cell, err := env.FindSystemCell(pathSuffix)
	if err != nil {
		return c, err
	}

	return c.WithScript(name, systemCellScript(cell)), nil
}

func systemCellScript(cell SystemCell) ScriptConfig {
	codeHash, hashType := cell.CodeHash()
	return ScriptConfig{
		CodeHash: codeHash,
		HashType: hashType,
		TxHash:   cell.TxHash,
		Index:    hexutil.EncodeUint64(uint64(cell.Index)),
		DepType:  DepTypeCode,
	}
}

// ScriptByShortID returns the script registered with a short address code hash index.
func (c Config) ScriptByShortID(id int) (ScriptConfig, error) {
	for _, script := range c.Scripts {
		if script.ShortID != nil && *script.ShortID == id {
			return script, nil
		}
	}
	return ScriptConfig{}, errors.Wrapf(ErrScriptNotConfigured, "short id %d", id)
}

// CreateDevConfig returns the config of the genesis scripts of a dev chain. The sighash and
// multisig locks are loaded through the first two dep groups and the DAO type script directly
// from its system cell.
func CreateDevConfig(env Environment) (Config, error) {
	if len(env.DepGroups) < 2 {
		return Config{}, errors.Wrapf(ErrInvalidManifest, "%d dep groups, need 2",
			len(env.DepGroups))
	}

	sighashID := 0
	multisigID := 1
	result := Config{
		Prefix: ckb.PrefixTestnet,
		Scripts: map[string]ScriptConfig{
			Secp256k1Blake160: {
				CodeHash: systemTypeHash(env, "secp256k1_blake160_sighash_all",
					secp256k1Blake160CodeHash),
				HashType: ckb.HashTypeType,
				TxHash:   env.DepGroups[0].TxHash,
				Index:    "0x0",
				DepType:  DepTypeDepGroup,
				ShortID:  &sighashID,
			},
			Secp256k1Blake160Multisig: {
				CodeHash: systemTypeHash(env, "secp256k1_blake160_multisig_all",
					secp256k1Blake160MultisigCodeHash),
				HashType: ckb.HashTypeType,
				TxHash:   env.DepGroups[1].TxHash,
				Index:    "0x1",
				DepType:  DepTypeDepGroup,
				ShortID:  &multisigID,
			},
		},
	}

	dao, err := env.FindSystemCell(BundledCellPath("dao"))
	if err != nil {
		return Config{}, errors.Wrap(ErrInvalidManifest, "missing DAO system cell")
	}
	result.Scripts[DAO] = ScriptConfig{
		CodeHash: systemTypeHash(env, "dao", daoCodeHash),
		HashType: ckb.HashTypeType,
		TxHash:   dao.TxHash,
		Index:    hexutil.EncodeUint64(uint64(dao.Index)),
		DepType:  DepTypeCode,
	}

	return result, nil
}

func systemTypeHash(env Environment, name string, fallback ckb.Hash) ckb.Hash {
	cell, err := env.FindSystemCell(BundledCellPath(name))
	if err != nil || cell.TypeHash == nil {
		return fallback
	}
	return *cell.TypeHash
}
