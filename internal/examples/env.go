package examples

import (
	"context"

	"github.com/tokenized/ckb-examples/internal/platform/config"
	"github.com/tokenized/ckb-examples/internal/platform/logger"
	"github.com/tokenized/ckb-examples/pkg/capacitydiff"
	"github.com/tokenized/ckb-examples/pkg/ckb"
	"github.com/tokenized/ckb-examples/pkg/indexer"
	"github.com/tokenized/ckb-examples/pkg/miner"
	"github.com/tokenized/ckb-examples/pkg/rpcnode"
	"github.com/tokenized/ckb-examples/pkg/scripts"
	"github.com/tokenized/ckb-examples/pkg/storage"
	"github.com/tokenized/ckb-examples/pkg/txbuilder"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

const (
	SubSystem = "Examples" // For logger
)

// Env holds everything the example flows need to talk to a dev chain.
type Env struct {
	Config   config.Config
	Registry *scripts.Registry
	Node     *rpcnode.RPCNode
	Provider indexer.CellProvider
	Builder  *txbuilder.Builder
	Miner    *miner.Miner

	// Archive receives a JSON copy of every transaction the flows send.
	Archive storage.Storage

	MinerKey     ckb.Key
	MinerLockArg []byte
	AliceLockArg []byte

	// HasCustomScript is true when the manifest has the capacity diff script deployed.
	HasCustomScript bool
}

// NewEnv connects to the node in cfg, reads the manifest from the hashes storage and
// registers the scripts it deploys.
func NewEnv(ctx context.Context, cfg *config.Config) (*Env, error) {
	hashes := storage.CreateStorage(StorageConfig(cfg, cfg.Hashes.Bucket, cfg.Hashes.Root))
	archive := storage.CreateStorage(StorageConfig(cfg, cfg.Archive.Bucket, cfg.Archive.Root))
	return NewEnvWithStorage(ctx, cfg, hashes, archive)
}

// StorageConfig returns the storage config for a bucket with the AWS settings of cfg.
func StorageConfig(cfg *config.Config, bucket, root string) storage.Config {
	result := storage.NewConfig(bucket, root)
	result.Region = cfg.AWS.Region
	result.AccessKey = cfg.AWS.AccessKeyID
	result.Secret = cfg.AWS.SecretAccessKey
	if cfg.AWS.MaxRetries > 0 {
		result.MaxRetries = cfg.AWS.MaxRetries
	}
	return result
}

// NewEnvWithStorage is NewEnv with the manifest and archive storage provided.
func NewEnvWithStorage(ctx context.Context, cfg *config.Config, hashes,
	archive storage.Storage) (*Env, error) {

	ctx = logger.ContextWithLogSubSystem(ctx, SubSystem)

	registry, err := LoadRegistry(ctx, hashes, cfg.Hashes.Key, cfg.Chain.Environment)
	if err != nil {
		return nil, errors.Wrap(err, "registry")
	}

	result := &Env{
		Config:   *cfg,
		Registry: registry,
		Archive:  archive,
	}

	if _, err := registry.Script(capacitydiff.ScriptName); err == nil {
		result.HasCustomScript = true
	} else {
		logger.Warn(ctx, "Capacity diff script not deployed : %s", err)
	}

	if len(cfg.Accounts.MinerPrivateKey) > 0 {
		result.MinerKey, err = ckb.ParseKey(cfg.Accounts.MinerPrivateKey)
		if err != nil {
			return nil, errors.Wrap(err, "miner key")
		}
	}

	if len(cfg.Accounts.MinerLockArg) > 0 {
		result.MinerLockArg, err = hexutil.Decode(cfg.Accounts.MinerLockArg)
		if err != nil {
			return nil, errors.Wrap(err, "miner lock arg")
		}
	} else if !result.MinerKey.IsEmpty() {
		result.MinerLockArg = result.MinerKey.LockArgs()
	}

	if len(cfg.Accounts.AliceLockArg) > 0 {
		result.AliceLockArg, err = hexutil.Decode(cfg.Accounts.AliceLockArg)
		if err != nil {
			return nil, errors.Wrap(err, "alice lock arg")
		}
	}

	result.Node, err = rpcnode.NewNode(ctx, rpcnode.NewConfig(cfg.Node.URL))
	if err != nil {
		return nil, errors.Wrap(err, "node")
	}
	result.Provider = indexer.NewRPCProvider(result.Node)

	result.Builder = txbuilder.NewBuilder(registry, txbuilder.NewSecp256k1Blake160(registry))
	if result.HasCustomScript {
		result.Builder.Register(capacitydiff.NewPlugin(registry))
	}

	result.Miner = miner.NewMiner(result.Node, miner.Config{
		PollInterval: cfg.Miner.PollInterval,
		Timeout:      cfg.Miner.Timeout,
	})

	logger.Info(ctx, "Connected to %s", rpcnode.NewConfig(cfg.Node.URL))
	return result, nil
}

// LoadRegistry returns a registry holding the dev config of the manifest environment, with
// the capacity diff script added when the environment deploys it.
func LoadRegistry(ctx context.Context, hashes storage.Storage, key,
	environment string) (*scripts.Registry, error) {

	manifest, err := scripts.LoadManifest(ctx, hashes, key)
	if err != nil {
		return nil, errors.Wrap(err, "manifest")
	}

	env, err := manifest.Environment(environment)
	if err != nil {
		return nil, err
	}

	cfg, err := scripts.CreateDevConfig(env)
	if err != nil {
		return nil, errors.Wrap(err, "dev config")
	}

	registry := scripts.NewRegistry()
	if err := registry.Initialize(cfg); err != nil {
		return nil, err
	}

	if err := capacitydiff.Register(registry, env); err != nil &&
		errors.Cause(err) != scripts.ErrSystemCellNotFound {
		return nil, errors.Wrap(err, "capacity diff")
	}

	return registry, nil
}

// Close releases the node connection.
func (e *Env) Close() {
	if e.Node != nil {
		e.Node.Close()
	}
}

// NewSkeleton returns an empty skeleton collecting cells from the node's indexer.
func (e *Env) NewSkeleton() txbuilder.Skeleton {
	return txbuilder.CreateSkeleton(e.Provider)
}
