package txbuilder

import (
	"context"

	"github.com/tokenized/ckb-examples/pkg/ckb"
	"github.com/tokenized/ckb-examples/pkg/indexer"
	"github.com/tokenized/ckb-examples/pkg/scripts"

	"github.com/pkg/errors"
)

// Secp256k1Blake160 is the plugin of the default lock, secp256k1 signatures over the whole
// transaction with blake160 public key hash args.
type Secp256k1Blake160 struct {
	registry *scripts.Registry
}

// NewSecp256k1Blake160 returns the default lock plugin using the deployment in registry.
func NewSecp256k1Blake160(registry *scripts.Registry) *Secp256k1Blake160 {
	return &Secp256k1Blake160{registry: registry}
}

func (p *Secp256k1Blake160) Config() (scripts.ScriptConfig, error) {
	return p.registry.Script(scripts.Secp256k1Blake160)
}

func (p *Secp256k1Blake160) CellCollector(ctx context.Context, from ckb.Script,
	provider indexer.CellProvider, query indexer.QueryOptions) (indexer.CellCollector, error) {

	config, err := p.Config()
	if err != nil {
		return nil, err
	}
	return CollectorFor(ctx, config, from, provider, query)
}

func (p *Secp256k1Blake160) SetupInputCell(ctx context.Context, skel Skeleton, cell ckb.Cell,
	options SetupOptions) (Skeleton, error) {

	config, err := p.Config()
	if err != nil {
		return skel, err
	}
	return SetupScriptInput(skel, config, cell, options, make([]byte, ckb.SignatureSize))
}

// SigningMessage returns the sighash all message of the group.
func (p *Secp256k1Blake160) SigningMessage(skel Skeleton, group ScriptGroup) ([]byte, error) {
	hash, err := SighashAllMessage(skel.Transaction(), group.InputIndices)
	if err != nil {
		return nil, err
	}
	return hash.Bytes(), nil
}

// SighashAllMessage returns the message a secp256k1 lock group signs. It hashes the
// transaction hash, then each group witness and each witness beyond the inputs, each prefixed
// with its little endian 64 bit length. The lock of the group's first witness is replaced with
// zeros, so the message is the same before and after the signature is written.
func SighashAllMessage(tx *ckb.Transaction, inputIndices []int) (ckb.Hash, error) {
	if len(inputIndices) == 0 {
		return ckb.Hash{}, errors.New("Empty script group")
	}

	txHash, err := tx.Hash()
	if err != nil {
		return ckb.Hash{}, errors.Wrap(err, "tx hash")
	}

	witness := func(index int) []byte {
		if index < len(tx.Witnesses) {
			return tx.Witnesses[index]
		}
		return nil
	}

	first, err := ckb.DeserializeWitnessArgs(witness(inputIndices[0]))
	if err != nil {
		return ckb.Hash{}, errors.Wrap(err, "first witness")
	}
	first.Lock = make([]byte, ckb.SignatureSize)

	hasher := ckb.NewHasher()
	hasher.Write(txHash[:])
	hasher.WriteLengthPrefixed(first.Serialize())
	for _, index := range inputIndices[1:] {
		hasher.WriteLengthPrefixed(witness(index))
	}
	for i := len(tx.Inputs); i < len(tx.Witnesses); i++ {
		hasher.WriteLengthPrefixed(tx.Witnesses[i])
	}

	return hasher.Finalize(), nil
}
