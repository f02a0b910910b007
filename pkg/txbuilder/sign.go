package txbuilder

import (
	"bytes"
	"fmt"

	"github.com/tokenized/ckb-examples/pkg/ckb"
	"github.com/tokenized/ckb-examples/pkg/scripts"

	"github.com/pkg/errors"
)

const (
	// SigningTypeWitnessArgsLock means the signature goes in the lock field of the witness
	// args at the entry's input index.
	SigningTypeWitnessArgsLock = "witness_args_lock"
)

// SigningEntry is a message to sign to authorize a group of inputs.
type SigningEntry struct {
	Index   int
	Type    string
	Message []byte
}

// Copy returns a deep copy of the entry.
func (e SigningEntry) Copy() SigningEntry {
	return SigningEntry{
		Index:   e.Index,
		Type:    e.Type,
		Message: append([]byte{}, e.Message...),
	}
}

// PrepareSigningEntries returns a skeleton with one signing entry per input lock group, in
// the order each lock first appears in the inputs. The entries replace any existing ones.
func (b *Builder) PrepareSigningEntries(skel Skeleton) (Skeleton, error) {
	var entries []SigningEntry
	for _, group := range skel.LockGroups() {
		plugin, err := b.Plugin(group.Script)
		if err != nil {
			return skel, err
		}

		message, err := plugin.SigningMessage(skel, group)
		if err != nil {
			return skel, errors.Wrapf(err, "signing message %s", group.Script)
		}

		entries = append(entries, SigningEntry{
			Index:   group.InputIndices[0],
			Type:    SigningTypeWitnessArgsLock,
			Message: message,
		})
	}

	return skel.withSigningEntries(entries), nil
}

// SealTransaction returns the transaction with each signature written to the witness of its
// signing entry. Signatures are in signing entry order.
func SealTransaction(skel Skeleton, signatures [][]byte) (*ckb.Transaction, error) {
	if len(signatures) != len(skel.signingEntries) {
		return nil, newError(ErrorCodeSignatureCount, fmt.Sprintf("%d signatures for %d entries",
			len(signatures), len(skel.signingEntries)))
	}

	tx := skel.Transaction()
	for i, entry := range skel.signingEntries {
		if entry.Type != SigningTypeWitnessArgsLock {
			return nil, fmt.Errorf("Unsupported signing entry type : %s", entry.Type)
		}
		if entry.Index >= len(tx.Witnesses) {
			return nil, fmt.Errorf("Signing entry index out of range : %d", entry.Index)
		}

		args, err := ckb.DeserializeWitnessArgs(tx.Witnesses[entry.Index])
		if err != nil {
			return nil, errors.Wrapf(err, "witness %d", entry.Index)
		}
		args.Lock = append([]byte{}, signatures[i]...)
		tx.Witnesses[entry.Index] = args.Serialize()
	}

	return tx, nil
}

// Signer signs the entries of the locks it holds keys for.
type Signer interface {
	CanSign(lock ckb.Script) bool
	Sign(entry SigningEntry) ([]byte, error)
}

// SignEntries returns a signature for each signing entry, from the first signer that can sign
// the entry's lock.
func SignEntries(skel Skeleton, signers ...Signer) ([][]byte, error) {
	result := make([][]byte, 0, len(skel.signingEntries))
	for _, entry := range skel.signingEntries {
		if entry.Index >= len(skel.inputs) {
			return nil, fmt.Errorf("Signing entry index out of range : %d", entry.Index)
		}
		lock := skel.inputs[entry.Index].Output.Lock

		var signature []byte
		for _, signer := range signers {
			if !signer.CanSign(lock) {
				continue
			}

			var err error
			signature, err = signer.Sign(entry)
			if err != nil {
				return nil, errors.Wrapf(err, "sign entry %d", entry.Index)
			}
			break
		}

		if signature == nil {
			return nil, fmt.Errorf("No signer for lock : %s", lock)
		}
		result = append(result, signature)
	}

	return result, nil
}

// KeySigner signs secp256k1_blake160 entries for the lock of one key.
type KeySigner struct {
	key    ckb.Key
	config scripts.ScriptConfig
}

// NewKeySigner returns a signer for the secp256k1_blake160 lock of key.
func NewKeySigner(key ckb.Key, config scripts.ScriptConfig) *KeySigner {
	return &KeySigner{key: key, config: config}
}

func (s *KeySigner) CanSign(lock ckb.Script) bool {
	return s.config.Matches(lock) && bytes.Equal(lock.Args, s.key.LockArgs())
}

func (s *KeySigner) Sign(entry SigningEntry) ([]byte, error) {
	return s.key.Sign(entry.Message)
}
