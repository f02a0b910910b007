package ckb

import (
	"encoding/hex"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/pkg/errors"
)

const (
	// SignatureSize is the size of a recoverable signature in r|s|recovery id form.
	SignatureSize = 65

	// LockArgsSize is the size of the secp256k1_blake160 lock args.
	LockArgsSize = 20

	compactHeader = 27
)

// Key is a secp256k1 private key used to sign secp256k1_blake160 lock groups.
type Key struct {
	priv *btcec.PrivateKey
}

// NewKey returns a key from its 32 byte scalar.
func NewKey(b []byte) (Key, error) {
	if len(b) != 32 {
		return Key{}, errors.Errorf("Wrong private key length : %d", len(b))
	}
	priv, _ := btcec.PrivKeyFromBytes(b)
	return Key{priv: priv}, nil
}

// ParseKey parses a 0x prefixed (or bare) hex private key.
func ParseKey(s string) (Key, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return Key{}, errors.Wrap(err, "decode hex")
	}
	return NewKey(b)
}

// IsEmpty returns true when the key was never set.
func (k Key) IsEmpty() bool {
	return k.priv == nil
}

// PublicKey returns the compressed public key.
func (k Key) PublicKey() []byte {
	return k.priv.PubKey().SerializeCompressed()
}

// LockArgs returns the blake160 of the compressed public key, the args of the key's
// secp256k1_blake160 lock script.
func (k Key) LockArgs() []byte {
	return Blake160(k.PublicKey())
}

// Sign returns a recoverable signature of the 32 byte message as r|s|recovery id.
func (k Key) Sign(message []byte) ([]byte, error) {
	if len(message) != HashSize {
		return nil, errors.Errorf("Wrong message length for signing : %d", len(message))
	}

	compact := ecdsa.SignCompact(k.priv, message, true)
	if len(compact) != SignatureSize {
		return nil, errors.Errorf("Wrong compact signature length : %d", len(compact))
	}

	result := make([]byte, SignatureSize)
	copy(result, compact[1:])
	result[SignatureSize-1] = (compact[0] - compactHeader) & 0x03
	return result, nil
}

// RecoverPublicKey returns the compressed public key that produced a r|s|recovery id
// signature of message.
func RecoverPublicKey(message, signature []byte) ([]byte, error) {
	if len(signature) != SignatureSize {
		return nil, errors.Errorf("Wrong signature length : %d", len(signature))
	}
	if signature[SignatureSize-1] > 3 {
		return nil, errors.Errorf("Invalid recovery id : %d", signature[SignatureSize-1])
	}

	compact := make([]byte, SignatureSize)
	compact[0] = compactHeader + signature[SignatureSize-1] + 4 // compressed
	copy(compact[1:], signature[:SignatureSize-1])

	pub, _, err := ecdsa.RecoverCompact(compact, message)
	if err != nil {
		return nil, errors.Wrap(err, "recover")
	}
	return pub.SerializeCompressed(), nil
}
