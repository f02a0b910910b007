package ckb

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"

	"github.com/minio/blake2b-simd"
	"github.com/pkg/errors"
)

// HashSize is the size of a ckbhash digest.
const HashSize = 32

var personalization = []byte("ckb-default-hash")

// Hash is a 32 byte ckbhash digest. It is used for transaction hashes, block hashes, script
// code hashes and type hashes.
type Hash [HashSize]byte

// NewHash returns a hash from a 32 byte slice.
func NewHash(b []byte) (Hash, error) {
	var result Hash
	if len(b) != HashSize {
		return result, fmt.Errorf("Wrong byte length for hash : %d", len(b))
	}
	copy(result[:], b)
	return result, nil
}

// HexToHash parses a 0x prefixed (or bare) hex string into a hash.
func HexToHash(s string) (Hash, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return Hash{}, errors.Wrap(err, "decode hex")
	}
	return NewHash(b)
}

// Bytes returns the data for the hash.
func (h Hash) Bytes() []byte {
	return h[:]
}

// Equal returns true if the parameter has the same value.
func (h Hash) Equal(o Hash) bool {
	return bytes.Equal(h[:], o[:])
}

// IsZero returns true when every byte of the hash is zero.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// String returns the 0x prefixed hex form used by the node.
func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// MarshalText converts to the 0x prefixed hex text form.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText converts from 0x prefixed hex text.
func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := HexToHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// Hasher incrementally computes a ckbhash. It is blake2b-256 with the "ckb-default-hash"
// personalization.
type Hasher struct {
	hash.Hash
}

// NewHasher returns a new ckbhash hasher.
func NewHasher() *Hasher {
	h, err := blake2b.New(&blake2b.Config{Size: HashSize, Person: personalization})
	if err != nil {
		// Only fails on invalid config sizes, which are constant here.
		panic(errors.Wrap(err, "create blake2b"))
	}
	return &Hasher{Hash: h}
}

// WriteLengthPrefixed writes the little endian 64 bit length of b followed by b, the framing
// used when hashing witnesses for signing.
func (h *Hasher) WriteLengthPrefixed(b []byte) {
	var size [8]byte
	binary.LittleEndian.PutUint64(size[:], uint64(len(b)))
	h.Write(size[:])
	h.Write(b)
}

// Finalize returns the digest of everything written so far.
func (h *Hasher) Finalize() Hash {
	var result Hash
	copy(result[:], h.Sum(nil))
	return result
}

// Blake256 returns the ckbhash of data.
func Blake256(data []byte) Hash {
	h := NewHasher()
	h.Write(data)
	return h.Finalize()
}

// Blake160 returns the first 20 bytes of the ckbhash of data. It is the lock argument format
// of the secp256k1 lock scripts.
func Blake160(data []byte) []byte {
	h := Blake256(data)
	result := make([]byte, 20)
	copy(result, h[:20])
	return result
}
