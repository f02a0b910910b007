package ckb

import (
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/pkg/errors"
)

const (
	// PrefixMainnet is the human readable part of mainnet addresses.
	PrefixMainnet = "ckb"

	// PrefixTestnet is the human readable part of testnet and dev chain addresses.
	PrefixTestnet = "ckt"
)

// AddressFormat is the first byte of an address payload.
type AddressFormat byte

const (
	// AddressFormatFull encodes code hash, hash type and args, checksummed with bech32m.
	AddressFormatFull = AddressFormat(0x00)

	// AddressFormatShort encodes an index into the well known lock scripts and the args.
	// Deprecated on chain, still produced by older tooling.
	AddressFormatShort = AddressFormat(0x01)

	// AddressFormatFullData and AddressFormatFullType are the deprecated bech32 full formats
	// with the hash type implied by the format byte.
	AddressFormatFullData = AddressFormat(0x02)
	AddressFormatFullType = AddressFormat(0x04)
)

var (
	// ErrInvalidAddress is returned when an address can't be decoded.
	ErrInvalidAddress = errors.New("Invalid address")
)

// Address is a decoded address. Script is set for the full formats. For the short format
// only CodeHashIndex and Script.Args are set and the code hash must be resolved against the
// chain's script configuration.
type Address struct {
	Prefix        string
	Format        AddressFormat
	Script        Script
	CodeHashIndex byte
}

// EncodeAddress returns the full format address of a lock script.
func EncodeAddress(prefix string, script Script) (string, error) {
	hashType, err := script.HashType.Byte()
	if err != nil {
		return "", errors.Wrap(err, "hash type")
	}

	payload := make([]byte, 0, 2+HashSize+len(script.Args))
	payload = append(payload, byte(AddressFormatFull))
	payload = append(payload, script.CodeHash[:]...)
	payload = append(payload, hashType)
	payload = append(payload, script.Args...)

	converted, err := bech32.ConvertBits(payload, 8, 5, true)
	if err != nil {
		return "", errors.Wrap(err, "convert bits")
	}

	return bech32.EncodeM(prefix, converted)
}

// EncodeShortAddress returns the deprecated short format address for args under the well
// known lock script at codeHashIndex.
func EncodeShortAddress(prefix string, codeHashIndex byte, args []byte) (string, error) {
	payload := append([]byte{byte(AddressFormatShort), codeHashIndex}, args...)

	converted, err := bech32.ConvertBits(payload, 8, 5, true)
	if err != nil {
		return "", errors.Wrap(err, "convert bits")
	}

	return bech32.Encode(prefix, converted)
}

// DecodeAddress parses an address in any of the known formats.
func DecodeAddress(s string) (*Address, error) {
	prefix, data, err := bech32.DecodeNoLimit(s)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidAddress, err.Error())
	}

	payload, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidAddress, err.Error())
	}
	if len(payload) == 0 {
		return nil, errors.Wrap(ErrInvalidAddress, "empty payload")
	}

	result := &Address{
		Prefix: prefix,
		Format: AddressFormat(payload[0]),
	}

	switch result.Format {
	case AddressFormatFull:
		if len(payload) < 2+HashSize {
			return nil, errors.Wrapf(ErrInvalidAddress, "full payload too short : %d",
				len(payload))
		}

		// Full format must be checksummed with bech32m, which is checked by re-encoding.
		reencoded, err := bech32.EncodeM(prefix, data)
		if err != nil {
			return nil, errors.Wrap(ErrInvalidAddress, err.Error())
		}
		if reencoded != strings.ToLower(s) {
			return nil, errors.Wrap(ErrInvalidAddress, "full format requires bech32m")
		}

		copy(result.Script.CodeHash[:], payload[1:1+HashSize])
		result.Script.HashType, err = HashTypeFromByte(payload[1+HashSize])
		if err != nil {
			return nil, errors.Wrap(ErrInvalidAddress, err.Error())
		}
		result.Script.Args = append([]byte{}, payload[2+HashSize:]...)

	case AddressFormatFullData, AddressFormatFullType:
		if len(payload) < 1+HashSize {
			return nil, errors.Wrapf(ErrInvalidAddress, "full payload too short : %d",
				len(payload))
		}
		copy(result.Script.CodeHash[:], payload[1:1+HashSize])
		if result.Format == AddressFormatFullData {
			result.Script.HashType = HashTypeData
		} else {
			result.Script.HashType = HashTypeType
		}
		result.Script.Args = append([]byte{}, payload[1+HashSize:]...)

	case AddressFormatShort:
		if len(payload) < 2 {
			return nil, errors.Wrap(ErrInvalidAddress, "short payload too short")
		}
		result.CodeHashIndex = payload[1]
		result.Script.Args = append([]byte{}, payload[2:]...)

	default:
		return nil, errors.Wrapf(ErrInvalidAddress, "unknown format : 0x%02x", payload[0])
	}

	return result, nil
}

// IsFull returns true when the address carries its complete script.
func (a Address) IsFull() bool {
	return a.Format != AddressFormatShort
}
