package ckb

import (
	"github.com/pkg/errors"
)

// WitnessArgs is the conventional witness layout. Lock scripts read their signature from
// Lock. A nil field is encoded as none, a non-nil empty field as an empty byte vector.
type WitnessArgs struct {
	Lock       []byte
	InputType  []byte
	OutputType []byte
}

func packBytesOpt(b []byte) []byte {
	if b == nil {
		return nil
	}
	return packBytes(b)
}

func unpackBytesOpt(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	return unpackBytes(data)
}

// Serialize returns the molecule table encoding.
func (w WitnessArgs) Serialize() []byte {
	return packTable([][]byte{
		packBytesOpt(w.Lock),
		packBytesOpt(w.InputType),
		packBytesOpt(w.OutputType),
	})
}

// DeserializeWitnessArgs parses a witness. An empty witness yields empty args.
func DeserializeWitnessArgs(data []byte) (WitnessArgs, error) {
	var result WitnessArgs
	if len(data) == 0 {
		return result, nil
	}

	fields, err := unpackTable(data)
	if err != nil {
		return result, errors.Wrap(err, "witness args table")
	}
	if len(fields) < 3 {
		return result, errors.Errorf("Witness args field count : %d", len(fields))
	}

	if result.Lock, err = unpackBytesOpt(fields[0]); err != nil {
		return result, errors.Wrap(err, "lock")
	}
	if result.InputType, err = unpackBytesOpt(fields[1]); err != nil {
		return result, errors.Wrap(err, "input type")
	}
	if result.OutputType, err = unpackBytesOpt(fields[2]); err != nil {
		return result, errors.Wrap(err, "output type")
	}
	return result, nil
}
