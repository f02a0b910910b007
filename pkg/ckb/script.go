package ckb

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ScriptHashType specifies how a script's code hash is matched against cell deps.
type ScriptHashType string

const (
	HashTypeData  ScriptHashType = "data"
	HashTypeType  ScriptHashType = "type"
	HashTypeData1 ScriptHashType = "data1"
	HashTypeData2 ScriptHashType = "data2"
)

// Byte returns the molecule encoding of the hash type.
func (t ScriptHashType) Byte() (byte, error) {
	switch t {
	case HashTypeData:
		return 0x00, nil
	case HashTypeType:
		return 0x01, nil
	case HashTypeData1:
		return 0x02, nil
	case HashTypeData2:
		return 0x04, nil
	}
	return 0, fmt.Errorf("Unknown script hash type : %s", string(t))
}

// HashTypeFromByte is the inverse of ScriptHashType.Byte.
func HashTypeFromByte(b byte) (ScriptHashType, error) {
	switch b {
	case 0x00:
		return HashTypeData, nil
	case 0x01:
		return HashTypeType, nil
	case 0x02:
		return HashTypeData1, nil
	case 0x04:
		return HashTypeData2, nil
	}
	return "", fmt.Errorf("Unknown script hash type byte : %d", b)
}

// Script identifies a lock or type program and its arguments.
type Script struct {
	CodeHash Hash
	HashType ScriptHashType
	Args     []byte
}

// Serialize returns the molecule encoding of the script.
func (s Script) Serialize() ([]byte, error) {
	hashType, err := s.HashType.Byte()
	if err != nil {
		return nil, err
	}
	return packTable([][]byte{
		s.CodeHash[:],
		{hashType},
		packBytes(s.Args),
	}), nil
}

// Hash returns the script hash, the ckbhash of the serialized script.
func (s Script) Hash() (Hash, error) {
	b, err := s.Serialize()
	if err != nil {
		return Hash{}, err
	}
	return Blake256(b), nil
}

// Equal returns true if both scripts serialize to the same bytes. Nil and empty args are
// considered the same, as they are on chain.
func (s Script) Equal(o Script) bool {
	a, err := s.Serialize()
	if err != nil {
		return false
	}
	b, err := o.Serialize()
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// Occupied returns the number of bytes the script takes in a cell for the capacity rule.
func (s Script) Occupied() uint64 {
	return uint64(HashSize + 1 + len(s.Args))
}

// Copy returns a deep copy of the script.
func (s Script) Copy() Script {
	result := s
	if s.Args != nil {
		result.Args = append([]byte{}, s.Args...)
	}
	return result
}

func (s Script) String() string {
	return fmt.Sprintf("{code_hash:%s hash_type:%s args:%s}", s.CodeHash, s.HashType,
		hexutil.Encode(s.Args))
}

type jsonScript struct {
	CodeHash Hash           `json:"code_hash"`
	HashType ScriptHashType `json:"hash_type"`
	Args     hexutil.Bytes  `json:"args"`
}

// MarshalJSON converts to the node's json form.
func (s Script) MarshalJSON() ([]byte, error) {
	args := s.Args
	if args == nil {
		args = []byte{}
	}
	return json.Marshal(jsonScript{
		CodeHash: s.CodeHash,
		HashType: s.HashType,
		Args:     args,
	})
}

// UnmarshalJSON converts from the node's json form.
func (s *Script) UnmarshalJSON(data []byte) error {
	var js jsonScript
	if err := json.Unmarshal(data, &js); err != nil {
		return err
	}
	if _, err := js.HashType.Byte(); err != nil {
		return err
	}
	s.CodeHash = js.CodeHash
	s.HashType = js.HashType
	s.Args = []byte(js.Args)
	return nil
}
