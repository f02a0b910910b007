package scripts

import (
	"github.com/tokenized/ckb-examples/pkg/ckb"

	"github.com/pkg/errors"
)

// ParseAddress returns the lock script of an address on this config's chain. Short format
// addresses are resolved through the scripts' short ids.
func (c Config) ParseAddress(address string) (ckb.Script, error) {
	decoded, err := ckb.DecodeAddress(address)
	if err != nil {
		return ckb.Script{}, err
	}

	if decoded.Prefix != c.Prefix {
		return ckb.Script{}, errors.Wrapf(ckb.ErrInvalidAddress, "wrong prefix %s, want %s",
			decoded.Prefix, c.Prefix)
	}

	if decoded.IsFull() {
		return decoded.Script, nil
	}

	script, err := c.ScriptByShortID(int(decoded.CodeHashIndex))
	if err != nil {
		return ckb.Script{}, errors.Wrap(ckb.ErrInvalidAddress, err.Error())
	}
	return script.Script(decoded.Script.Args), nil
}

// EncodeAddress returns the full format address of a lock script on this config's chain.
func (c Config) EncodeAddress(script ckb.Script) (string, error) {
	return ckb.EncodeAddress(c.Prefix, script)
}

// ScriptAddress returns the address of the named script with args.
func (c Config) ScriptAddress(name string, args []byte) (string, error) {
	script, err := c.Script(name)
	if err != nil {
		return "", err
	}
	return c.EncodeAddress(script.Script(args))
}

// ShortScriptAddress returns the deprecated short format address of the named script with
// args. Only the well known locks have one.
func (c Config) ShortScriptAddress(name string, args []byte) (string, error) {
	script, err := c.Script(name)
	if err != nil {
		return "", err
	}
	if script.ShortID == nil {
		return "", errors.Wrap(ErrNoShortID, name)
	}
	return ckb.EncodeShortAddress(c.Prefix, byte(*script.ShortID), args)
}
