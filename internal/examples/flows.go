package examples

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/tokenized/ckb-examples/internal/platform/logger"
	"github.com/tokenized/ckb-examples/pkg/capacitydiff"
	"github.com/tokenized/ckb-examples/pkg/ckb"
	"github.com/tokenized/ckb-examples/pkg/rpcnode"
	"github.com/tokenized/ckb-examples/pkg/scripts"
	"github.com/tokenized/ckb-examples/pkg/storage"
	"github.com/tokenized/ckb-examples/pkg/txbuilder"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"
)

const (
	// TransferAmount is what the transfer flow sends to alice.
	TransferAmount = 100 * ckb.OneCKB

	// FillAmount is what the custom script flow moves into the custom lock first.
	FillAmount = 1000 * ckb.OneCKB

	// CustomTransferAmount is what the custom script flow sends back to the miner.
	CustomTransferAmount = 500 * ckb.OneCKB

	// ArchivePrefix is the storage key prefix of archived transactions.
	ArchivePrefix = "txs"
)

var (
	// ErrMissingKey is returned when a flow needs to sign for the miner without a key.
	ErrMissingKey = errors.New("Miner private key not configured")

	// ErrMissingAccount is returned when a flow needs a lock arg that isn't configured.
	ErrMissingAccount = errors.New("Account lock arg not configured")

	// ErrInvalidAmount is returned for CKB amounts that aren't whole numbers or don't fit in
	// shannons.
	ErrInvalidAmount = errors.New("Invalid amount")

	// ErrCellNotLive is returned when a committed transaction's output isn't live.
	ErrCellNotLive = errors.New("Cell not live")
)

// ParseCKB returns the shannons in a whole number of CKB.
func ParseCKB(s string) (uint64, error) {
	value, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errors.Wrap(ErrInvalidAmount, err.Error())
	}
	if value > math.MaxUint64/ckb.OneCKB {
		return 0, errors.Wrapf(ErrInvalidAmount, "%s CKB overflows shannons", s)
	}
	return value * ckb.OneCKB, nil
}

// Address returns the address of a configured script with args.
func (e *Env) Address(name string, args []byte) (string, error) {
	config, err := e.Registry.Get()
	if err != nil {
		return "", err
	}
	return config.ScriptAddress(name, args)
}

// MinerAddress returns the secp256k1 address of the miner account.
func (e *Env) MinerAddress() (string, error) {
	if len(e.MinerLockArg) == 0 {
		return "", errors.Wrap(ErrMissingAccount, "miner")
	}
	return e.Address(scripts.Secp256k1Blake160, e.MinerLockArg)
}

// AliceAddress returns the secp256k1 address of the alice account.
func (e *Env) AliceAddress() (string, error) {
	if len(e.AliceLockArg) == 0 {
		return "", errors.Wrap(ErrMissingAccount, "alice")
	}
	return e.Address(scripts.Secp256k1Blake160, e.AliceLockArg)
}

// CustomAddress returns the address of the capacity diff lock with args.
func (e *Env) CustomAddress(args []byte) (string, error) {
	return e.Address(capacitydiff.ScriptName, args)
}

// TransferCKB sends amount from the miner to an address and returns the transaction hash.
// The fee is paid by the miner.
func (e *Env) TransferCKB(ctx context.Context, to string, amount uint64) (ckb.Hash, error) {
	ctx, span := trace.StartSpan(ctx, "examples.TransferCKB")
	defer span.End()

	ctx = logger.ContextWithLogSubSystem(ctx, SubSystem)

	from, err := e.MinerAddress()
	if err != nil {
		return ckb.Hash{}, err
	}
	signer, err := e.minerSigner()
	if err != nil {
		return ckb.Hash{}, err
	}

	skel, err := e.Builder.Transfer(ctx, e.NewSkeleton(), []string{from}, to, amount)
	if err != nil {
		return ckb.Hash{}, errors.Wrap(err, "transfer")
	}

	skel, err = e.payFee(ctx, skel, []string{from})
	if err != nil {
		return ckb.Hash{}, errors.Wrap(err, "pay fee")
	}

	logger.Info(ctx, "Transferring %d shannons to %s", amount, to)
	return e.Send(ctx, skel, signer)
}

// FillAccount sends capacity from the miner to an address and mines until the transaction
// is committed.
func (e *Env) FillAccount(ctx context.Context, to string, capacity uint64) (ckb.Hash, error) {
	ctx, span := trace.StartSpan(ctx, "examples.FillAccount")
	defer span.End()

	hash, err := e.TransferCKB(ctx, to, capacity)
	if err != nil {
		return hash, err
	}

	if err := e.Miner.MineToCommitted(ctx, hash, e.Config.Miner.Step); err != nil {
		return hash, errors.Wrap(err, "mine")
	}

	if err := e.checkLiveOutput(ctx, hash, to); err != nil {
		return hash, errors.Wrap(err, "check output")
	}
	return hash, nil
}

// checkLiveOutput verifies the first output of a committed transaction locked to address
// is live.
func (e *Env) checkLiveOutput(ctx context.Context, hash ckb.Hash, address string) error {
	config, err := e.Registry.Get()
	if err != nil {
		return err
	}
	lock, err := config.ParseAddress(address)
	if err != nil {
		return errors.Wrap(err, "address")
	}

	result, err := e.Node.GetTransaction(ctx, hash)
	if err != nil {
		return errors.Wrap(err, "get transaction")
	}
	if result.Transaction == nil {
		return errors.Wrapf(ErrCellNotLive, "transaction %s unknown", hash)
	}

	for i, output := range result.Transaction.Outputs {
		if !output.Lock.Equal(lock) {
			continue
		}

		outPoint := ckb.OutPoint{TxHash: hash, Index: uint32(i)}
		cell, err := e.Node.GetLiveCell(ctx, outPoint, false)
		if err != nil {
			return errors.Wrap(err, "get live cell")
		}
		if cell.Status != rpcnode.CellStatusLive {
			return errors.Wrapf(ErrCellNotLive, "%s:%d %s", hash, i, cell.Status)
		}

		logger.Debug(ctx, "Output %d live with %d shannons", i, output.Capacity)
		return nil
	}

	return errors.Wrapf(ErrCellNotLive, "no output to %s", address)
}

// CustomScript fills the capacity diff lock with empty args from the miner, then spends it
// back to the miner. It returns the hash of the spending transaction.
func (e *Env) CustomScript(ctx context.Context) (ckb.Hash, error) {
	ctx, span := trace.StartSpan(ctx, "examples.CustomScript")
	defer span.End()

	ctx = logger.ContextWithLogSubSystem(ctx, SubSystem)

	config, err := e.Registry.Script(capacitydiff.ScriptName)
	if err != nil {
		return ckb.Hash{}, err
	}

	customAddress, err := e.CustomAddress([]byte{})
	if err != nil {
		return ckb.Hash{}, err
	}
	minerAddress, err := e.MinerAddress()
	if err != nil {
		return ckb.Hash{}, err
	}

	fillHash, err := e.FillAccount(ctx, customAddress, FillAmount)
	if err != nil {
		return ckb.Hash{}, errors.Wrap(err, "fill account")
	}
	logger.Info(ctx, "Filled custom lock in %s", fillHash)

	skel, err := e.Builder.Transfer(ctx, e.NewSkeleton(), []string{customAddress},
		minerAddress, CustomTransferAmount)
	if err != nil {
		return ckb.Hash{}, errors.Wrap(err, "transfer")
	}

	skel, err = e.payFee(ctx, skel, []string{customAddress})
	if err != nil {
		return ckb.Hash{}, errors.Wrap(err, "pay fee")
	}

	// The witness is the message itself.
	return e.Send(ctx, skel, capacitydiff.NewSigner(config))
}

// Send signs the skeleton's entries, seals it, submits it to the node and archives it.
func (e *Env) Send(ctx context.Context, skel txbuilder.Skeleton,
	signers ...txbuilder.Signer) (ckb.Hash, error) {

	start := time.Now()

	skel, err := e.Builder.PrepareSigningEntries(skel)
	if err != nil {
		return ckb.Hash{}, errors.Wrap(err, "signing entries")
	}

	signatures, err := txbuilder.SignEntries(skel, signers...)
	if err != nil {
		return ckb.Hash{}, errors.Wrap(err, "sign")
	}

	tx, err := txbuilder.SealTransaction(skel, signatures)
	if err != nil {
		return ckb.Hash{}, errors.Wrap(err, "seal")
	}

	hash, err := e.Node.SendTransaction(ctx, tx)
	if err != nil {
		return ckb.Hash{}, errors.Wrap(err, "send")
	}

	ctx = logger.ContextWithTXHash(ctx, hash.String())
	if err := e.archive(ctx, hash, tx); err != nil {
		return hash, errors.Wrap(err, "archive")
	}

	logger.Elapsed(ctx, start, "Sent transaction")
	return hash, nil
}

// ArchiveKey returns the storage key of an archived transaction.
func ArchiveKey(hash ckb.Hash) string {
	return fmt.Sprintf("%s/%s.json", ArchivePrefix, hash)
}

func (e *Env) archive(ctx context.Context, hash ckb.Hash, tx *ckb.Transaction) error {
	if e.Archive == nil {
		return nil
	}

	data, err := json.MarshalIndent(tx, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal")
	}

	options := storage.NewOptions()
	if err := e.Archive.Write(ctx, ArchiveKey(hash), data, &options); err != nil {
		return err
	}

	logger.Debug(ctx, "Archived transaction")
	return nil
}

// PruneArchive removes archived transactions the node reports as rejected or unknown and
// returns their hashes.
func (e *Env) PruneArchive(ctx context.Context) ([]ckb.Hash, error) {
	ctx = logger.ContextWithLogSubSystem(ctx, SubSystem)

	keys, err := e.Archive.List(ctx, ArchivePrefix)
	if err != nil {
		return nil, errors.Wrap(err, "list archive")
	}

	var result []ckb.Hash
	for _, key := range keys {
		hash, err := ckb.HexToHash(strings.TrimSuffix(path.Base(key), ".json"))
		if err != nil {
			logger.Warn(ctx, "Skipping archive key %s : %s", key, err)
			continue
		}

		status, err := e.Node.GetTransaction(ctx, hash)
		if err != nil {
			return result, errors.Wrap(err, "get transaction")
		}

		switch status.TxStatus.Status {
		case rpcnode.StatusRejected, rpcnode.StatusUnknown:
		default:
			continue
		}

		if err := e.Archive.Remove(ctx, key); err != nil {
			return result, errors.Wrap(err, "remove")
		}
		logger.Info(ctx, "Removed %s transaction %s", status.TxStatus.Status, hash)
		result = append(result, hash)
	}

	return result, nil
}

// payFee pays the configured fixed fee, or the fee for the configured rate when the fixed
// fee is zero.
func (e *Env) payFee(ctx context.Context, skel txbuilder.Skeleton,
	from []string) (txbuilder.Skeleton, error) {

	if e.Config.Chain.Fee > 0 {
		return e.Builder.PayFee(ctx, skel, from, e.Config.Chain.Fee)
	}
	return e.Builder.PayFeeByFeeRate(ctx, skel, from, e.Config.Chain.FeeRate)
}

func (e *Env) minerSigner() (txbuilder.Signer, error) {
	if e.MinerKey.IsEmpty() {
		return nil, ErrMissingKey
	}

	config, err := e.Registry.Script(scripts.Secp256k1Blake160)
	if err != nil {
		return nil, err
	}
	return txbuilder.NewKeySigner(e.MinerKey, config), nil
}
