package capacitydiff

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/tokenized/ckb-examples/internal/platform/tests"
	"github.com/tokenized/ckb-examples/pkg/ckb"
	"github.com/tokenized/ckb-examples/pkg/indexer"
	"github.com/tokenized/ckb-examples/pkg/scripts"
	"github.com/tokenized/ckb-examples/pkg/txbuilder"

	"github.com/pkg/errors"
)

func setup(t *testing.T) (*scripts.Registry, *txbuilder.Builder) {
	manifest, err := scripts.ParseManifest([]byte(tests.DevManifest))
	if err != nil {
		t.Fatalf("Failed to parse manifest : %s", err)
	}
	env, err := manifest.Environment(scripts.DevEnvironment)
	if err != nil {
		t.Fatalf("Failed to get environment : %s", err)
	}
	config, err := scripts.CreateDevConfig(env)
	if err != nil {
		t.Fatalf("Failed to create config : %s", err)
	}

	registry := scripts.NewInitializedRegistry(config)
	if err := Register(registry, env); err != nil {
		t.Fatalf("Failed to register script : %s", err)
	}

	builder := txbuilder.NewBuilder(registry, txbuilder.NewSecp256k1Blake160(registry))
	builder.Register(NewPlugin(registry))
	return registry, builder
}

func funding(lock ckb.Script, index uint32, capacity uint64) ckb.Cell {
	return ckb.Cell{
		Output:   ckb.CellOutput{Capacity: capacity, Lock: lock},
		Data:     []byte{},
		OutPoint: &ckb.OutPoint{TxHash: ckb.Blake256([]byte("funding")), Index: index},
	}
}

func TestRegister(t *testing.T) {
	registry, _ := setup(t)

	config, err := registry.Script(ScriptName)
	if err != nil {
		t.Fatalf("Failed to get script : %s", err)
	}
	if config.DepType != scripts.DepTypeCode || config.Index != "0x5" {
		t.Errorf("Wrong script config : %+v", config)
	}

	if err := Register(scripts.NewRegistry(), scripts.Environment{}); err == nil {
		t.Errorf("Failed to reject uninitialized registry")
	}
}

func TestMessage(t *testing.T) {
	lock := ckb.Script{HashType: ckb.HashTypeType, Args: []byte{0x01}}
	other := ckb.Script{HashType: ckb.HashTypeType, Args: []byte{0x02}}

	message := Message(lock, []uint64{1000, 500}, []ckb.CellOutput{
		{Capacity: 300, Lock: other},
		{Capacity: 1100, Lock: lock},
	})

	if got := int64(binary.LittleEndian.Uint64(message)); got != -400 {
		t.Errorf("Got message %d, want %d", got, -400)
	}

	message = Message(lock, []uint64{100}, []ckb.CellOutput{{Capacity: 150, Lock: lock}})
	if got := int64(binary.LittleEndian.Uint64(message)); got != 50 {
		t.Errorf("Got message %d, want %d", got, 50)
	}
}

func TestCustomScriptTransfer(t *testing.T) {
	ctx := context.Background()
	registry, builder := setup(t)

	config, _ := registry.Get()
	custom := config.Scripts[ScriptName].Script(nil)
	customAddress, err := config.EncodeAddress(custom)
	if err != nil {
		t.Fatalf("Failed to encode address : %s", err)
	}
	minerAddress, err := config.ScriptAddress(scripts.Secp256k1Blake160,
		bytes.Repeat([]byte{0x11}, ckb.LockArgsSize))
	if err != nil {
		t.Fatalf("Failed to encode address : %s", err)
	}

	provider := indexer.NewMemoryProvider(
		funding(custom, 0, 600*ckb.OneCKB),
		funding(custom, 1, 600*ckb.OneCKB),
	)

	skel, err := builder.Transfer(ctx, txbuilder.CreateSkeleton(provider),
		[]string{customAddress}, minerAddress, 1000*ckb.OneCKB)
	if err != nil {
		t.Fatalf("Failed to transfer : %s", err)
	}
	skel, err = builder.PayFeeByFeeRate(ctx, skel, []string{customAddress}, 1000)
	if err != nil {
		t.Fatalf("Failed to pay fee : %s", err)
	}

	if len(skel.Inputs()) != 2 {
		t.Fatalf("Got %d inputs, want %d", len(skel.Inputs()), 2)
	}
	if len(skel.CellDeps()) != 1 {
		t.Errorf("Got %d cell deps for two inputs, want %d", len(skel.CellDeps()), 1)
	}

	placeholder := ckb.WitnessArgs{Lock: make([]byte, MessageSize)}.Serialize()
	witnesses := skel.Witnesses()
	if !bytes.Equal(witnesses[0], placeholder) || len(witnesses[1]) != 0 {
		t.Errorf("Wrong witnesses : %x", witnesses)
	}

	skel, err = builder.PrepareSigningEntries(skel)
	if err != nil {
		t.Fatalf("Failed to prepare signing entries : %s", err)
	}
	entries := skel.SigningEntries()
	if len(entries) != 1 {
		t.Fatalf("Got %d signing entries, want %d", len(entries), 1)
	}

	// The custom lock sends 1000 CKB and the fee away.
	want := -int64(1000*ckb.OneCKB + skel.Fee())
	if got := int64(binary.LittleEndian.Uint64(entries[0].Message)); got != want {
		t.Errorf("Got message %d, want %d", got, want)
	}

	signatures, err := txbuilder.SignEntries(skel, NewSigner(config.Scripts[ScriptName]))
	if err != nil {
		t.Fatalf("Failed to sign : %s", err)
	}
	tx, err := txbuilder.SealTransaction(skel, signatures)
	if err != nil {
		t.Fatalf("Failed to seal : %s", err)
	}

	if err := Verify(config.Scripts[ScriptName], tx, skel.Inputs()); err != nil {
		t.Errorf("Failed to verify : %s", err)
	}

	size, _ := tx.SizeInBlock()
	if skel.Fee() < ckb.CalculateFee(size, 1000) {
		t.Errorf("Fee %d below required %d", skel.Fee(), ckb.CalculateFee(size, 1000))
	}

	tampered := *tx
	tampered.Witnesses = append([][]byte{}, tx.Witnesses...)
	tampered.Witnesses[0] = ckb.WitnessArgs{Lock: make([]byte, MessageSize)}.Serialize()
	if err := Verify(config.Scripts[ScriptName], &tampered, skel.Inputs()); errors.Cause(err) != ErrWrongWitness {
		t.Errorf("Wrong error for tampered witness : %v", err)
	}
}

func TestMixedLocks(t *testing.T) {
	ctx := context.Background()
	registry, builder := setup(t)

	config, _ := registry.Get()
	custom := config.Scripts[ScriptName].Script([]byte{0x01})
	customAddress, _ := config.EncodeAddress(custom)

	key, err := ckb.ParseKey("0xd00c06bfd800d27397002dca6fb0993d5ba6399b4238b2f29ee9deb97593d2bc")
	if err != nil {
		t.Fatalf("Failed to parse key : %s", err)
	}
	secp := config.Scripts[scripts.Secp256k1Blake160].Script(key.LockArgs())
	secpAddress, _ := config.EncodeAddress(secp)

	provider := indexer.NewMemoryProvider(
		funding(custom, 0, 100*ckb.OneCKB),
		funding(secp, 1, 1000*ckb.OneCKB),
	)

	skel, err := builder.Transfer(ctx, txbuilder.CreateSkeleton(provider),
		[]string{customAddress, secpAddress}, secpAddress, 300*ckb.OneCKB)
	if err != nil {
		t.Fatalf("Failed to transfer : %s", err)
	}
	skel, err = builder.PayFee(ctx, skel, []string{secpAddress}, ckb.OneCKB)
	if err != nil {
		t.Fatalf("Failed to pay fee : %s", err)
	}
	skel, err = builder.PrepareSigningEntries(skel)
	if err != nil {
		t.Fatalf("Failed to prepare signing entries : %s", err)
	}

	if len(skel.CellDeps()) != 2 {
		t.Errorf("Got %d cell deps, want %d", len(skel.CellDeps()), 2)
	}

	entries := skel.SigningEntries()
	if len(entries) != 2 {
		t.Fatalf("Got %d signing entries, want %d", len(entries), 2)
	}
	if len(entries[0].Message) != MessageSize || len(entries[1].Message) != ckb.HashSize {
		t.Errorf("Wrong message sizes : %d, %d", len(entries[0].Message),
			len(entries[1].Message))
	}

	signatures, err := txbuilder.SignEntries(skel, NewSigner(config.Scripts[ScriptName]),
		txbuilder.NewKeySigner(key, config.Scripts[scripts.Secp256k1Blake160]))
	if err != nil {
		t.Fatalf("Failed to sign : %s", err)
	}
	tx, err := txbuilder.SealTransaction(skel, signatures)
	if err != nil {
		t.Fatalf("Failed to seal : %s", err)
	}
	if err := Verify(config.Scripts[ScriptName], tx, skel.Inputs()); err != nil {
		t.Errorf("Failed to verify : %s", err)
	}
}

func TestNotConfigured(t *testing.T) {
	ctx := context.Background()
	registry := scripts.NewInitializedRegistry(scripts.Config{Prefix: ckb.PrefixTestnet})
	plugin := NewPlugin(registry)

	_, err := plugin.SetupInputCell(ctx, txbuilder.CreateSkeleton(nil),
		funding(ckb.Script{HashType: ckb.HashTypeType}, 0, 100*ckb.OneCKB),
		txbuilder.SetupOptions{})
	if errors.Cause(err) != scripts.ErrScriptNotConfigured {
		t.Errorf("Wrong error for unconfigured script : %v", err)
	}

	if _, err := plugin.CellCollector(ctx, ckb.Script{}, indexer.NewMemoryProvider(),
		indexer.QueryOptions{}); errors.Cause(err) != scripts.ErrScriptNotConfigured {
		t.Errorf("Wrong error for unconfigured script : %v", err)
	}
}
