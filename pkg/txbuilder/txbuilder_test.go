package txbuilder

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"os"
	"testing"

	"github.com/tokenized/ckb-examples/internal/platform/tests"
	"github.com/tokenized/ckb-examples/pkg/ckb"
	"github.com/tokenized/ckb-examples/pkg/indexer"
	"github.com/tokenized/ckb-examples/pkg/scripts"

	"github.com/google/go-cmp/cmp"
)

type testAccount struct {
	key     ckb.Key
	lock    ckb.Script
	address string
}

type testContext struct {
	registry *scripts.Registry
	config   scripts.Config
	builder  *Builder
	alice    testAccount
	bob      testAccount
	carol    testAccount
}

func newTestContext(t *testing.T) *testContext {
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
	result := &testContext{
		registry: registry,
		config:   config,
		builder:  NewBuilder(registry, NewSecp256k1Blake160(registry)),
	}

	result.alice = newTestAccount(t, config,
		"0xd00c06bfd800d27397002dca6fb0993d5ba6399b4238b2f29ee9deb97593d2bc")
	result.bob = newTestAccount(t, config,
		"0x63d86723e08f0f813a36ce6aa123bb2289d90680ae1e99d4de8cdb334553f24d")
	result.carol = newTestAccount(t, config,
		"0x8b9a1e4a1b9c2d61f4a5e52ce3bcde3f2a1c7c3a3b5d79d0e2b7fc1d6b6a2e11")
	return result
}

func newTestAccount(t *testing.T, config scripts.Config, hexKey string) testAccount {
	key, err := ckb.ParseKey(hexKey)
	if err != nil {
		t.Fatalf("Failed to parse key : %s", err)
	}

	lock := config.Scripts[scripts.Secp256k1Blake160].Script(key.LockArgs())
	address, err := config.EncodeAddress(lock)
	if err != nil {
		t.Fatalf("Failed to encode address : %s", err)
	}

	return testAccount{key: key, lock: lock, address: address}
}

var cellCount uint64

func newCell(lock ckb.Script, capacity uint64) ckb.Cell {
	cellCount++
	return ckb.Cell{
		Output:   ckb.CellOutput{Capacity: capacity, Lock: lock},
		Data:     []byte{},
		OutPoint: &ckb.OutPoint{TxHash: ckb.Blake256(binary.LittleEndian.AppendUint64(nil, cellCount))},
	}
}

func outputCapacities(skel Skeleton) []uint64 {
	var result []uint64
	for _, output := range skel.Outputs() {
		result = append(result, output.Output.Capacity)
	}
	return result
}

func TestTransferAndPayFee(t *testing.T) {
	ctx := context.Background()
	tc := newTestContext(t)

	provider := indexer.NewMemoryProvider(newCell(tc.alice.lock, 1000*ckb.OneCKB))
	skel := CreateSkeleton(provider)

	transferred, err := tc.builder.Transfer(ctx, skel, []string{tc.alice.address},
		tc.bob.address, 100*ckb.OneCKB)
	if err != nil {
		t.Fatalf("Failed to transfer : %s", err)
	}

	paid, err := tc.builder.PayFee(ctx, transferred, []string{tc.alice.address}, ckb.OneCKB)
	if err != nil {
		t.Fatalf("Failed to pay fee : %s", err)
	}

	want := []uint64{100 * ckb.OneCKB, 899 * ckb.OneCKB}
	if diff := cmp.Diff(want, outputCapacities(paid)); diff != "" {
		t.Errorf("Wrong output capacities (-want +got) :\n%s", diff)
	}

	outputs := paid.Outputs()
	if !outputs[0].Output.Lock.Equal(tc.bob.lock) {
		t.Errorf("Wrong recipient lock : %s", outputs[0].Output.Lock)
	}
	if !outputs[1].Output.Lock.Equal(tc.alice.lock) {
		t.Errorf("Wrong change lock : %s", outputs[1].Output.Lock)
	}
	if !paid.IsFixedOutput(0) || paid.IsFixedOutput(1) {
		t.Errorf("Only the recipient output should be fixed")
	}

	if len(paid.Inputs()) != 1 {
		t.Fatalf("Got %d inputs, want %d", len(paid.Inputs()), 1)
	}
	if paid.InputCapacity() != paid.OutputCapacity()+paid.Fee() || paid.Fee() != ckb.OneCKB {
		t.Errorf("Capacity not conserved : in %d, out %d, fee %d", paid.InputCapacity(),
			paid.OutputCapacity(), paid.Fee())
	}

	if len(paid.CellDeps()) != 1 {
		t.Errorf("Got %d cell deps, want %d", len(paid.CellDeps()), 1)
	}

	placeholder := ckb.WitnessArgs{Lock: make([]byte, ckb.SignatureSize)}.Serialize()
	if !bytes.Equal(paid.Witnesses()[0], placeholder) {
		t.Errorf("Wrong witness placeholder : %x", paid.Witnesses()[0])
	}

	// Earlier skeletons are unchanged.
	if len(skel.Outputs()) != 0 || len(skel.Inputs()) != 0 {
		t.Errorf("Transfer modified the original skeleton")
	}
	if diff := cmp.Diff([]uint64{100 * ckb.OneCKB, 900 * ckb.OneCKB},
		outputCapacities(transferred)); diff != "" {
		t.Errorf("Pay fee modified the transferred skeleton (-want +got) :\n%s", diff)
	}
}

func TestTransferManyInputs(t *testing.T) {
	ctx := context.Background()
	tc := newTestContext(t)

	var cells []ckb.Cell
	for i := 0; i < 6; i++ {
		cells = append(cells, newCell(tc.alice.lock, 100*ckb.OneCKB))
	}
	provider := indexer.NewMemoryProvider(cells...)

	skel, err := tc.builder.Transfer(ctx, CreateSkeleton(provider), []string{tc.alice.address},
		tc.bob.address, 450*ckb.OneCKB)
	if err != nil {
		t.Fatalf("Failed to transfer : %s", err)
	}

	// The first four cells are drained. The fifth keeps its occupied capacity and the sixth
	// covers the rest.
	want := []uint64{450 * ckb.OneCKB, 61 * ckb.OneCKB, 89 * ckb.OneCKB}
	if diff := cmp.Diff(want, outputCapacities(skel)); diff != "" {
		t.Errorf("Wrong output capacities (-want +got) :\n%s", diff)
	}

	if len(skel.Inputs()) != 6 {
		t.Fatalf("Got %d inputs, want %d", len(skel.Inputs()), 6)
	}
	if len(skel.Witnesses()) != len(skel.Inputs()) {
		t.Errorf("Got %d witnesses for %d inputs", len(skel.Witnesses()), len(skel.Inputs()))
	}
	for i, witness := range skel.Witnesses()[1:] {
		if len(witness) != 0 {
			t.Errorf("Witness %d should be empty : %x", i+1, witness)
		}
	}
	if len(skel.CellDeps()) != 1 {
		t.Errorf("Got %d cell deps for one lock, want %d", len(skel.CellDeps()), 1)
	}
	if skel.InputCapacity() != skel.OutputCapacity() {
		t.Errorf("Capacity not conserved : in %d, out %d", skel.InputCapacity(),
			skel.OutputCapacity())
	}
}

func TestTransferFromChangeOutput(t *testing.T) {
	ctx := context.Background()
	tc := newTestContext(t)

	provider := indexer.NewMemoryProvider(newCell(tc.alice.lock, 1000*ckb.OneCKB))
	skel, err := tc.builder.Transfer(ctx, CreateSkeleton(provider), []string{tc.alice.address},
		tc.bob.address, 100*ckb.OneCKB)
	if err != nil {
		t.Fatalf("Failed to transfer : %s", err)
	}

	skel, err = tc.builder.Transfer(ctx, skel, []string{tc.alice.address}, tc.carol.address,
		200*ckb.OneCKB)
	if err != nil {
		t.Fatalf("Failed to transfer : %s", err)
	}

	if len(skel.Inputs()) != 1 {
		t.Errorf("Second transfer should use the change output, got %d inputs",
			len(skel.Inputs()))
	}

	want := []uint64{100 * ckb.OneCKB, 700 * ckb.OneCKB, 200 * ckb.OneCKB}
	if diff := cmp.Diff(want, outputCapacities(skel)); diff != "" {
		t.Errorf("Wrong output capacities (-want +got) :\n%s", diff)
	}
}

func TestPayFeeFromLatestChange(t *testing.T) {
	ctx := context.Background()
	tc := newTestContext(t)

	provider := indexer.NewMemoryProvider(
		newCell(tc.alice.lock, 1000*ckb.OneCKB),
		newCell(tc.carol.lock, 1000*ckb.OneCKB),
	)

	skel, err := tc.builder.Transfer(ctx, CreateSkeleton(provider), []string{tc.alice.address},
		tc.bob.address, 100*ckb.OneCKB)
	if err != nil {
		t.Fatalf("Failed to transfer : %s", err)
	}
	skel, err = tc.builder.Transfer(ctx, skel, []string{tc.carol.address}, tc.bob.address,
		200*ckb.OneCKB)
	if err != nil {
		t.Fatalf("Failed to transfer : %s", err)
	}

	skel, err = tc.builder.PayFee(ctx, skel, []string{tc.alice.address, tc.carol.address},
		ckb.OneCKB)
	if err != nil {
		t.Fatalf("Failed to pay fee : %s", err)
	}

	// Carol's change output was added last, so it pays.
	want := []uint64{100 * ckb.OneCKB, 900 * ckb.OneCKB, 200 * ckb.OneCKB, 799 * ckb.OneCKB}
	if diff := cmp.Diff(want, outputCapacities(skel)); diff != "" {
		t.Errorf("Wrong output capacities (-want +got) :\n%s", diff)
	}
	if len(skel.Inputs()) != 2 {
		t.Errorf("Got %d inputs, want %d", len(skel.Inputs()), 2)
	}
}

func TestInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	tc := newTestContext(t)

	provider := indexer.NewMemoryProvider(newCell(tc.alice.lock, 1000*ckb.OneCKB))
	skel := CreateSkeleton(provider)

	_, err := tc.builder.Transfer(ctx, skel, []string{tc.alice.address}, tc.bob.address,
		2000*ckb.OneCKB)
	if !IsErrorCode(err, ErrorCodeInsufficientFunds) {
		t.Errorf("Wrong error for transfer : %v", err)
	}

	skel, err = tc.builder.Transfer(ctx, skel, []string{tc.alice.address}, tc.bob.address,
		900*ckb.OneCKB)
	if err != nil {
		t.Fatalf("Failed to transfer : %s", err)
	}

	// The change output must keep its occupied capacity.
	_, err = tc.builder.PayFee(ctx, skel, []string{tc.alice.address}, 50*ckb.OneCKB)
	if !IsErrorCode(err, ErrorCodeInsufficientFundsForFee) {
		t.Errorf("Wrong error for fee : %v", err)
	}
}

func TestBuilderErrors(t *testing.T) {
	ctx := context.Background()
	tc := newTestContext(t)

	_, err := tc.builder.Transfer(ctx, CreateSkeleton(nil), []string{tc.alice.address},
		tc.bob.address, 100*ckb.OneCKB)
	if !IsErrorCode(err, ErrorCodeMissingCellProvider) {
		t.Errorf("Wrong error for missing provider : %v", err)
	}

	provider := indexer.NewMemoryProvider()
	_, err = tc.builder.Transfer(ctx, CreateSkeleton(provider), []string{"ckt1invalid"},
		tc.bob.address, 100*ckb.OneCKB)
	if !IsErrorCode(err, ErrorCodeInvalidAddress) {
		t.Errorf("Wrong error for invalid address : %v", err)
	}

	daoAddress, err := tc.config.ScriptAddress(scripts.DAO, nil)
	if err != nil {
		t.Fatalf("Failed to encode address : %s", err)
	}
	_, err = tc.builder.Transfer(ctx, CreateSkeleton(provider), []string{daoAddress},
		tc.bob.address, 100*ckb.OneCKB)
	if !IsErrorCode(err, ErrorCodeUnknownLockScript) {
		t.Errorf("Wrong error for unknown lock : %v", err)
	}

	unconfigured := NewBuilder(scripts.NewRegistry(),
		NewSecp256k1Blake160(scripts.NewRegistry()))
	if _, err := unconfigured.Transfer(ctx, CreateSkeleton(provider),
		[]string{tc.alice.address}, tc.bob.address, 100*ckb.OneCKB); err == nil {
		t.Errorf("Failed to reject uninitialized registry")
	}
}

func TestSetupInputCell(t *testing.T) {
	ctx := context.Background()
	tc := newTestContext(t)
	plugin := NewSecp256k1Blake160(tc.registry)

	skel := CreateSkeleton(indexer.NewMemoryProvider())
	since := uint64(42)
	for i := 0; i < 3; i++ {
		var err error
		skel, err = plugin.SetupInputCell(ctx, skel, newCell(tc.alice.lock, 100*ckb.OneCKB),
			SetupOptions{Since: &since})
		if err != nil {
			t.Fatalf("Failed to setup input : %s", err)
		}

		if len(skel.Witnesses()) != len(skel.Inputs()) {
			t.Errorf("Got %d witnesses for %d inputs", len(skel.Witnesses()),
				len(skel.Inputs()))
		}
	}

	if len(skel.CellDeps()) != 1 {
		t.Errorf("Got %d cell deps, want %d", len(skel.CellDeps()), 1)
	}
	if got, ok := skel.InputSince(2); !ok || got != since {
		t.Errorf("Wrong since : %d %v", got, ok)
	}

	// Self transfer outputs.
	for i, output := range skel.Outputs() {
		if !output.Output.Lock.Equal(tc.alice.lock) || output.Output.Capacity != 100*ckb.OneCKB {
			t.Errorf("Wrong self output %d : %+v", i, output.Output)
		}
	}

	if _, err := plugin.SetupInputCell(ctx, skel, newCell(tc.config.Scripts[scripts.DAO].Script(nil),
		100*ckb.OneCKB), SetupOptions{}); err == nil {
		t.Errorf("Failed to reject foreign cell")
	}
}

func TestCellCollectorDispatch(t *testing.T) {
	ctx := context.Background()
	tc := newTestContext(t)
	plugin := NewSecp256k1Blake160(tc.registry)

	provider := indexer.NewMemoryProvider(newCell(tc.alice.lock, 100*ckb.OneCKB))

	collector, err := plugin.CellCollector(ctx, tc.alice.lock, provider, indexer.QueryOptions{})
	if err != nil {
		t.Fatalf("Failed to create collector : %s", err)
	}
	cells, err := indexer.Collect(ctx, collector)
	if err != nil {
		t.Fatalf("Failed to collect : %s", err)
	}
	if len(cells) != 1 {
		t.Errorf("Got %d cells, want %d", len(cells), 1)
	}

	foreign := tc.config.Scripts[scripts.DAO].Script(nil)
	collector, err = plugin.CellCollector(ctx, foreign, provider, indexer.QueryOptions{})
	if err != nil {
		t.Fatalf("Failed to create collector : %s", err)
	}
	cells, err = indexer.Collect(ctx, collector)
	if err != nil {
		t.Fatalf("Failed to collect : %s", err)
	}
	if len(cells) != 0 {
		t.Errorf("Foreign script should collect no cells, got %d", len(cells))
	}
}

func TestSigning(t *testing.T) {
	ctx := context.Background()
	tc := newTestContext(t)

	provider := indexer.NewMemoryProvider(
		newCell(tc.alice.lock, 100*ckb.OneCKB),
		newCell(tc.bob.lock, 500*ckb.OneCKB),
		newCell(tc.alice.lock, 100*ckb.OneCKB),
	)

	skel, err := tc.builder.Transfer(ctx, CreateSkeleton(provider),
		[]string{tc.alice.address, tc.bob.address}, tc.carol.address, 300*ckb.OneCKB)
	if err != nil {
		t.Fatalf("Failed to transfer : %s", err)
	}
	skel, err = tc.builder.PayFeeByFeeRate(ctx, skel, []string{tc.bob.address}, 1000)
	if err != nil {
		t.Fatalf("Failed to pay fee : %s", err)
	}

	skel, err = tc.builder.PrepareSigningEntries(skel)
	if err != nil {
		t.Fatalf("Failed to prepare signing entries : %s", err)
	}

	entries := skel.SigningEntries()
	if len(entries) != 2 {
		t.Fatalf("Got %d signing entries, want %d", len(entries), 2)
	}
	if entries[0].Index != 0 || entries[1].Index != 2 {
		t.Errorf("Wrong entry indexes : %d, %d", entries[0].Index, entries[1].Index)
	}

	again, err := tc.builder.PrepareSigningEntries(skel)
	if err != nil {
		t.Fatalf("Failed to prepare signing entries : %s", err)
	}
	if diff := cmp.Diff(entries, again.SigningEntries()); diff != "" {
		t.Errorf("Signing entries not idempotent (-first +second) :\n%s", diff)
	}

	if _, err := SealTransaction(skel, nil); !IsErrorCode(err, ErrorCodeSignatureCount) {
		t.Errorf("Wrong error for missing signatures : %v", err)
	}

	signatures, err := SignEntries(skel,
		NewKeySigner(tc.alice.key, tc.config.Scripts[scripts.Secp256k1Blake160]),
		NewKeySigner(tc.bob.key, tc.config.Scripts[scripts.Secp256k1Blake160]))
	if err != nil {
		t.Fatalf("Failed to sign : %s", err)
	}

	tx, err := SealTransaction(skel, signatures)
	if err != nil {
		t.Fatalf("Failed to seal : %s", err)
	}

	groups := skel.LockGroups()
	keys := []ckb.Key{tc.alice.key, tc.bob.key}
	for i, group := range groups {
		args, err := ckb.DeserializeWitnessArgs(tx.Witnesses[group.InputIndices[0]])
		if err != nil {
			t.Fatalf("Failed to deserialize witness : %s", err)
		}

		message, err := SighashAllMessage(tx, group.InputIndices)
		if err != nil {
			t.Fatalf("Failed to get message : %s", err)
		}
		if !bytes.Equal(message[:], entries[i].Message) {
			t.Errorf("Sealing changed the signing message of group %d", i)
		}

		publicKey, err := ckb.RecoverPublicKey(message[:], args.Lock)
		if err != nil {
			t.Fatalf("Failed to recover public key : %s", err)
		}
		if !bytes.Equal(publicKey, keys[i].PublicKey()) {
			t.Errorf("Wrong signer for group %d", i)
		}
	}

	size, err := tx.SizeInBlock()
	if err != nil {
		t.Fatalf("Failed to get size : %s", err)
	}
	estimated, _ := skel.EstimatedSize()
	if size != estimated {
		t.Errorf("Sealed size %d doesn't match estimate %d", size, estimated)
	}
	if skel.Fee() < ckb.CalculateFee(size, 1000) {
		t.Errorf("Fee %d below required %d", skel.Fee(), ckb.CalculateFee(size, 1000))
	}
	if skel.InputCapacity() != skel.OutputCapacity()+skel.Fee() {
		t.Errorf("Capacity not conserved")
	}
}

func TestAddCellDepIdempotent(t *testing.T) {
	dep := ckb.CellDep{OutPoint: ckb.OutPoint{Index: 1}, DepType: ckb.DepTypeCode}

	skel := CreateSkeleton(nil).AddCellDep(dep).AddCellDep(dep)
	if len(skel.CellDeps()) != 1 {
		t.Errorf("Got %d cell deps, want %d", len(skel.CellDeps()), 1)
	}

	skel = skel.AddCellDep(ckb.CellDep{OutPoint: ckb.OutPoint{Index: 1},
		DepType: ckb.DepTypeDepGroup})
	if len(skel.CellDeps()) != 2 {
		t.Errorf("Got %d cell deps, want %d", len(skel.CellDeps()), 2)
	}
}

func TestSighashAllMessageKnownAnswer(t *testing.T) {
	data, err := os.ReadFile("../ckb/testdata/transaction.json")
	if err != nil {
		t.Fatalf("Failed to read transaction : %s", err)
	}
	tx := &ckb.Transaction{}
	if err := json.Unmarshal(data, tx); err != nil {
		t.Fatalf("Failed to unmarshal transaction : %s", err)
	}

	vectors := []struct {
		name    string
		group   []int
		message string
	}{
		{
			name:    "both inputs",
			group:   []int{0, 1},
			message: "0xd19cc77865b50b8df6e74678a071afdfb35a34184308dbd3ff0db1aa010751c8",
		},
		{
			name:    "first input",
			group:   []int{0},
			message: "0xf1dc55c7ab9e983f84a77ea2941134e25751219d9c9d845af6599cf43d6505ef",
		},
	}

	for _, tt := range vectors {
		t.Run(tt.name, func(t *testing.T) {
			message, err := SighashAllMessage(tx, tt.group)
			if err != nil {
				t.Fatalf("Failed to get message : %s", err)
			}
			want, _ := ckb.HexToHash(tt.message)
			if !message.Equal(want) {
				t.Errorf("Wrong message :\n  got  %s\n  want %s", message, want)
			}
		})
	}
}
