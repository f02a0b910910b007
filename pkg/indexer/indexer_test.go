package indexer

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/tokenized/ckb-examples/internal/platform/tests"
	"github.com/tokenized/ckb-examples/pkg/ckb"
	"github.com/tokenized/ckb-examples/pkg/rpcnode"
)

func testLock(args ...byte) ckb.Script {
	return ckb.Script{
		CodeHash: ckb.Blake256([]byte("secp256k1_blake160")),
		HashType: ckb.HashTypeType,
		Args:     args,
	}
}

func testCell(lock ckb.Script, capacity uint64, index uint32) ckb.Cell {
	return ckb.Cell{
		Output:   ckb.CellOutput{Capacity: capacity, Lock: lock},
		Data:     []byte{},
		OutPoint: &ckb.OutPoint{TxHash: ckb.Blake256([]byte("funding")), Index: index},
	}
}

func TestQueryMatch(t *testing.T) {
	alice := testLock(0x01, 0x02)
	bob := testLock(0x01)
	typeScript := testLock(0xff)

	plain := testCell(alice, 100*ckb.OneCKB, 0)
	typed := testCell(alice, 200*ckb.OneCKB, 1)
	typed.Output.Type = &typeScript
	typed.BlockNumber = 5

	cases := []struct {
		name  string
		query QueryOptions
		cell  ckb.Cell
		want  bool
	}{
		{"exact lock", QueryOptions{Lock: &alice}, plain, true},
		{"other lock", QueryOptions{Lock: &bob}, plain, false},
		{"args prefix", QueryOptions{Lock: &bob, ArgsPrefix: true}, plain, true},
		{"empty type", QueryOptions{Lock: &alice, EmptyType: true}, typed, false},
		{"type match", QueryOptions{Lock: &alice, Type: &typeScript}, typed, true},
		{"type missing", QueryOptions{Lock: &alice, Type: &typeScript}, plain, false},
		{"data", QueryOptions{Lock: &alice, Data: []byte{0x01}}, plain, false},
		{"empty data", QueryOptions{Lock: &alice, Data: []byte{}}, plain, true},
		{"block range", QueryOptions{Lock: &alice, FromBlock: 1, ToBlock: 5}, typed, false},
		{"block range end", QueryOptions{Lock: &alice, FromBlock: 5}, typed, true},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.Match(tt.cell); got != tt.want {
				t.Errorf("Got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQueryValidate(t *testing.T) {
	lock := testLock()

	if err := (QueryOptions{}).Validate(); err != ErrMissingScript {
		t.Errorf("Wrong error for missing script : %v", err)
	}
	if err := (QueryOptions{Lock: &lock, Type: &lock, EmptyType: true}).Validate(); err == nil {
		t.Errorf("Failed to reject type and empty type")
	}
	if err := (QueryOptions{Lock: &lock, Order: "random"}).Validate(); err == nil {
		t.Errorf("Failed to reject unknown order")
	}
}

func TestMemoryProvider(t *testing.T) {
	ctx := context.Background()
	alice := testLock(0x01)
	bob := testLock(0x02)

	provider := NewMemoryProvider(
		testCell(alice, 100*ckb.OneCKB, 0),
		testCell(bob, 200*ckb.OneCKB, 1),
		testCell(alice, 300*ckb.OneCKB, 2),
	)

	collector, err := provider.Collector(QueryOptions{Lock: &alice, EmptyType: true})
	if err != nil {
		t.Fatalf("Failed to create collector : %s", err)
	}

	cells, err := Collect(ctx, collector)
	if err != nil {
		t.Fatalf("Failed to collect : %s", err)
	}
	if len(cells) != 2 {
		t.Fatalf("Got %d cells, want %d", len(cells), 2)
	}
	if cells[0].Output.Capacity != 100*ckb.OneCKB || cells[1].Output.Capacity != 300*ckb.OneCKB {
		t.Errorf("Wrong cell order : %d, %d", cells[0].Output.Capacity, cells[1].Output.Capacity)
	}

	if _, err := collector.Next(ctx); err != io.EOF {
		t.Errorf("Exhausted collector returned %v, want EOF", err)
	}

	// Spend alice's first cell to bob.
	tx := &ckb.Transaction{
		Inputs:      []ckb.CellInput{{PreviousOutput: *cells[0].OutPoint}},
		Outputs:     []ckb.CellOutput{{Capacity: 100 * ckb.OneCKB, Lock: bob}},
		OutputsData: [][]byte{{}},
	}
	if err := provider.Commit(tx, 1); err != nil {
		t.Fatalf("Failed to commit : %s", err)
	}

	collector, _ = provider.Collector(QueryOptions{Lock: &bob, Order: OrderDesc})
	cells, err = Collect(ctx, collector)
	if err != nil {
		t.Fatalf("Failed to collect : %s", err)
	}
	if len(cells) != 2 {
		t.Fatalf("Got %d bob cells, want %d", len(cells), 2)
	}
	if cells[0].BlockNumber != 1 {
		t.Errorf("Desc order should return the new cell first")
	}

	if err := provider.Commit(tx, 2); err == nil {
		t.Errorf("Failed to reject spent input")
	}
}

func TestRPCProvider(t *testing.T) {
	ctx := context.Background()
	server := tests.NewServer()
	defer server.Close()

	alice := testLock(0x01, 0x02)
	aliceShort := testLock(0x01)
	capacities := make([]uint64, 7)
	for i := range capacities {
		capacities[i] = uint64(i+1) * 100 * ckb.OneCKB
	}
	server.Fund(alice, capacities...)
	server.Fund(aliceShort, 1000*ckb.OneCKB)

	node, err := rpcnode.NewNode(ctx, rpcnode.NewConfig(server.URL()))
	if err != nil {
		t.Fatalf("Failed to create node : %s", err)
	}
	defer node.Close()

	provider := NewRPCProvider(node)
	collector, err := provider.Collector(QueryOptions{
		Lock:      &aliceShort,
		EmptyType: true,
		PageSize:  3,
	})
	if err != nil {
		t.Fatalf("Failed to create collector : %s", err)
	}

	cells, err := Collect(ctx, collector)
	if err != nil {
		t.Fatalf("Failed to collect : %s", err)
	}

	// The node matches by args prefix and returns alice's cells too. Only the exact match
	// remains.
	if len(cells) != 1 {
		t.Fatalf("Got %d cells, want %d", len(cells), 1)
	}
	if !bytes.Equal(cells[0].Output.Lock.Args, aliceShort.Args) {
		t.Errorf("Wrong lock args : %x", cells[0].Output.Lock.Args)
	}

	collector, _ = provider.Collector(QueryOptions{Lock: &alice, PageSize: 3})
	cells, err = Collect(ctx, collector)
	if err != nil {
		t.Fatalf("Failed to collect : %s", err)
	}
	if len(cells) != len(capacities) {
		t.Fatalf("Got %d cells, want %d", len(cells), len(capacities))
	}
	for i, cell := range cells {
		if cell.Output.Capacity != capacities[i] {
			t.Errorf("Wrong capacity at %d : got %d, want %d", i, cell.Output.Capacity,
				capacities[i])
		}
		if cell.OutPoint == nil {
			t.Errorf("Missing out point at %d", i)
		}
	}

	if calls := server.Calls("get_cells"); calls < 3 {
		t.Errorf("Expected paging over at least 3 calls, got %d", calls)
	}
}
