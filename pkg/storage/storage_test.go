package storage

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testStorage(t *testing.T, store Storage) {
	ctx := context.Background()

	if _, err := store.Read(ctx, "txs/missing.json"); err != ErrNotFound {
		t.Errorf("Wrong error for missing key : %v", err)
	}

	objects := map[string][]byte{
		"txs/0x01.json": []byte(`{"version":"0x0"}`),
		"txs/0x02.json": []byte(`{"version":"0x1"}`),
		"hashes.json":   []byte(`{}`),
	}

	for key, body := range objects {
		if err := store.Write(ctx, key, body, nil); err != nil {
			t.Fatalf("Failed to write %s : %s", key, err)
		}
	}

	for key, body := range objects {
		b, err := store.Read(ctx, key)
		if err != nil {
			t.Fatalf("Failed to read %s : %s", key, err)
		}
		if !bytes.Equal(b, body) {
			t.Errorf("Wrong body for %s : got %s, want %s", key, b, body)
		}
	}

	keys, err := store.List(ctx, "txs")
	if err != nil {
		t.Fatalf("Failed to list : %s", err)
	}
	if diff := cmp.Diff([]string{"txs/0x01.json", "txs/0x02.json"}, keys); diff != "" {
		t.Errorf("Wrong keys (-want +got):\n%s", diff)
	}

	if err := store.Remove(ctx, "txs/0x01.json"); err != nil {
		t.Fatalf("Failed to remove : %s", err)
	}
	if _, err := store.Read(ctx, "txs/0x01.json"); err != ErrNotFound {
		t.Errorf("Wrong error for removed key : %v", err)
	}
	if err := store.Remove(ctx, "txs/0x01.json"); err != ErrNotFound {
		t.Errorf("Wrong error removing missing key : %v", err)
	}
}

func TestFilesystemStorage(t *testing.T) {
	testStorage(t, NewFilesystemStorage(NewConfig(StandaloneBucket, t.TempDir())))
}

func TestMemoryStorage(t *testing.T) {
	testStorage(t, NewMemoryStorage())
}

func TestCreateStorage(t *testing.T) {
	if _, ok := CreateStorage(NewConfig(StandaloneBucket, "./tmp")).(FilesystemStorage); !ok {
		t.Errorf("Standalone bucket should use the filesystem")
	}

	config := NewConfig("ckb-examples", "archive")
	config.Region = "ap-southeast-2"
	if _, ok := CreateStorage(config).(S3Storage); !ok {
		t.Errorf("Named bucket should use S3")
	}
}
