package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"oprdesk/internal/blob"
	"oprdesk/pkg/domain"
)

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()
	mem, err := Open(ctx, Config{Driver: DriverMemory}, nil)
	if err != nil || mem.Driver() != DriverMemory {
		t.Fatalf("open memory: %v", err)
	}
	sq, err := Open(ctx, Config{SQLitePath: filepath.Join(t.TempDir(), "r.db")}, nil)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	defer func() { _ = sq.Close() }()
	if sq.Driver() != DriverSQLite {
		t.Fatalf("expected sqlite default, got %s", sq.Driver())
	}
	bl, err := Open(ctx, Config{Driver: DriverBlob}, blob.NewMemory())
	if err != nil || bl.Driver() != DriverBlob {
		t.Fatalf("open blob: %v", err)
	}
	if _, err := Open(ctx, Config{Driver: DriverBlob}, nil); err == nil {
		t.Fatalf("expected blob driver to require a store")
	}
	if _, err := Open(ctx, Config{Driver: "redis"}, nil); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

func TestBlobDriverUsesStatePrefix(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemory()
	store, err := Open(ctx, Config{Driver: DriverBlob}, blobs)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.SaveAll(ctx, []domain.Report{{ID: "x"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, err := blob.ReadAll(ctx, blobs, "state/"+domain.StorageKey+".json")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(data) == 0 || data[0] != '[' {
		t.Fatalf("expected JSON array, got %s", data)
	}
}

func TestNewMemorySeed(t *testing.T) {
	store := NewMemory([]byte(`[{"id":"seed"}]`))
	got, err := store.Load(context.Background())
	if err != nil || len(got) != 1 || got[0].ID != "seed" {
		t.Fatalf("unexpected seed load %v %v", got, err)
	}
}
