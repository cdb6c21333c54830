package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"oprdesk/internal/blob/core"
)

func TestStoreMissingKeys(t *testing.T) {
	store := New()
	ctx := context.Background()
	if _, err := store.Head(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected head not found, got %v", err)
	}
	if _, _, err := store.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected get not found, got %v", err)
	}
	if ok, err := store.Delete(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected delete false, got %v %v", ok, err)
	}
}

func TestStoreCRUD(t *testing.T) {
	store := New()
	ctx := context.Background()
	if store.Driver() != core.DriverMemory {
		t.Fatalf("driver mismatch")
	}
	info, err := store.Put(ctx, "documents/r1/OPR_a.pdf", bytes.NewReader([]byte("%PDF")), core.PutOptions{ContentType: "application/pdf", Metadata: map[string]string{"report": "r1"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 4 || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := store.Put(ctx, "documents/r1/OPR_a.pdf", bytes.NewReader([]byte("x")), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	got, rc, err := store.Get(ctx, "documents/r1/OPR_a.pdf")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != "%PDF" || got.ContentType != "application/pdf" {
		t.Fatalf("unexpected get result %q %+v", b, got)
	}
	got.Metadata["report"] = "mutated"
	head, _ := store.Head(ctx, "documents/r1/OPR_a.pdf")
	if head.Metadata["report"] != "r1" {
		t.Fatalf("metadata leaked through returned info")
	}
	if list, err := store.List(ctx, "documents/"); err != nil || len(list) != 1 {
		t.Fatalf("list: %v %d", err, len(list))
	}
	if list, _ := store.List(ctx, "uploads/"); len(list) != 0 {
		t.Fatalf("expected empty list for other prefix")
	}
	if ok, err := store.Delete(ctx, "documents/r1/OPR_a.pdf"); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if _, err := store.PresignURL(ctx, "k", core.SignedURLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported presign")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("fail") }

func TestStorePutErrors(t *testing.T) {
	store := New()
	if _, err := store.Put(context.Background(), "bad", failingReader{}, core.PutOptions{}); err == nil {
		t.Fatalf("expected read error")
	}
	if _, err := store.Put(context.Background(), " ", bytes.NewReader(nil), core.PutOptions{}); err == nil {
		t.Fatalf("expected empty key error")
	}
}

func TestStoreOverwrite(t *testing.T) {
	store := New()
	ctx := context.Background()
	if _, err := store.Overwrite(ctx, "state/x.json", bytes.NewReader([]byte("one")), core.PutOptions{}); err != nil {
		t.Fatalf("overwrite new key: %v", err)
	}
	if _, err := store.Overwrite(ctx, "state/x.json", bytes.NewReader([]byte("two")), core.PutOptions{}); err != nil {
		t.Fatalf("overwrite existing key: %v", err)
	}
	if _, err := store.Overwrite(ctx, "state/x.json", failingReader{}, core.PutOptions{}); err == nil {
		t.Fatalf("expected read error")
	}
	_, rc, err := store.Get(ctx, "state/x.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != "two" {
		t.Fatalf("expected last good payload, got %q", b)
	}
}
