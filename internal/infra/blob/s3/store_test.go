package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strconv"
	"testing"

	"oprdesk/internal/blob/core"
)

func TestStore_MockedBasicFlow(t *testing.T) {
	ctx := context.Background()
	store := NewMockForTests()
	if store.Driver() != core.DriverS3 || store.Bucket() != "mock-bucket" {
		t.Fatalf("unexpected store identity")
	}
	key := "uploads/OPR_Sports_Day_1760659200000.pdf"
	if _, err := store.Head(ctx, key); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found before put, got %v", err)
	}
	info, err := store.Put(ctx, key, bytes.NewReader([]byte("%PDF-1.7 body")), core.PutOptions{ContentType: "application/pdf"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != int64(len("%PDF-1.7 body")) || info.ContentType != "application/pdf" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := store.Put(ctx, key, bytes.NewReader([]byte("again")), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	_, rc, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != "%PDF-1.7 body" {
		t.Fatalf("unexpected body %q", b)
	}
	u, err := store.PresignURL(ctx, key, core.SignedURLOptions{})
	if err != nil || u == "" {
		t.Fatalf("presign: %v %q", err, u)
	}
	if _, err := store.PresignURL(ctx, key, core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported, got %v", err)
	}
	ok, err := store.Delete(ctx, key)
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	ok, err = store.Delete(ctx, key)
	if err != nil || ok {
		t.Fatalf("second delete should report missing: %v %v", ok, err)
	}
	if _, _, err := store.Get(ctx, key); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected get not found, got %v", err)
	}
}

func TestStore_ListPaginates(t *testing.T) {
	ctx := context.Background()
	store := NewMockForTests()
	for i := 4; i >= 0; i-- {
		k := "documents/r" + strconv.Itoa(i) + ".pdf"
		if _, err := store.Put(ctx, k, bytes.NewReader([]byte("x")), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}
	if _, err := store.Put(ctx, "state/other.json", bytes.NewReader([]byte("{}")), core.PutOptions{}); err != nil {
		t.Fatalf("put other: %v", err)
	}
	list, err := store.List(ctx, "documents/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 5 {
		t.Fatalf("expected 5 keys across pages, got %d", len(list))
	}
	for i, info := range list {
		if want := "documents/r" + strconv.Itoa(i) + ".pdf"; info.Key != want {
			t.Fatalf("position %d: got %s want %s", i, info.Key, want)
		}
	}
}

func TestStore_NewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected bucket error")
	}
	s, err := New(context.Background(), Config{Bucket: "reports", Endpoint: "http://localhost:9000", PathStyle: true, AccessKeyID: "k", SecretAccessKey: "s"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if s.Bucket() != "reports" {
		t.Fatalf("unexpected bucket %s", s.Bucket())
	}
}

func TestDecodeChunked(t *testing.T) {
	payload := "5;chunk-signature=abc\r\nhello\r\n6\r\n\r\nworld\r\n0\r\nx-amz-checksum-crc32:AAAA\r\n\r\n"
	got, err := decodeChunked([]byte(payload))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(got) != "hello\r\nworld" {
		t.Fatalf("unexpected decode %q", got)
	}
	if _, err := decodeChunked([]byte("zz\r\n")); err == nil {
		t.Fatalf("expected size error")
	}
}

func TestStore_OverwriteReplacesExisting(t *testing.T) {
	ctx := context.Background()
	store := NewMockForTests()
	key := "state/oprdesk.reports.json"
	if _, err := store.Put(ctx, key, bytes.NewReader([]byte("[]")), core.PutOptions{ContentType: "application/json"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	info, err := store.Overwrite(ctx, key, bytes.NewReader([]byte(`[{"id":"a"}]`)), core.PutOptions{ContentType: "application/json"})
	if err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if info.Size != int64(len(`[{"id":"a"}]`)) {
		t.Fatalf("unexpected info %+v", info)
	}
	_, rc, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != `[{"id":"a"}]` {
		t.Fatalf("unexpected body %q", b)
	}
}
