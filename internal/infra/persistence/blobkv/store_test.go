package blobkv

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	blobcore "oprdesk/internal/blob/core"
	memoryblob "oprdesk/internal/infra/blob/memory"
	s3blob "oprdesk/internal/infra/blob/s3"
	"oprdesk/pkg/domain"
)

func TestStoreRoundTripAcrossBlobDrivers(t *testing.T) {
	ctx := context.Background()
	for name, blobs := range map[string]blobcore.Store{
		"memory": memoryblob.New(),
		"s3":     s3blob.NewMockForTests(),
	} {
		t.Run(name, func(t *testing.T) {
			store, err := NewStore(blobs, "state/")
			if err != nil {
				t.Fatalf("NewStore: %v", err)
			}
			if store.Key() != "state/oprdesk.reports.json" {
				t.Fatalf("unexpected key %s", store.Key())
			}
			got, err := store.Load(ctx)
			if err != nil || len(got) != 0 {
				t.Fatalf("expected empty load, got %v %v", got, err)
			}
			want := []domain.Report{
				{ID: "b", CreatedAt: time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC), Fields: domain.Fields{ProgramName: "B"}},
				{ID: "a", CreatedAt: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC), Fields: domain.Fields{ProgramName: "A"}},
			}
			if err := store.SaveAll(ctx, want); err != nil {
				t.Fatalf("save: %v", err)
			}
			if err := store.SaveAll(ctx, want[1:]); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			got, err = store.Load(ctx)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if diff := cmp.Diff(want[1:], got); diff != "" {
				t.Fatalf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStoreCorruptObject(t *testing.T) {
	ctx := context.Background()
	blobs := memoryblob.New()
	store, _ := NewStore(blobs, "")
	if _, err := blobs.Put(ctx, store.Key(), bytes.NewReader([]byte("{")), blobcore.PutOptions{}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := store.Load(ctx); !errors.Is(err, domain.ErrCorruptSnapshot) {
		t.Fatalf("expected corrupt snapshot, got %v", err)
	}
}

func TestNewStoreRequiresBlobs(t *testing.T) {
	if _, err := NewStore(nil, ""); err == nil {
		t.Fatalf("expected error")
	}
}

// flakyBlobs fails every write once armed.
type flakyBlobs struct {
	blobcore.Store
	failWrites bool
}

var errTransient = errors.New("transient write failure")

func (f *flakyBlobs) Put(ctx context.Context, key string, r io.Reader, opts blobcore.PutOptions) (blobcore.Info, error) {
	if f.failWrites {
		return blobcore.Info{}, errTransient
	}
	return f.Store.Put(ctx, key, r, opts)
}

func (f *flakyBlobs) Overwrite(ctx context.Context, key string, r io.Reader, opts blobcore.PutOptions) (blobcore.Info, error) {
	if f.failWrites {
		return blobcore.Info{}, errTransient
	}
	return f.Store.Overwrite(ctx, key, r, opts)
}

func TestFailedSaveKeepsPreviousCollection(t *testing.T) {
	ctx := context.Background()
	for name, inner := range map[string]blobcore.Store{
		"memory": memoryblob.New(),
		"s3":     s3blob.NewMockForTests(),
	} {
		t.Run(name, func(t *testing.T) {
			blobs := &flakyBlobs{Store: inner}
			store, err := NewStore(blobs, "state/")
			if err != nil {
				t.Fatalf("NewStore: %v", err)
			}
			a := domain.Report{ID: "a", CreatedAt: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC), Fields: domain.Fields{ProgramName: "A"}}
			b := domain.Report{ID: "b", CreatedAt: time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC), Fields: domain.Fields{ProgramName: "B"}}
			if err := store.SaveAll(ctx, []domain.Report{a}); err != nil {
				t.Fatalf("save: %v", err)
			}
			blobs.failWrites = true
			if err := store.SaveAll(ctx, []domain.Report{b, a}); !errors.Is(err, errTransient) {
				t.Fatalf("expected transient failure, got %v", err)
			}
			got, err := store.Load(ctx)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if diff := cmp.Diff([]domain.Report{a}, got); diff != "" {
				t.Fatalf("previous collection lost (-want +got):\n%s", diff)
			}
		})
	}
}
