// Package blobkv persists the report collection as one JSON object in a blob store.
package blobkv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	blobcore "oprdesk/internal/blob/core"
	"oprdesk/internal/persistence/core"
	"oprdesk/pkg/domain"
)

var _ domain.ReportRepository = (*Store)(nil)

// Store writes the collection to <prefix><domain.StorageKey>.json.
type Store struct {
	blobs blobcore.Store
	key   string
	mu    sync.Mutex
}

// NewStore returns a repository over blobs. prefix is prepended to the object
// key verbatim; pass "state/" to keep state apart from archived documents.
func NewStore(blobs blobcore.Store, prefix string) (*Store, error) {
	if blobs == nil {
		return nil, fmt.Errorf("blob store required")
	}
	return &Store{blobs: blobs, key: prefix + domain.StorageKey + ".json"}, nil
}

// Key returns the object key holding the collection.
func (s *Store) Key() string { return s.key }

// Load fetches and decodes the object. A missing object is an empty collection.
func (s *Store) Load(ctx context.Context) ([]domain.Report, error) {
	_, rc, err := s.blobs.Get(ctx, s.key)
	if errors.Is(err, blobcore.ErrNotFound) {
		return []domain.Report{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", s.key, err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.key, err)
	}
	return core.Decode(data)
}

// SaveAll replaces the object in one step. A failed write leaves the
// previously saved collection readable.
func (s *Store) SaveAll(ctx context.Context, reports []domain.Report) error {
	data, err := core.Encode(reports)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.blobs.Overwrite(ctx, s.key, bytes.NewReader(data), blobcore.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"reports": fmt.Sprint(len(reports))},
	}); err != nil {
		return fmt.Errorf("overwrite %s: %w", s.key, err)
	}
	return nil
}

// Driver returns the persistence driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverBlob }

// Close is a no-op; the blob store is owned by the caller.
func (s *Store) Close() error { return nil }
