// Package memory keeps the encoded report collection in process memory. It
// still round-trips through the JSON codec so it behaves like the durable drivers.
package memory

import (
	"bytes"
	"context"
	"sync"

	"oprdesk/internal/persistence/core"
	"oprdesk/pkg/domain"
)

var _ domain.ReportRepository = (*Store)(nil)

// Store is an ephemeral repository.
type Store struct {
	mu      sync.RWMutex
	payload []byte
}

// NewStore returns an empty store.
func NewStore() *Store { return &Store{} }

// NewStoreWithPayload seeds the store with raw bytes, as if read from disk.
func NewStoreWithPayload(payload []byte) *Store {
	return &Store{payload: bytes.Clone(payload)}
}

// Load decodes the held payload.
func (s *Store) Load(_ context.Context) ([]domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.Decode(s.payload)
}

// SaveAll replaces the held payload.
func (s *Store) SaveAll(_ context.Context, reports []domain.Report) error {
	data, err := core.Encode(reports)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.payload = data
	s.mu.Unlock()
	return nil
}

// Payload returns a copy of the raw stored bytes.
func (s *Store) Payload() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return bytes.Clone(s.payload)
}

// Driver returns the persistence driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverMemory }

// Close is a no-op.
func (s *Store) Close() error { return nil }
