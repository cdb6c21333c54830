// Package sqlite persists the report collection as one JSON row in a SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	sqldocs "oprdesk/docs/schema/sql"
	"oprdesk/internal/persistence/core"
	"oprdesk/pkg/domain"
)

var _ domain.ReportRepository = (*Store)(nil)

const defaultPath = "oprdesk.db"

// Store keeps the encoded collection in table state(bucket, payload) under
// domain.StorageKey. Every SaveAll rewrites the row inside a transaction.
type Store struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore opens (creating if needed) the SQLite file at path.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqldocs.SQLite); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Load reads and decodes the stored collection. A missing row is empty.
func (s *Store) Load(ctx context.Context) ([]domain.Report, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM state WHERE bucket = ?`, domain.StorageKey).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return []domain.Report{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select state: %w", err)
	}
	return core.Decode(payload)
}

// SaveAll replaces the stored collection.
func (s *Store) SaveAll(ctx context.Context, reports []domain.Report) (retErr error) {
	data, err := core.Encode(reports)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, domain.StorageKey, data); err != nil {
		return fmt.Errorf("upsert %s: %w", domain.StorageKey, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// Driver returns the persistence driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverSQLite }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }
