// Package persistence is the only entry point to durable report storage. It
// selects an infra driver from configuration.
package persistence

import (
	"context"
	"fmt"

	"oprdesk/internal/blob"
	"oprdesk/internal/infra/persistence/blobkv"
	"oprdesk/internal/infra/persistence/memory"
	"oprdesk/internal/infra/persistence/postgres"
	"oprdesk/internal/infra/persistence/sqlite"
	"oprdesk/internal/persistence/core"
	"oprdesk/pkg/domain"
)

// Driver identifies a concrete persistence backend.
type Driver = core.Driver

const (
	DriverMemory   = core.DriverMemory
	DriverSQLite   = core.DriverSQLite
	DriverPostgres = core.DriverPostgres
	DriverBlob     = core.DriverBlob
)

// Store is a report repository that owns backend resources.
type Store interface {
	domain.ReportRepository
	Driver() Driver
	Close() error
}

// Config selects and parameterises a persistence driver.
type Config struct {
	Driver      Driver `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
	BlobPrefix  string `yaml:"blob_prefix"` // default "state/"
}

// Open builds the Store described by cfg. An empty driver means sqlite. The
// blob driver requires blobs.
func Open(ctx context.Context, cfg Config, blobs blob.Store) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}
	switch driver {
	case DriverMemory:
		return memory.NewStore(), nil
	case DriverSQLite:
		return sqlite.NewStore(ctx, cfg.SQLitePath)
	case DriverPostgres:
		return postgres.NewStore(ctx, cfg.PostgresDSN)
	case DriverBlob:
		prefix := cfg.BlobPrefix
		if prefix == "" {
			prefix = "state/"
		}
		return blobkv.NewStore(blobs, prefix)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

// MemoryStore is the ephemeral driver; Payload exposes the serialised state.
type MemoryStore = memory.Store

// NewMemory returns an ephemeral store, optionally seeded with a raw payload.
func NewMemory(seed []byte) *MemoryStore { return memory.NewStoreWithPayload(seed) }
