package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	fsstore "oprdesk/internal/infra/blob/fs"
	memorystore "oprdesk/internal/infra/blob/memory"
	s3store "oprdesk/internal/infra/blob/s3"
)

// S3Config re-exports the infra S3 configuration.
type S3Config = s3store.Config

// Config selects and parameterises a blob driver.
type Config struct {
	Driver Driver   `yaml:"driver"`
	FSRoot string   `yaml:"fs_root"` // default ./blobdata
	S3     S3Config `yaml:"s3"`
}

// Open builds the blob.Store described by cfg. An empty driver means fs.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return NewFilesystem(cfg.FSRoot)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}

// NewMemory returns an in-memory blob.Store suitable for tests.
func NewMemory() Store { return memorystore.New() }

// NewFilesystem constructs a filesystem-backed blob.Store rooted at root.
func NewFilesystem(root string) (Store, error) { return fsstore.New(root) }

// NewS3 constructs an S3-backed blob.Store.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) { return s3store.New(ctx, cfg) }

// NewMockS3ForTests exposes the in-memory S3 fake for cross-package tests.
func NewMockS3ForTests() Store { return s3store.NewMockForTests() }

// Replace writes data at key over any previous object. On failure the
// previous object is left in place.
func Replace(ctx context.Context, store Store, key string, data []byte, opts PutOptions) (Info, error) {
	info, err := store.Overwrite(ctx, key, bytes.NewReader(data), opts)
	if err != nil {
		return Info{}, fmt.Errorf("replace %s: %w", key, err)
	}
	return info, nil
}

// ReadAll returns the full contents of key. Missing keys yield ErrNotFound.
func ReadAll(ctx context.Context, store Store, key string) ([]byte, error) {
	_, rc, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

// IsNotFound reports whether err means the key does not exist.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
