package domain

import (
	"context"
	"errors"
)

// StorageKey is the namespaced key under which the whole report collection is stored.
const StorageKey = "oprdesk.reports"

// ReportRepository is the durable side of the report store. Implementations
// read and write the entire collection at once; there is no partial update.
type ReportRepository interface {
	// Load returns the stored collection newest-first. A missing key yields an
	// empty slice and no error. Undecodable payloads yield ErrCorruptSnapshot.
	Load(ctx context.Context) ([]Report, error)
	// SaveAll replaces the stored collection with reports.
	SaveAll(ctx context.Context, reports []Report) error
}

// ErrCorruptSnapshot marks a stored collection that could not be decoded.
var ErrCorruptSnapshot = errors.New("stored report collection is corrupt")
