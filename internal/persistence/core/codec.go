// Package core holds the report collection wire format and the driver names
// shared by the persistence facade and its infra drivers.
package core

import (
	"encoding/json"
	"fmt"

	"oprdesk/pkg/domain"
)

// Driver identifies a concrete persistence backend.
type Driver string

const (
	DriverMemory   Driver = "memory"   // in-process only (tests / ephemeral)
	DriverSQLite   Driver = "sqlite"   // embedded sqlite file
	DriverPostgres Driver = "postgres" // PostgreSQL server
	DriverBlob     Driver = "blob"     // single JSON object in the blob store
)

// Encode serialises the whole collection as a JSON array. A nil slice encodes
// as [] so an emptied store never reads back as missing.
func Encode(reports []domain.Report) ([]byte, error) {
	if reports == nil {
		reports = []domain.Report{}
	}
	data, err := json.Marshal(reports)
	if err != nil {
		return nil, fmt.Errorf("encode reports: %w", err)
	}
	return data, nil
}

// Decode parses a stored payload. Empty input is an empty collection.
func Decode(data []byte) ([]domain.Report, error) {
	if len(data) == 0 {
		return []domain.Report{}, nil
	}
	var reports []domain.Report
	if err := json.Unmarshal(data, &reports); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptSnapshot, err)
	}
	if reports == nil {
		reports = []domain.Report{}
	}
	return reports, nil
}
