// Package sqldocs exposes the state table DDL applied by the SQL drivers.
package sqldocs

import _ "embed"

// SQLite creates the key/payload state table for modernc.org/sqlite.
//
//go:embed sqlite.sql
var SQLite string

// Postgres creates the same table with a JSONB payload.
//
//go:embed postgres.sql
var Postgres string
