package sqldocs

import (
	"strings"
	"testing"
)

func TestBundlesDefineStateTable(t *testing.T) {
	for name, ddl := range map[string]string{"sqlite": SQLite, "postgres": Postgres} {
		if !strings.Contains(ddl, "CREATE TABLE IF NOT EXISTS state") || !strings.Contains(ddl, "bucket TEXT PRIMARY KEY") {
			t.Fatalf("%s bundle missing state table: %q", name, ddl)
		}
	}
	if !strings.Contains(Postgres, "JSONB") || !strings.Contains(SQLite, "BLOB") {
		t.Fatalf("unexpected payload column types")
	}
}
