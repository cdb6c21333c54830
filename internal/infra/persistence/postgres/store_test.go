package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"oprdesk/internal/infra/persistence/postgres/testutil"
	"oprdesk/pkg/domain"
)

func openStub(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(driverName, _ string) (*sql.DB, error) {
		if driverName != defaultDriver {
			t.Fatalf("unexpected driver %s", driverName)
		}
		return db, nil
	})
	t.Cleanup(restore)
	store, err := NewStore(context.Background(), "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store, conn
}

func TestNewStoreEnsuresStateTable(t *testing.T) {
	store, conn := openStub(t)
	if store.DB() == nil {
		t.Fatalf("expected db handle")
	}
	var sawDDL bool
	for _, stmt := range conn.Execs {
		if strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS state") && strings.Contains(stmt, "JSONB") {
			sawDDL = true
		}
	}
	if !sawDDL {
		t.Fatalf("expected state table DDL, got execs: %v", conn.Execs)
	}
}

func TestSaveAllThenLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, conn := openStub(t)
	got, err := store.Load(ctx)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty load, got %v %v", got, err)
	}
	want := []domain.Report{{
		ID:        "1760659200000-0001",
		CreatedAt: time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC),
		Fields:    domain.Fields{ProgramName: "Hari Kantin", Organizer: "PIBG", PreparedBy: "Puan Siti"},
	}}
	if err := store.SaveAll(ctx, want); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}
	if err := store.SaveAll(ctx, want); err != nil {
		t.Fatalf("SaveAll again: %v", err)
	}
	if n := len(conn.Tables["state"]); n != 1 {
		t.Fatalf("expected one state row, got %d", n)
	}
	got, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadCorruptPayload(t *testing.T) {
	store, conn := openStub(t)
	conn.Tables["state"] = []map[string]any{{"bucket": domain.StorageKey, "payload": []byte("{bad")}}
	if _, err := store.Load(context.Background()); !errors.Is(err, domain.ErrCorruptSnapshot) {
		t.Fatalf("expected corrupt snapshot, got %v", err)
	}
}

func TestSaveAllErrorPaths(t *testing.T) {
	ctx := context.Background()
	store, conn := openStub(t)
	conn.FailBegin = true
	if err := store.SaveAll(ctx, nil); err == nil {
		t.Fatalf("expected begin failure")
	}
	conn.FailBegin = false
	conn.FailCommit = true
	if err := store.SaveAll(ctx, nil); err == nil || !strings.Contains(err.Error(), "commit") {
		t.Fatalf("expected commit failure, got %v", err)
	}
	conn.FailCommit = false
	conn.FailExec = true
	if err := store.SaveAll(ctx, nil); err == nil || !strings.Contains(err.Error(), "upsert") {
		t.Fatalf("expected upsert failure, got %v", err)
	}
}

func TestNewStoreOpenAndPingErrors(t *testing.T) {
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return nil, errors.New("dial refused") })
	if _, err := NewStore(context.Background(), "postgres://x"); err == nil {
		t.Fatalf("expected open error")
	}
	restore()

	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	restore = OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := NewStore(context.Background(), ""); err == nil {
		t.Fatalf("expected ping error")
	}
}
