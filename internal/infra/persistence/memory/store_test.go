package memory

import (
	"context"
	"errors"
	"testing"

	"oprdesk/pkg/domain"
)

func TestStoreSaveLoad(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	got, err := s.Load(ctx)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty load, got %v %v", got, err)
	}
	reports := []domain.Report{{ID: "b"}, {ID: "a"}}
	if err := s.SaveAll(ctx, reports); err != nil {
		t.Fatalf("save: %v", err)
	}
	reports[0].ID = "mutated"
	got, err = s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" {
		t.Fatalf("unexpected order %+v", got)
	}
	if err := s.SaveAll(ctx, nil); err != nil {
		t.Fatalf("save empty: %v", err)
	}
	if string(s.Payload()) != "[]" {
		t.Fatalf("expected [] payload, got %s", s.Payload())
	}
}

func TestStoreCorruptPayload(t *testing.T) {
	s := NewStoreWithPayload([]byte("not-json"))
	if _, err := s.Load(context.Background()); !errors.Is(err, domain.ErrCorruptSnapshot) {
		t.Fatalf("expected corrupt snapshot, got %v", err)
	}
}
