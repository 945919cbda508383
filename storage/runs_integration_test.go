//go:build integration

package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/c360studio/semstreams/natsclient"

	"github.com/c360studio/semsum/summary"
)

func newTestStore(t *testing.T) *RunStore {
	t.Helper()
	tc := natsclient.NewTestClient(t, natsclient.WithJetStream())

	js, err := tc.Client.JetStream()
	if err != nil {
		t.Fatalf("get jetstream: %v", err)
	}

	store, err := NewRunStore(context.Background(), js)
	if err != nil {
		t.Fatalf("NewRunStore() error = %v", err)
	}
	return store
}

func TestRunStore_SaveAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := &RunRecord{
		Input:    "people.nt",
		Rows:     10,
		Columns:  4,
		Patterns: 3,
		Stats:    summary.Stats{Patterns: 3, Types: 2},
		Format:   "turtle",
	}

	id, err := store.Save(ctx, record)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if id == "" || record.ID != id {
		t.Fatalf("expected ID to be assigned, got %q", id)
	}
	if record.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	got, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Input != "people.nt" || got.Rows != 10 || got.Stats.Types != 2 {
		t.Errorf("unexpected record %+v", got)
	}
}

func TestRunStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "does-not-exist")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRunStore_ListAndDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	runs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() on empty bucket error = %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected no runs, got %d", len(runs))
	}

	base := time.Now()
	for i, input := range []string{"b.nt", "a.nt"} {
		_, err := store.Save(ctx, &RunRecord{Input: input, CreatedAt: base.Add(time.Duration(i) * time.Second)})
		if err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	runs, err = store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Input != "a.nt" || runs[1].Input != "b.nt" {
		t.Fatalf("expected newest run first, got %s then %s", runs[0].Input, runs[1].Input)
	}

	if err := store.Delete(ctx, runs[0].ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, runs[0].ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting missing run, got %v", err)
	}
}
