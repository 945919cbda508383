package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/semsum/summary"
)

func TestNewRunID(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	if a == "" || b == "" {
		t.Fatal("expected non-empty IDs")
	}
	if a == b {
		t.Errorf("expected unique IDs, got %s twice", a)
	}
}

func TestRunRecordJSON(t *testing.T) {
	record := RunRecord{
		ID:        "abc",
		Input:     "graph.nt",
		Rows:      3,
		Columns:   2,
		Ones:      3,
		Patterns:  2,
		Stats:     summary.Stats{Patterns: 2, InverseEdges: 1, UnresolvedInverse: 1},
		Format:    "turtle",
		Duration:  1500 * time.Millisecond,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	data, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded RunRecord
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !decoded.CreatedAt.Equal(record.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", decoded.CreatedAt, record.CreatedAt)
	}
	decoded.CreatedAt = record.CreatedAt
	if decoded != record {
		t.Errorf("decoded record = %+v, want %+v", decoded, record)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if _, ok := raw["output"]; ok {
		t.Error("empty output should be omitted")
	}
	stats, ok := raw["stats"].(map[string]any)
	if !ok || stats["unresolved_inverse"] != float64(1) {
		t.Errorf("unexpected stats encoding: %v", raw["stats"])
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"key not found sentinel", jetstream.ErrKeyNotFound, true},
		{"wrapped sentinel", fmt.Errorf("get: %w", jetstream.ErrKeyNotFound), true},
		{"deleted", jetstream.ErrKeyDeleted, true},
		{"message text", errors.New("nats: key not found"), true},
		{"other", errors.New("timeout"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNotFound(tt.err); got != tt.want {
				t.Errorf("isNotFound(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestSortNewestFirst(t *testing.T) {
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	runs := []*RunRecord{
		{ID: "old", CreatedAt: base},
		{ID: "new", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "mid-b", CreatedAt: base.Add(time.Hour)},
		{ID: "mid-a", CreatedAt: base.Add(time.Hour)},
	}

	sortNewestFirst(runs)

	want := []string{"new", "mid-a", "mid-b", "old"}
	for i, id := range want {
		if runs[i].ID != id {
			t.Errorf("runs[%d] = %s, want %s", i, runs[i].ID, id)
		}
	}
}
