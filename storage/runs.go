// Package storage archives summarization runs in NATS KV.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/semsum/summary"
)

// BucketRuns is the KV bucket holding run records.
const BucketRuns = "SEMSUM_RUNS"

// RunRecord describes one summarization run.
type RunRecord struct {
	ID       string        `json:"id"`
	Input    string        `json:"input"`
	Rows     int           `json:"rows"`
	Columns  int           `json:"columns"`
	Ones     int           `json:"ones"`
	Patterns int           `json:"patterns"`
	Stats    summary.Stats `json:"stats"`
	Format   string        `json:"format"`
	// Output is the path the summary was written to; empty means stdout.
	Output    string        `json:"output,omitempty"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at"`
}

// NewRunID generates a new unique run ID.
func NewRunID() string {
	return uuid.New().String()
}

// RunStore provides run record storage backed by NATS KV.
type RunStore struct {
	runs jetstream.KeyValue
}

// NewRunStore creates a RunStore with the given JetStream context.
// It creates the KV bucket if it doesn't exist.
func NewRunStore(ctx context.Context, js jetstream.JetStream) (*RunStore, error) {
	runs, err := getOrCreateBucket(ctx, js, BucketRuns)
	if err != nil {
		return nil, fmt.Errorf("create runs bucket: %w", err)
	}
	return &RunStore{runs: runs}, nil
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	// Bucket doesn't exist, create it
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: fmt.Sprintf("semsum %s storage", strings.ToLower(name)),
		History:     5, // Keep last 5 revisions
	})
}

// Save stores r, assigning an ID and creation time when missing, and
// returns the ID.
func (s *RunStore) Save(ctx context.Context, r *RunRecord) (string, error) {
	if r.ID == "" {
		r.ID = NewRunID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshal run: %w", err)
	}

	if _, err := s.runs.Put(ctx, r.ID, data); err != nil {
		return "", fmt.Errorf("store run: %w", err)
	}

	return r.ID, nil
}

// Get retrieves a run record by ID.
func (s *RunStore) Get(ctx context.Context, id string) (*RunRecord, error) {
	entry, err := s.runs.Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get run: %w", err)
	}

	var r RunRecord
	if err := json.Unmarshal(entry.Value(), &r); err != nil {
		return nil, fmt.Errorf("unmarshal run: %w", err)
	}

	return &r, nil
}

// List returns all run records, newest first.
func (s *RunStore) List(ctx context.Context) ([]*RunRecord, error) {
	keys, err := s.runs.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("list run keys: %w", err)
	}

	runs := make([]*RunRecord, 0, len(keys))
	for _, key := range keys {
		r, err := s.Get(ctx, key)
		if err != nil {
			continue // Skip entries that fail to load
		}
		runs = append(runs, r)
	}

	sortNewestFirst(runs)
	return runs, nil
}

// sortNewestFirst orders records by CreatedAt descending, breaking ties by
// ID so listings are stable.
func sortNewestFirst(runs []*RunRecord) {
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}
		return runs[i].ID < runs[j].ID
	})
}

// Delete removes a run record.
func (s *RunStore) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.runs.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return nil
}

// isNotFound checks if an error indicates a key was not found.
func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, jetstream.ErrKeyNotFound) ||
		errors.Is(err, jetstream.ErrKeyDeleted) ||
		strings.Contains(err.Error(), "key not found")
}
