package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	// resultChannelBuffer is the size of the watch result channel.
	resultChannelBuffer = 16

	defaultDebounce = 500 * time.Millisecond
)

// WatchResult is the outcome of one watch-triggered run.
type WatchResult struct {
	Report *Report
	Err    error
}

// Watcher re-summarizes an input file whenever its content changes.
type Watcher struct {
	summarizer *Summarizer
	job        Job
	input      string
	debounce   time.Duration
	watcher    *fsnotify.Watcher
	logger     *slog.Logger

	// Debouncing: collect changes before processing
	pendingMu sync.Mutex
	pending   bool

	lastHash string

	results        chan WatchResult
	droppedResults atomic.Int64
}

// NewWatcher creates a watcher for job.Input. A zero debounce uses 500ms.
func NewWatcher(s *Summarizer, job Job, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if s == nil {
		return nil, fmt.Errorf("summarizer is required")
	}
	input, err := filepath.Abs(job.Input)
	if err != nil {
		return nil, fmt.Errorf("resolve input: %w", err)
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		summarizer: s,
		job:        job,
		input:      input,
		debounce:   debounce,
		watcher:    fsw,
		logger:     logger,
		results:    make(chan WatchResult, resultChannelBuffer),
	}, nil
}

// Results returns the channel of run results. It is closed when Run returns.
func (w *Watcher) Results() <-chan WatchResult {
	return w.results
}

// Run summarizes the input once, then again after every content change,
// until ctx is cancelled. The input's directory is watched so editors that
// replace the file are followed.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.results)
	defer w.watcher.Close()

	dir := filepath.Dir(w.input)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	w.logger.Info("Watching input",
		"input", w.input,
		"debounce", w.debounce)

	w.runIfChanged(ctx)

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending(ctx)
		}
	}
}

// DroppedResults returns the number of results dropped because nobody was
// reading Results.
func (w *Watcher) DroppedResults() int64 {
	return w.droppedResults.Load()
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.input {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	w.pendingMu.Lock()
	w.pending = true
	w.pendingMu.Unlock()

	w.logger.Debug("Input change detected", "op", event.Op.String())
}

func (w *Watcher) flushPending(ctx context.Context) {
	w.pendingMu.Lock()
	pending := w.pending
	w.pending = false
	w.pendingMu.Unlock()

	if !pending || ctx.Err() != nil {
		return
	}
	w.runIfChanged(ctx)
}

// runIfChanged runs the summarizer unless the input content is identical to
// the last run.
func (w *Watcher) runIfChanged(ctx context.Context) {
	content, err := os.ReadFile(w.input)
	if err != nil {
		w.logger.Warn("Failed to read input", "input", w.input, "error", err)
		w.send(WatchResult{Err: err})
		return
	}

	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])
	if hash == w.lastHash {
		return
	}
	w.lastHash = hash

	report, err := w.summarizer.Run(ctx, w.job)
	if err != nil {
		w.logger.Warn("Watch run failed", "input", w.input, "error", err)
	}
	w.send(WatchResult{Report: report, Err: err})
}

func (w *Watcher) send(result WatchResult) {
	select {
	case w.results <- result:
	default:
		dropped := w.droppedResults.Add(1)
		w.logger.Warn("Result channel full, dropping result", "total_dropped", dropped)
	}
}
