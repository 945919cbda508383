package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/c360studio/semsum/export"
)

// BatchResult is the outcome of summarizing one input in a batch.
type BatchResult struct {
	Job    Job
	Report *Report
	Err    error
}

// ResolveInputs expands glob patterns to regular files.
// Supports both single-level wildcards (*) and recursive wildcards (**).
// Plain paths must exist and be regular files. The result is deduplicated
// and sorted.
func ResolveInputs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var resolved []string

	for _, pattern := range patterns {
		paths, err := resolvePattern(pattern)
		if err != nil {
			return nil, fmt.Errorf("resolve pattern %q: %w", pattern, err)
		}
		for _, p := range paths {
			if !seen[p] {
				seen[p] = true
				resolved = append(resolved, p)
			}
		}
	}

	sort.Strings(resolved)
	return resolved, nil
}

func resolvePattern(pattern string) ([]string, error) {
	if !containsGlob(pattern) {
		info, err := os.Stat(pattern)
		if err != nil {
			return nil, err
		}
		if !info.Mode().IsRegular() {
			return nil, fmt.Errorf("not a regular file: %s", pattern)
		}
		return []string{filepath.Clean(pattern)}, nil
	}

	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob error: %w", err)
	}

	var files []string
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			continue // Skip paths that can't be stat'd
		}
		if info.Mode().IsRegular() {
			files = append(files, match)
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no files match pattern: %s", pattern)
	}
	return files, nil
}

func containsGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

// OutputPath names the summary file for input: the input's base name with
// the format's extension, placed in outDir or next to the input when outDir
// is empty.
func OutputPath(input, outDir string, format export.Format) string {
	ext := ".ttl"
	if info, ok := export.GetFormatInfo(format); ok {
		ext = info.Extension
	}
	base := filepath.Base(input)
	name := strings.TrimSuffix(base, filepath.Ext(base)) + ".summary" + ext
	if outDir == "" {
		outDir = filepath.Dir(input)
	}
	return filepath.Join(outDir, name)
}

// Batch summarizes inputs with at most workers runs in flight. Every input
// gets a result in input order; one failure does not stop the others.
// Cancelling ctx fails the runs that have not finished.
func (s *Summarizer) Batch(ctx context.Context, inputs []string, outDir string, workers int) []BatchResult {
	if workers < 1 {
		workers = 1
	}
	results := make([]BatchResult, len(inputs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	start := time.Now()
	for i, input := range inputs {
		job := Job{Input: input, Output: OutputPath(input, outDir, s.format)}
		results[i].Job = job

		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			report, err := s.Run(gCtx, job)
			results[i].Report = report
			results[i].Err = err
			if err != nil {
				s.logger.Warn("Batch input failed", "input", job.Input, "error", err)
			}
			return nil // Never propagate: other inputs keep running
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	s.logger.Info("Batch complete",
		"inputs", len(inputs),
		"failed", failed,
		"duration", time.Since(start))

	return results
}
