// Package pipeline runs the summarization stages end to end: load a graph,
// encode it, mine patterns, decode the summary and write it out.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/c360studio/semsum/encoder"
	"github.com/c360studio/semsum/export"
	"github.com/c360studio/semsum/pattern"
	"github.com/c360studio/semsum/publish"
	"github.com/c360studio/semsum/rdf"
	"github.com/c360studio/semsum/storage"
	"github.com/c360studio/semsum/summary"
	"github.com/c360studio/semsum/vocabulary/semsum"
)

const tracerName = "semsum/pipeline"

// Archive stores run records.
type Archive interface {
	Save(ctx context.Context, r *storage.RunRecord) (string, error)
}

// Job names one input graph and where its summary goes. With an empty
// Output the summary goes to Writer, or the summarizer's stdout when Writer
// is nil.
type Job struct {
	Input  string
	Output string
	Writer io.Writer
}

// Report describes a finished run.
type Report struct {
	RunID     string
	Input     string
	Output    string
	Rows      int
	Columns   int
	Ones      int
	Patterns  int
	Stats     summary.Stats
	Format    export.Format
	Published int
	Duration  time.Duration
}

// Record converts the report into an archive record.
func (r *Report) Record() *storage.RunRecord {
	return &storage.RunRecord{
		ID:       r.RunID,
		Input:    r.Input,
		Rows:     r.Rows,
		Columns:  r.Columns,
		Ones:     r.Ones,
		Patterns: r.Patterns,
		Stats:    r.Stats,
		Format:   string(r.Format),
		Output:   r.Output,
		Duration: r.Duration,
	}
}

// Summarizer runs the pipeline with a fixed pattern source and settings.
// It is safe for concurrent use by multiple goroutines.
type Summarizer struct {
	source    pattern.Source
	params    pattern.Params
	baseIRI   string
	format    export.Format
	dumpDir   string
	publisher *publish.Publisher
	archive   Archive
	stdout    io.Writer
	logger    *slog.Logger
	tracer    trace.Tracer
}

// Option configures a Summarizer.
type Option func(*Summarizer)

// WithParams sets the mining parameters passed to the source.
func WithParams(p pattern.Params) Option {
	return func(s *Summarizer) { s.params = p }
}

// WithBaseIRI sets the namespace summary IRIs are minted in.
func WithBaseIRI(base string) Option {
	return func(s *Summarizer) {
		if base != "" {
			s.baseIRI = base
		}
	}
}

// WithFormat sets the output serialization.
func WithFormat(f export.Format) Option {
	return func(s *Summarizer) {
		if f != "" {
			s.format = f
		}
	}
}

// WithDumpDir writes matrix, feature, subject and pattern dumps into dir.
// Each run gets its own subdirectory named after the input file.
func WithDumpDir(dir string) Option {
	return func(s *Summarizer) { s.dumpDir = dir }
}

// WithPublisher publishes each summary to the knowledge graph.
func WithPublisher(p *publish.Publisher) Option {
	return func(s *Summarizer) { s.publisher = p }
}

// WithArchive stores a record of every successful run.
func WithArchive(a Archive) Option {
	return func(s *Summarizer) { s.archive = a }
}

// WithStdout sets the writer used for jobs without an output path.
func WithStdout(w io.Writer) Option {
	return func(s *Summarizer) {
		if w != nil {
			s.stdout = w
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Summarizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTracerProvider sets the provider spans are created from. The global
// provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Summarizer) {
		if tp != nil {
			s.tracer = tp.Tracer(tracerName)
		}
	}
}

// NewSummarizer creates a summarizer that mines patterns with source.
func NewSummarizer(source pattern.Source, opts ...Option) (*Summarizer, error) {
	if source == nil {
		return nil, fmt.Errorf("pattern source is required")
	}
	s := &Summarizer{
		source:  source,
		params:  pattern.DefaultParams(),
		baseIRI: semsum.DefaultBase,
		format:  export.FormatTurtle,
		stdout:  os.Stdout,
		logger:  slog.Default(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.params.Validate(); err != nil {
		return nil, err
	}
	format, err := export.ParseFormat(string(s.format))
	if err != nil {
		return nil, err
	}
	s.format = format
	return s, nil
}

// Format returns the output serialization.
func (s *Summarizer) Format() export.Format { return s.format }

// Run loads job.Input and summarizes it.
func (s *Summarizer) Run(ctx context.Context, job Job) (*Report, error) {
	ctx, span := s.tracer.Start(ctx, "semsum.Run",
		trace.WithAttributes(
			attribute.String("input", job.Input),
			attribute.String("output", job.Output),
		),
	)
	defer span.End()

	triples, err := s.load(ctx, job.Input)
	if err != nil {
		return nil, s.fail(span, err)
	}

	report, err := s.summarize(ctx, triples, job)
	if err != nil {
		return nil, s.fail(span, err)
	}

	span.SetAttributes(attribute.String("run_id", report.RunID))
	span.SetStatus(codes.Ok, "")
	return report, nil
}

// Summarize summarizes triples already in memory and writes the result to
// job.Output, or stdout when it is empty. job.Input is only recorded.
func (s *Summarizer) Summarize(ctx context.Context, triples []rdf.Triple, job Job) (*Report, error) {
	ctx, span := s.tracer.Start(ctx, "semsum.Summarize",
		trace.WithAttributes(attribute.Int("triples", len(triples))),
	)
	defer span.End()

	report, err := s.summarize(ctx, triples, job)
	if err != nil {
		return nil, s.fail(span, err)
	}
	span.SetStatus(codes.Ok, "")
	return report, nil
}

func (s *Summarizer) fail(span trace.Span, err error) error {
	runsTotal.WithLabelValues(resultError).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (s *Summarizer) load(ctx context.Context, path string) ([]rdf.Triple, error) {
	_, span := s.tracer.Start(ctx, "load", trace.WithAttributes(attribute.String("path", path)))
	defer span.End()
	defer observeStage("load", time.Now())

	triples, err := rdf.LoadFile(path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("triples", len(triples)))
	return triples, nil
}

func (s *Summarizer) summarize(ctx context.Context, triples []rdf.Triple, job Job) (*Report, error) {
	start := time.Now()
	runID := storage.NewRunID()
	logger := s.logger.With("run_id", runID, "input", job.Input)

	res, err := s.encode(ctx, triples)
	if err != nil {
		return nil, err
	}
	m := res.Matrix()
	logger.Debug("Encoded graph",
		"triples", len(triples),
		"rows", m.Rows(),
		"columns", m.Cols(),
		"density", m.Density())

	patterns, err := s.mine(ctx, m)
	if err != nil {
		return nil, err
	}

	g, stats := s.decode(ctx, patterns, res.Labels())
	if stats.Skipped() > 0 {
		logger.Warn("Skipped unresolved pattern columns",
			"unmapped", stats.UnmappedColumns,
			"unresolved_inverse", stats.UnresolvedInverse)
	}

	if s.dumpDir != "" {
		dir := filepath.Join(s.dumpDir, dumpName(job.Input, runID))
		if err := export.DumpAll(dir, res, patterns); err != nil {
			return nil, fmt.Errorf("dump: %w", err)
		}
		logger.Debug("Wrote dumps", "dir", dir)
	}

	// Render before touching the output so a failure leaves nothing behind.
	doc, err := s.render(ctx, g)
	if err != nil {
		return nil, err
	}
	if err := s.write(ctx, job, doc); err != nil {
		return nil, err
	}

	report := &Report{
		RunID:    runID,
		Input:    job.Input,
		Output:   job.Output,
		Rows:     m.Rows(),
		Columns:  m.Cols(),
		Ones:     m.Ones(),
		Patterns: len(patterns),
		Stats:    stats,
		Format:   s.format,
	}

	report.Published = s.publish(ctx, logger, g, report, doc)
	report.Duration = time.Since(start)
	s.store(ctx, logger, report)

	runsTotal.WithLabelValues(resultSuccess).Inc()
	logger.Info("Summarized graph",
		"rows", report.Rows,
		"columns", report.Columns,
		"patterns", report.Patterns,
		"duration", report.Duration)

	return report, nil
}

func (s *Summarizer) encode(ctx context.Context, triples []rdf.Triple) (*encoder.Result, error) {
	_, span := s.tracer.Start(ctx, "encode")
	defer span.End()
	defer observeStage("encode", time.Now())

	res, err := encoder.Encode(triples)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("encode: %w", err)
	}

	m := res.Matrix()
	matrixRows.Observe(float64(m.Rows()))
	matrixColumns.Observe(float64(m.Cols()))
	span.SetAttributes(
		attribute.Int("rows", m.Rows()),
		attribute.Int("columns", m.Cols()),
	)
	return res, nil
}

func (s *Summarizer) mine(ctx context.Context, m *encoder.Matrix) ([]pattern.Pattern, error) {
	ctx, span := s.tracer.Start(ctx, "mine",
		trace.WithAttributes(
			attribute.Int("k", s.params.K),
			attribute.Float64("epsilon_row", s.params.EpsilonRow),
			attribute.Float64("epsilon_col", s.params.EpsilonCol),
		),
	)
	defer span.End()
	defer observeStage("mine", time.Now())

	patterns, err := s.source.Mine(ctx, m, s.params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("mine: %w", err)
	}

	patternsMined.Observe(float64(len(patterns)))
	span.SetAttributes(attribute.Int("patterns", len(patterns)))
	return patterns, nil
}

func (s *Summarizer) decode(ctx context.Context, patterns []pattern.Pattern, labels encoder.ColumnLabels) (*summary.Graph, summary.Stats) {
	_, span := s.tracer.Start(ctx, "decode")
	defer span.End()
	defer observeStage("decode", time.Now())

	g, stats := summary.Decode(patterns, labels, summary.WithBaseIRI(s.baseIRI))

	unresolvedFeatures.WithLabelValues("unmapped").Add(float64(stats.UnmappedColumns))
	unresolvedFeatures.WithLabelValues("inverse").Add(float64(stats.UnresolvedInverse))
	span.SetAttributes(
		attribute.Int("nodes", g.Len()),
		attribute.Int("placeholders", stats.Placeholders),
		attribute.Int("skipped", stats.Skipped()),
	)
	return g, stats
}

func (s *Summarizer) render(ctx context.Context, g *summary.Graph) ([]byte, error) {
	_, span := s.tracer.Start(ctx, "render", trace.WithAttributes(attribute.String("format", string(s.format))))
	defer span.End()

	var buf bytes.Buffer
	if err := export.Write(&buf, g, s.format); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Summarizer) write(ctx context.Context, job Job, doc []byte) error {
	_, span := s.tracer.Start(ctx, "write", trace.WithAttributes(attribute.String("path", job.Output)))
	defer span.End()
	defer observeStage("write", time.Now())

	var err error
	switch {
	case job.Output != "":
		err = writeFileAtomic(job.Output, doc)
	case job.Writer != nil:
		_, err = job.Writer.Write(doc)
	default:
		_, err = s.stdout.Write(doc)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// publish sends the summary to NATS. Failures are logged, not returned:
// the summary has already been written.
func (s *Summarizer) publish(ctx context.Context, logger *slog.Logger, g *summary.Graph, report *Report, doc []byte) int {
	if !s.publisher.Enabled() {
		return 0
	}
	ctx, span := s.tracer.Start(ctx, "publish")
	defer span.End()
	defer observeStage("publish", time.Now())

	n, err := s.publisher.PublishSummary(ctx, g, report.RunID)
	if err != nil {
		span.RecordError(err)
		logger.Warn("Failed to publish summary entities", "published", n, "error", err)
		return n
	}

	info, _ := export.GetFormatInfo(s.format)
	payload := &publish.DocumentPayload{
		RunID:     report.RunID,
		Format:    string(s.format),
		MIMEType:  info.MIMEType,
		Patterns:  report.Patterns,
		Document:  string(doc),
		CreatedAt: time.Now(),
	}
	if err := s.publisher.PublishDocument(ctx, payload); err != nil {
		span.RecordError(err)
		logger.Warn("Failed to publish summary document", "error", err)
	}
	span.SetAttributes(attribute.Int("entities", n))
	return n
}

func (s *Summarizer) store(ctx context.Context, logger *slog.Logger, report *Report) {
	if s.archive == nil {
		return
	}
	ctx, span := s.tracer.Start(ctx, "archive")
	defer span.End()
	defer observeStage("archive", time.Now())

	if _, err := s.archive.Save(ctx, report.Record()); err != nil {
		span.RecordError(err)
		logger.Warn("Failed to archive run", "error", err)
	}
}

// writeFileAtomic writes data to a temp file next to path and renames it.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func dumpName(input, runID string) string {
	if input == "" {
		return runID
	}
	base := filepath.Base(input)
	return base[:len(base)-len(filepath.Ext(base))]
}
