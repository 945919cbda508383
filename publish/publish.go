// Package publish sends summary graphs to the knowledge graph over NATS.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semstreams/natsclient"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/semsum/rdf"
	"github.com/c360studio/semsum/summary"
	"github.com/c360studio/semsum/vocabulary/semsum"
)

// Subjects used for publishing.
const (
	GraphIngestSubject   = "graph.ingest.entity"
	SummaryExportSubject = "graph.export.summary"
)

// StreamName is the JetStream stream carrying both subjects.
const StreamName = "GRAPH"

const tripleSource = "semsum.summarize"

// EntityIngestMessage is the message format for graph ingestion.
// Matches the format used by semstreams graph components.
type EntityIngestMessage struct {
	ID        string           `json:"id"`
	Triples   []message.Triple `json:"triples"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Publisher publishes summaries. A Publisher without a NATS client is a
// no-op so callers don't have to branch on configuration.
type Publisher struct {
	nc         *natsclient.Client
	logger     *slog.Logger
	org        string
	docSubject string
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithOrg sets the organization segment of entity IDs (default "local").
func WithOrg(org string) Option {
	return func(p *Publisher) {
		if org != "" {
			p.org = org
		}
	}
}

// WithDocumentSubject sets the subject documents are published on
// (default SummaryExportSubject).
func WithDocumentSubject(subject string) Option {
	return func(p *Publisher) {
		if subject != "" {
			p.docSubject = subject
		}
	}
}

// NewPublisher creates a publisher on nc. nc may be nil.
func NewPublisher(nc *natsclient.Client, opts ...Option) *Publisher {
	p := &Publisher{
		nc:         nc,
		logger:     slog.Default(),
		org:        "local",
		docSubject: SummaryExportSubject,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Enabled reports whether the publisher has a NATS client.
func (p *Publisher) Enabled() bool {
	return p != nil && p.nc != nil
}

// PublishSummary publishes one graph entity per pattern node and returns
// the number published.
func (p *Publisher) PublishSummary(ctx context.Context, g *summary.Graph, runID string) (int, error) {
	if !p.Enabled() {
		return 0, nil // Skip publishing if no NATS client (graceful degradation)
	}

	entities := Entities(g, p.org, runID, time.Now())
	for i, entity := range entities {
		data, err := json.Marshal(entity)
		if err != nil {
			return i, fmt.Errorf("marshal pattern entity: %w", err)
		}
		if err := p.nc.PublishToStream(ctx, GraphIngestSubject, data); err != nil {
			return i, fmt.Errorf("publish pattern entity %s: %w", entity.ID, err)
		}
	}

	p.logger.Debug("Published summary to graph",
		"run_id", runID,
		"entities", len(entities))

	return len(entities), nil
}

// PublishDocument publishes a serialized summary document on the document
// subject.
func (p *Publisher) PublishDocument(ctx context.Context, doc *DocumentPayload) error {
	if !p.Enabled() {
		return nil
	}
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("invalid document: %w", err)
	}

	msg := message.NewBaseMessage(DocumentType, doc, "semsum")
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	// Use JetStream for reliable delivery
	js, err := p.nc.JetStream()
	if err != nil {
		return fmt.Errorf("get jetstream: %w", err)
	}

	if _, err := js.Publish(ctx, p.docSubject, data); err != nil {
		return fmt.Errorf("publish document: %w", err)
	}

	p.logger.Debug("Published summary document",
		"run_id", doc.RunID,
		"subject", p.docSubject,
		"format", doc.Format,
		"bytes", len(doc.Document))

	return nil
}

// EnsureStream creates the GRAPH stream unless it already exists. An
// existing stream is left untouched since other services may own it.
func EnsureStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:     StreamName,
		Subjects: []string{GraphIngestSubject, "graph.export.>"},
		MaxAge:   24 * time.Hour,
		Storage:  jetstream.FileStorage,
		Replicas: 1,
	})
	if err != nil && !errors.Is(err, jetstream.ErrStreamNameAlreadyInUse) {
		return fmt.Errorf("create %s stream: %w", StreamName, err)
	}
	return nil
}

// Entities converts the pattern nodes of g into graph ingest messages.
// Edges between patterns reference entity IDs; edges to literal
// placeholders keep the placeholder IRI.
func Entities(g *summary.Graph, org, runID string, now time.Time) []EntityIngestMessage {
	nodes := g.Nodes()
	extent := g.Namespace().Extent()

	out := make([]EntityIngestMessage, 0, len(nodes))
	for _, n := range nodes {
		id := PatternEntityID(org, runID, n.Index)
		triple := func(predicate string, object any) message.Triple {
			return message.Triple{
				Subject:    id,
				Predicate:  predicate,
				Object:     object,
				Source:     tripleSource,
				Timestamp:  now,
				Confidence: 1.0,
			}
		}

		triples := []message.Triple{
			triple(semsum.OWLSameAs, n.IRI),
			triple(extent, n.Extent),
		}
		for _, typ := range n.Types {
			triples = append(triples, triple(rdf.TypePredicate, typ.Label()))
		}
		for _, e := range n.Edges {
			if e.Target >= 0 {
				triples = append(triples, triple(e.Predicate, PatternEntityID(org, runID, e.Target)))
				continue
			}
			triples = append(triples, triple(e.Predicate, e.Object.Value()))
		}

		out = append(out, EntityIngestMessage{
			ID:        id,
			Triples:   triples,
			UpdatedAt: now,
		})
	}
	return out
}

// PatternEntityID generates a consistent entity ID for a pattern node.
// Format: semsum.<org>.summary.<run>.pattern.<index>
func PatternEntityID(org, runID string, index int) string {
	if org == "" {
		org = "local"
	}
	if runID == "" {
		runID = "default"
	}
	return fmt.Sprintf("semsum.%s.summary.%s.pattern.%d", sanitize(org), sanitize(runID), index)
}

func sanitize(segment string) string {
	return strings.ReplaceAll(segment, ".", "-")
}
