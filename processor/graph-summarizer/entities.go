package graphsummarizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	ssgraph "github.com/c360studio/semstreams/graph"
	"github.com/c360studio/semstreams/message"

	"github.com/c360studio/semsum/publish"
	"github.com/c360studio/semsum/rdf"
)

const (
	xsdBoolean  = "http://www.w3.org/2001/XMLSchema#boolean"
	xsdInteger  = "http://www.w3.org/2001/XMLSchema#integer"
	xsdDouble   = "http://www.w3.org/2001/XMLSchema#double"
	xsdDateTime = "http://www.w3.org/2001/XMLSchema#dateTime"

	// summaryPrefix marks entities published by semsum itself.
	summaryPrefix = "semsum."
)

var errNotGraphable = errors.New("payload does not implement Graphable")

// decodeEntity extracts the entity ID and triples from a message body. Both
// bare entity ingest messages and BaseMessage envelopes carrying a
// Graphable payload are accepted.
func decodeEntity(data []byte) (string, []message.Triple, error) {
	var ingest publish.EntityIngestMessage
	if err := json.Unmarshal(data, &ingest); err == nil && ingest.ID != "" && len(ingest.Triples) > 0 {
		return ingest.ID, ingest.Triples, nil
	}

	var baseMsg message.BaseMessage
	if err := json.Unmarshal(data, &baseMsg); err != nil {
		return "", nil, fmt.Errorf("unmarshal base message: %w", err)
	}
	graphable, ok := baseMsg.Payload().(ssgraph.Graphable)
	if !ok {
		return "", nil, errNotGraphable
	}
	return graphable.EntityID(), graphable.Triples(), nil
}

// toTriple converts a graph triple into the summarizer's triple model.
// Entity IDs and IRIs become named nodes; everything else is a literal.
func toTriple(t message.Triple) (rdf.Triple, bool) {
	if t.Subject == "" || t.Predicate == "" || t.Object == nil {
		return rdf.Triple{}, false
	}

	predicate := t.Predicate
	if predicate == "rdf:type" {
		predicate = rdf.TypePredicate
	}

	var object rdf.Node
	switch v := t.Object.(type) {
	case string:
		if v == "" {
			return rdf.Triple{}, false
		}
		if isResource(v) {
			object = rdf.NamedNode(v)
		} else {
			object = rdf.Literal(v)
		}
	case bool:
		object = rdf.TypedLiteral(strconv.FormatBool(v), xsdBoolean)
	case int:
		object = rdf.TypedLiteral(strconv.Itoa(v), xsdInteger)
	case int64:
		object = rdf.TypedLiteral(strconv.FormatInt(v, 10), xsdInteger)
	case float64:
		object = rdf.TypedLiteral(strconv.FormatFloat(v, 'g', -1, 64), xsdDouble)
	case time.Time:
		object = rdf.TypedLiteral(v.UTC().Format(time.RFC3339Nano), xsdDateTime)
	default:
		object = rdf.Literal(fmt.Sprint(v))
	}

	return rdf.T(rdf.NamedNode(t.Subject), predicate, object), true
}

// isResource reports whether s names a resource: an absolute IRI, a URN or
// a six-part entity ID (org.platform.domain.system.type.instance).
func isResource(s string) bool {
	if strings.ContainsAny(s, " \t\n") {
		return false
	}
	if strings.Contains(s, "://") || strings.HasPrefix(s, "urn:") {
		return true
	}
	parts := strings.Split(s, ".")
	if len(parts) != 6 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}

// window is a tumbling window of entities. An entity seen again replaces
// its earlier triples but keeps its first-seen position, so encoding the
// window is deterministic.
type window struct {
	mu       sync.Mutex
	order    []string
	entities map[string][]rdf.Triple
}

func newWindow() *window {
	return &window{entities: make(map[string][]rdf.Triple)}
}

// add stores the entity's triples and returns the window size.
func (w *window) add(id string, triples []rdf.Triple) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.entities[id]; !ok {
		w.order = append(w.order, id)
	}
	w.entities[id] = triples
	return len(w.order)
}

// batch is a drained window.
type batch struct {
	order    []string
	entities map[string][]rdf.Triple
}

// triples returns the batch's triples in entity order.
func (b batch) triples() []rdf.Triple {
	var out []rdf.Triple
	for _, id := range b.order {
		out = append(out, b.entities[id]...)
	}
	return out
}

// drain empties the window and returns its contents.
func (w *window) drain() batch {
	w.mu.Lock()
	defer w.mu.Unlock()

	b := batch{order: w.order, entities: w.entities}
	w.order = nil
	w.entities = make(map[string][]rdf.Triple)
	return b
}

// restore puts a drained batch back in front of the current window.
// Entities received since the drain keep their newer triples.
func (w *window) restore(b batch) {
	w.mu.Lock()
	defer w.mu.Unlock()

	order := make([]string, 0, len(b.order)+len(w.order))
	entities := make(map[string][]rdf.Triple, len(b.order)+len(w.order))
	for _, id := range b.order {
		order = append(order, id)
		entities[id] = b.entities[id]
	}
	for _, id := range w.order {
		if _, ok := entities[id]; !ok {
			order = append(order, id)
		}
		entities[id] = w.entities[id]
	}
	w.order = order
	w.entities = entities
}

func (w *window) len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.order)
}
