package rdf

import (
	"errors"
	"fmt"

	"github.com/cayleygraph/quad"
	rdfvoc "github.com/cayleygraph/quad/voc/rdf"
)

// TypePredicate is the reserved rdf:type predicate IRI.
var TypePredicate = string(quad.IRI(rdfvoc.Type).Full())

// ErrLiteralSubject is returned for triples whose subject is a literal.
var ErrLiteralSubject = errors.New("literal subject")

// Triple is a subject-predicate-object statement.
type Triple struct {
	Subject   Node
	Predicate string
	Object    Node
}

// T is shorthand for building a triple.
func T(subject Node, predicate string, object Node) Triple {
	return Triple{Subject: subject, Predicate: predicate, Object: object}
}

// IsTypeAssertion reports whether t uses the rdf:type predicate.
func (t Triple) IsTypeAssertion() bool {
	return t.Predicate == TypePredicate
}

// Validate checks the triple against the data-model invariants: a resource
// subject and valid nodes on both ends.
func (t Triple) Validate() error {
	if err := t.Subject.Validate(); err != nil {
		return fmt.Errorf("subject: %w", err)
	}
	if t.Subject.IsLiteral() {
		return fmt.Errorf("%w: %s", ErrLiteralSubject, t.Subject)
	}
	if err := t.Object.Validate(); err != nil {
		return fmt.Errorf("object: %w", err)
	}
	return nil
}

// String returns the N-Triples line for t, without the trailing newline.
func (t Triple) String() string {
	return fmt.Sprintf("%s <%s> %s .", t.Subject, t.Predicate, t.Object)
}

// ToQuad converts t into a quad in the default graph.
func ToQuad(t Triple) quad.Quad {
	return quad.Quad{
		Subject:   ToValue(t.Subject),
		Predicate: quad.IRI(t.Predicate),
		Object:    ToValue(t.Object),
	}
}

// FromQuad converts a quad into a triple. The graph label is dropped.
func FromQuad(q quad.Quad) (Triple, error) {
	subject, err := FromValue(q.Subject)
	if err != nil {
		return Triple{}, fmt.Errorf("subject: %w", err)
	}

	predicate, ok := q.Predicate.(quad.IRI)
	if !ok {
		return Triple{}, fmt.Errorf("predicate %v is not an IRI", q.Predicate)
	}

	object, err := FromValue(q.Object)
	if err != nil {
		return Triple{}, fmt.Errorf("object: %w", err)
	}

	return Triple{
		Subject:   subject,
		Predicate: string(predicate.Full()),
		Object:    object,
	}, nil
}
