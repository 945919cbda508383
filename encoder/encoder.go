// Package encoder turns a triple graph into a boolean matrix for pattern
// mining.
//
// Rows are graph entities: every subject, plus every non-literal object of a
// non-type predicate. Columns are features:
//
//   - Type(c)     the row is declared rdf:type c
//   - Direct(p)   the row is the subject of some p triple
//   - Inverse(p)  the row is the object of some p triple
//
// Rows and columns are numbered in first-seen order during one left-to-right
// scan, so encoding the same sequence twice yields identical indices. An
// Inverse(p) column is created right after Direct(p), and only when the
// first triple using p has a non-literal object.
package encoder

import (
	"errors"
	"fmt"

	"github.com/c360studio/semsum/index"
	"github.com/c360studio/semsum/rdf"
)

// ErrMalformedTriple rejects an encode call whose input violates the graph
// model, for example a literal subject.
var ErrMalformedTriple = errors.New("malformed triple")

// Result is the output of Encode. It is read-only once returned.
type Result struct {
	matrix  *Matrix
	rows    *index.Ordered[rdf.Node]
	columns *index.Ordered[FeatureKey]
}

// Matrix returns the encoded boolean matrix.
func (r *Result) Matrix() *Matrix { return r.matrix }

// Rows returns the row index: node -> row.
func (r *Result) Rows() index.Reader[rdf.Node] { return r.rows }

// Columns returns the column index: feature -> column.
func (r *Result) Columns() index.Reader[FeatureKey] { return r.columns }

// Labels returns a fresh column -> feature map for the decoder.
func (r *Result) Labels() ColumnLabels {
	labels := make(ColumnLabels, r.columns.Len())
	r.columns.Each(func(i int, key FeatureKey) bool {
		labels[i] = key
		return true
	})
	return labels
}

// Encode builds the row index, the column index and the matrix from triples.
// An empty input yields a 0×0 matrix. Duplicate triples are harmless.
// On a malformed triple Encode returns ErrMalformedTriple and no result.
func Encode(triples []rdf.Triple) (*Result, error) {
	rows := index.New[rdf.Node]()
	columns := index.New[FeatureKey]()

	// Pass 1: discover rows and columns.
	for i, t := range triples {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("%w: statement %d: %w", ErrMalformedTriple, i, err)
		}

		rows.Add(t.Subject)

		if t.IsTypeAssertion() {
			// Named classes are column keys only; blank-node classes are
			// still graph nodes and get a row.
			if t.Object.Kind() == rdf.KindAnonymous {
				rows.Add(t.Object)
			}
			columns.Add(TypeFeature(t.Object.Label()))
			continue
		}

		if t.Object.IsResource() {
			rows.Add(t.Object)
		}
		if _, added := columns.Add(DirectFeature(t.Predicate)); added && t.Object.IsResource() {
			columns.Add(InverseFeature(t.Predicate))
		}
	}

	// Pass 2: populate.
	m := newMatrix(rows.Len(), columns.Len())
	for _, t := range triples {
		subject, _ := rows.Index(t.Subject)

		if t.IsTypeAssertion() {
			col, _ := columns.Index(TypeFeature(t.Object.Label()))
			m.set(subject, col)
			continue
		}

		col, _ := columns.Index(DirectFeature(t.Predicate))
		m.set(subject, col)

		if !t.Object.IsResource() {
			continue
		}
		inverse, ok := columns.Index(InverseFeature(t.Predicate))
		if !ok {
			continue
		}
		if object, ok := rows.Index(t.Object); ok {
			m.set(object, inverse)
		}
	}

	return &Result{matrix: m, rows: rows, columns: columns}, nil
}
