// Package semsum provides the IRIs used by generated summary graphs.
//
// A summary graph lives under a base IRI. Pattern nodes, literal
// placeholders and the summary vocabulary are all derived from it:
//
//	<base>pattern/<i>       one node per mined pattern
//	<base>literal/<id>      placeholder object for direct predicates
//	<base>vocab#extent      number of rows covered by a pattern
package semsum

import (
	"strconv"
	"strings"
)

// DefaultBase is the base IRI used when none is configured.
const DefaultBase = "http://example.org/"

// XSD datatype IRIs used for summary attributes.
const (
	XSDNamespace = "http://www.w3.org/2001/XMLSchema#"
	XSDInteger   = XSDNamespace + "integer"
)

// Namespace derives summary IRIs from a base IRI.
type Namespace struct {
	base string
}

// NewNamespace returns a Namespace for base. An empty base selects
// DefaultBase; a base without a trailing '/' or '#' gets a '/' appended.
func NewNamespace(base string) Namespace {
	base = strings.TrimSpace(base)
	if base == "" {
		base = DefaultBase
	}
	if !strings.HasSuffix(base, "/") && !strings.HasSuffix(base, "#") {
		base += "/"
	}
	return Namespace{base: base}
}

// Base returns the normalized base IRI.
func (n Namespace) Base() string { return n.base }

// Vocab returns the summary vocabulary namespace.
func (n Namespace) Vocab() string { return n.base + "vocab#" }

// Extent returns the predicate carrying a pattern's row count.
func (n Namespace) Extent() string { return n.Vocab() + "extent" }

// Pattern returns the IRI of the i-th pattern node.
func (n Namespace) Pattern(i int) string {
	return n.base + "pattern/" + strconv.Itoa(i)
}

// Literal returns the IRI of a literal placeholder node.
func (n Namespace) Literal(id string) string {
	return n.base + "literal/" + id
}

// Prefixes returns the namespace prefixes used when serializing summaries.
func (n Namespace) Prefixes() map[string]string {
	return map[string]string{
		"rdf":     "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
		"xsd":     XSDNamespace,
		"sum":     n.Vocab(),
		"pattern": n.base + "pattern/",
		"literal": n.base + "literal/",
	}
}

// OWLSameAs links a published pattern entity back to its summary IRI.
const OWLSameAs = "http://www.w3.org/2002/07/owl#sameAs"
