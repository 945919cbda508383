// Package rdf provides the graph model consumed by the matrix encoder: a
// closed set of node kinds, triples over them, and adapters to the
// cayleygraph/quad term model for reading and writing N-Triples/N-Quads.
package rdf

import (
	"errors"
	"fmt"

	"github.com/cayleygraph/quad"
)

// Kind identifies which variant a Node holds.
type Kind uint8

// The RDF node space is fixed; every switch on Kind covers all three.
const (
	KindNamed Kind = iota + 1
	KindAnonymous
	KindLiteral
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNamed:
		return "named"
	case KindAnonymous:
		return "anonymous"
	case KindLiteral:
		return "literal"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ErrInvalidNode is returned for zero-valued or unknown nodes.
var ErrInvalidNode = errors.New("invalid node")

// Node is a graph term. It is a comparable value: two nodes built from the
// same term are equal and can be used as map keys.
type Node struct {
	kind     Kind
	value    string
	datatype string
	lang     string
}

// NamedNode returns a node identified by an IRI.
func NamedNode(iri string) Node {
	return Node{kind: KindNamed, value: iri}
}

// AnonymousNode returns a blank node with a document-scoped id.
func AnonymousNode(id string) Node {
	return Node{kind: KindAnonymous, value: id}
}

// Literal returns a plain literal.
func Literal(value string) Node {
	return Node{kind: KindLiteral, value: value}
}

// TypedLiteral returns a literal with a datatype IRI.
func TypedLiteral(value, datatype string) Node {
	return Node{kind: KindLiteral, value: value, datatype: datatype}
}

// LangLiteral returns a language-tagged literal.
func LangLiteral(value, lang string) Node {
	return Node{kind: KindLiteral, value: value, lang: lang}
}

// Kind returns the node variant.
func (n Node) Kind() Kind { return n.kind }

// Value returns the IRI, blank node id, or lexical form.
func (n Node) Value() string { return n.value }

// Datatype returns the literal datatype IRI, if any.
func (n Node) Datatype() string { return n.datatype }

// Lang returns the literal language tag, if any.
func (n Node) Lang() string { return n.lang }

// IsLiteral reports whether n is a literal.
func (n Node) IsLiteral() bool { return n.kind == KindLiteral }

// IsResource reports whether n is a named or anonymous node.
func (n Node) IsResource() bool {
	return n.kind == KindNamed || n.kind == KindAnonymous
}

// Validate checks that n holds a known kind.
func (n Node) Validate() error {
	switch n.kind {
	case KindNamed, KindAnonymous, KindLiteral:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrInvalidNode, n.kind)
	}
}

// Label returns a short identifier: the IRI for named nodes, "_:id" for
// blank nodes, and the N-Triples form for literals.
func (n Node) Label() string {
	switch n.kind {
	case KindNamed:
		return n.value
	case KindAnonymous:
		return "_:" + n.value
	case KindLiteral:
		return n.String()
	default:
		return ""
	}
}

// String returns the N-Triples representation of n.
func (n Node) String() string {
	v := ToValue(n)
	if v == nil {
		return ""
	}
	return v.String()
}

// ToValue converts n into a cayleygraph quad value. It returns nil for an
// invalid node.
func ToValue(n Node) quad.Value {
	switch n.kind {
	case KindNamed:
		return quad.IRI(n.value)
	case KindAnonymous:
		return quad.BNode(n.value)
	case KindLiteral:
		switch {
		case n.lang != "":
			return quad.LangString{Value: quad.String(n.value), Lang: n.lang}
		case n.datatype != "":
			return quad.TypedString{Value: quad.String(n.value), Type: quad.IRI(n.datatype)}
		default:
			return quad.String(n.value)
		}
	default:
		return nil
	}
}

// FromValue converts a cayleygraph quad value into a Node.
func FromValue(v quad.Value) (Node, error) {
	switch t := v.(type) {
	case nil:
		return Node{}, fmt.Errorf("%w: nil value", ErrInvalidNode)
	case quad.IRI:
		return NamedNode(string(t.Full())), nil
	case quad.BNode:
		return AnonymousNode(string(t)), nil
	case quad.String:
		return Literal(string(t)), nil
	case quad.TypedString:
		return TypedLiteral(string(t.Value), string(t.Type.Full())), nil
	case quad.LangString:
		return LangLiteral(string(t.Value), t.Lang), nil
	default:
		// Native values (ints, times, ...) only appear when a reader parses
		// typed literals; keep their lexical form.
		return Literal(fmt.Sprint(v.Native())), nil
	}
}
