// Package summary decodes mined patterns into a summary graph.
//
// Each pattern becomes one node. Its columns turn into type assertions,
// edges to placeholder nodes for direct predicates, and edges to other
// pattern nodes for inverse predicates.
package summary

import (
	"slices"
	"strconv"

	"github.com/c360studio/semsum/rdf"
	"github.com/c360studio/semsum/vocabulary/semsum"
)

// Edge is an outgoing relation of a pattern node.
type Edge struct {
	Predicate string
	Object    rdf.Node
	// Target is the index of the pattern node Object refers to, or -1 when
	// Object is a literal placeholder.
	Target int
}

// Node is the summary node synthesized for one pattern.
type Node struct {
	Index  int
	IRI    string
	Extent int
	Types  []rdf.Node
	Edges  []Edge
}

// Graph is an immutable summary graph.
type Graph struct {
	ns           semsum.Namespace
	nodes        []Node
	placeholders []string
}

// Namespace returns the namespace the graph's IRIs were minted in.
func (g *Graph) Namespace() semsum.Namespace { return g.ns }

// Len returns the number of pattern nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Node returns the pattern node at index i.
func (g *Graph) Node(i int) (Node, bool) {
	if i < 0 || i >= len(g.nodes) {
		return Node{}, false
	}
	return cloneNode(g.nodes[i]), true
}

// Nodes returns a copy of all pattern nodes in pattern order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = cloneNode(n)
	}
	return out
}

// Placeholders returns the literal placeholder IRIs in first-use order.
func (g *Graph) Placeholders() []string {
	return slices.Clone(g.placeholders)
}

// Triples flattens the graph. For every node in order it emits the extent,
// then its type assertions, then its edges.
func (g *Graph) Triples() []rdf.Triple {
	var out []rdf.Triple
	extent := g.ns.Extent()
	for _, n := range g.nodes {
		subject := rdf.NamedNode(n.IRI)
		out = append(out, rdf.T(subject, extent, rdf.TypedLiteral(strconv.Itoa(n.Extent), semsum.XSDInteger)))
		for _, typ := range n.Types {
			out = append(out, rdf.T(subject, rdf.TypePredicate, typ))
		}
		for _, e := range n.Edges {
			out = append(out, rdf.T(subject, e.Predicate, e.Object))
		}
	}
	return out
}

func cloneNode(n Node) Node {
	n.Types = slices.Clone(n.Types)
	n.Edges = slices.Clone(n.Edges)
	return n
}
