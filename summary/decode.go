package summary

import (
	"github.com/google/uuid"

	"github.com/c360studio/semsum/encoder"
	"github.com/c360studio/semsum/pattern"
	"github.com/c360studio/semsum/rdf"
	"github.com/c360studio/semsum/vocabulary/semsum"
)

// Stats counts what Decode produced and what it had to skip.
type Stats struct {
	Patterns     int `json:"patterns"`
	Types        int `json:"types"`
	DirectEdges  int `json:"direct_edges"`
	InverseEdges int `json:"inverse_edges"`
	Placeholders int `json:"placeholders"`

	// UnmappedColumns counts pattern columns with no entry in the labels.
	UnmappedColumns int `json:"unmapped_columns"`
	// UnresolvedInverse counts inverse columns for which no pattern holds
	// the matching direct column.
	UnresolvedInverse int `json:"unresolved_inverse"`
}

// Skipped returns the number of columns that produced nothing.
func (s Stats) Skipped() int { return s.UnmappedColumns + s.UnresolvedInverse }

type options struct {
	base string
}

// Option configures Decode.
type Option func(*options)

// WithBaseIRI mints pattern, placeholder and vocabulary IRIs under base.
func WithBaseIRI(base string) Option {
	return func(o *options) { o.base = base }
}

// Decode builds the summary graph for patterns, resolving each pattern
// column through labels. Neither input is modified.
func Decode(patterns []pattern.Pattern, labels encoder.ColumnLabels, opts ...Option) (*Graph, Stats) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	d := &decoder{
		ns:       semsum.NewNamespace(o.base),
		patterns: patterns,
		labels:   labels,
		direct:   labels.DirectColumns(),
		targets:  make(map[string]int),
		seen:     make(map[string]bool),
	}
	return d.run()
}

type decoder struct {
	ns       semsum.Namespace
	patterns []pattern.Pattern
	labels   encoder.ColumnLabels
	direct   map[string]int
	// targets memoizes the inverse target per predicate; -1 is unresolved.
	targets map[string]int
	seen    map[string]bool

	graph *Graph
	stats Stats
}

func (d *decoder) run() (*Graph, Stats) {
	d.graph = &Graph{ns: d.ns, nodes: make([]Node, len(d.patterns))}
	d.stats.Patterns = len(d.patterns)

	for i, p := range d.patterns {
		d.graph.nodes[i] = Node{
			Index:  i,
			IRI:    d.ns.Pattern(i),
			Extent: p.Extent(),
		}
	}

	for i, p := range d.patterns {
		node := &d.graph.nodes[i]
		for _, col := range p.Normalize().Columns {
			key, ok := d.labels[col]
			if !ok {
				d.stats.UnmappedColumns++
				continue
			}

			switch key.Kind {
			case encoder.FeatureType:
				node.Types = append(node.Types, typeNode(key.IRI))
				d.stats.Types++
			case encoder.FeatureDirect:
				node.Edges = append(node.Edges, Edge{
					Predicate: key.IRI,
					Object:    rdf.NamedNode(d.placeholder(key.IRI)),
					Target:    -1,
				})
				d.stats.DirectEdges++
			case encoder.FeatureInverse:
				target := d.inverseTarget(key.IRI)
				if target < 0 {
					d.stats.UnresolvedInverse++
					continue
				}
				node.Edges = append(node.Edges, Edge{
					Predicate: key.IRI,
					Object:    rdf.NamedNode(d.graph.nodes[target].IRI),
					Target:    target,
				})
				d.stats.InverseEdges++
			default:
				d.stats.UnmappedColumns++
			}
		}
	}

	d.stats.Placeholders = len(d.graph.placeholders)
	return d.graph, d.stats
}

// inverseTarget returns the first pattern whose columns contain the direct
// column of predicate, or -1.
func (d *decoder) inverseTarget(predicate string) int {
	if t, ok := d.targets[predicate]; ok {
		return t
	}

	target := -1
	if col, ok := d.direct[predicate]; ok {
		for i, p := range d.patterns {
			if p.HasColumn(col) {
				target = i
				break
			}
		}
	}
	d.targets[predicate] = target
	return target
}

func (d *decoder) placeholder(predicate string) string {
	iri := d.ns.Literal(uuid.NewSHA1(uuid.NameSpaceURL, []byte(predicate)).String())
	if !d.seen[iri] {
		d.seen[iri] = true
		d.graph.placeholders = append(d.graph.placeholders, iri)
	}
	return iri
}

// typeNode recovers the class node from a Type feature label.
func typeNode(label string) rdf.Node {
	n, err := rdf.ParseLabel(label)
	if err != nil {
		return rdf.NamedNode(label)
	}
	return n
}
