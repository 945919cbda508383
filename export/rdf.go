// Package export serializes summary graphs and writes the encoder's debug
// dumps.
package export

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/c360studio/semsum/rdf"
	"github.com/c360studio/semsum/summary"
	"github.com/c360studio/semsum/vocabulary/semsum"
)

// Format specifies the output serialization format.
type Format string

const (
	// FormatTurtle produces Turtle (.ttl) output.
	FormatTurtle Format = "turtle"

	// FormatNTriples produces N-Triples (.nt) output.
	FormatNTriples Format = "ntriples"

	// FormatJSONLD produces JSON-LD (.jsonld) output.
	FormatJSONLD Format = "jsonld"
)

// ErrUnsupportedFormat is returned for unknown format names.
var ErrUnsupportedFormat = errors.New("unsupported format")

// ParseFormat resolves a format name or common alias.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "turtle", "ttl":
		return FormatTurtle, nil
	case "ntriples", "n-triples", "nt":
		return FormatNTriples, nil
	case "jsonld", "json-ld":
		return FormatJSONLD, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
}

// FormatForPath picks a format from a file extension, falling back to def.
func FormatForPath(path string, def Format) Format {
	ext := strings.ToLower(filepath.Ext(path))
	for format, info := range FormatRegistry {
		if info.Extension == ext {
			return format
		}
	}
	return def
}

// Write serializes g to w in the given format.
func Write(w io.Writer, g *summary.Graph, format Format) error {
	switch format {
	case FormatTurtle:
		_, err := io.WriteString(w, toTurtle(g))
		return err
	case FormatNTriples:
		return writeNTriples(w, g)
	case FormatJSONLD:
		_, err := io.WriteString(w, toJSONLD(g))
		return err
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// Render serializes g to a string.
func Render(g *summary.Graph, format Format) (string, error) {
	var sb strings.Builder
	if err := Write(&sb, g, format); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// toTurtle serializes to Turtle format.
func toTurtle(g *summary.Graph) string {
	w := NewTurtleWriter(g.Namespace())
	w.WritePrefixes()

	extent := g.Namespace().Extent()
	for _, n := range g.Nodes() {
		w.WriteSubject(n.IRI)
		for _, typ := range n.Types {
			w.WriteType(typ, false)
		}
		w.WritePredicate(extent, extentLiteral(n.Extent), len(n.Edges) == 0)
		for i, e := range n.Edges {
			w.WritePredicate(e.Predicate, e.Object, i == len(n.Edges)-1)
		}
		w.WriteBlank()
	}

	return w.String()
}

// writeNTriples serializes to N-Triples format.
func writeNTriples(w io.Writer, g *summary.Graph) error {
	nw := NewNTriplesWriter(w)
	for _, t := range g.Triples() {
		if err := nw.WriteTriple(t); err != nil {
			return err
		}
	}
	return nw.Close()
}

// toJSONLD serializes to JSON-LD format.
func toJSONLD(g *summary.Graph) string {
	w := NewJSONLDWriter()
	w.SetContext(g.Namespace().Prefixes())

	extent := g.Namespace().Extent()
	for _, n := range g.Nodes() {
		types := make([]string, len(n.Types))
		for i, typ := range n.Types {
			types[i] = typ.Label()
		}

		props := map[string]any{
			extent: formatObjectJSONLD(extentLiteral(n.Extent)),
		}
		for _, e := range n.Edges {
			obj := formatObjectJSONLD(e.Object)
			switch existing := props[e.Predicate].(type) {
			case nil:
				props[e.Predicate] = obj
			case []any:
				props[e.Predicate] = append(existing, obj)
			default:
				props[e.Predicate] = []any{existing, obj}
			}
		}

		w.AddNode(n.IRI, types, props)
	}

	return w.String()
}

func extentLiteral(n int) rdf.Node {
	return rdf.TypedLiteral(fmt.Sprint(n), semsum.XSDInteger)
}

var localName = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_-]*$`)

// compactIRI abbreviates iri with the longest matching prefix. IRIs that do
// not leave a simple local name are written in full.
func compactIRI(iri string, prefixes map[string]string) string {
	keys := make([]string, 0, len(prefixes))
	for k := range prefixes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(prefixes[keys[i]]) != len(prefixes[keys[j]]) {
			return len(prefixes[keys[i]]) > len(prefixes[keys[j]])
		}
		return keys[i] < keys[j]
	})

	for _, prefix := range keys {
		ns := prefixes[prefix]
		if local, ok := strings.CutPrefix(iri, ns); ok && localName.MatchString(local) {
			return prefix + ":" + local
		}
	}
	return "<" + iri + ">"
}

// formatObject formats an object node for Turtle output.
func formatObject(obj rdf.Node, prefixes map[string]string) string {
	switch obj.Kind() {
	case rdf.KindNamed:
		return compactIRI(obj.Value(), prefixes)
	case rdf.KindAnonymous:
		return "_:" + obj.Value()
	case rdf.KindLiteral:
		lit := fmt.Sprintf("\"%s\"", escapeString(obj.Value()))
		switch {
		case obj.Lang() != "":
			return lit + "@" + obj.Lang()
		case obj.Datatype() != "":
			return lit + "^^" + compactIRI(obj.Datatype(), prefixes)
		default:
			return lit
		}
	default:
		return `""`
	}
}

// formatObjectJSONLD formats an object node for JSON-LD output.
func formatObjectJSONLD(obj rdf.Node) any {
	switch obj.Kind() {
	case rdf.KindNamed:
		return map[string]any{"@id": obj.Value()}
	case rdf.KindAnonymous:
		return map[string]any{"@id": "_:" + obj.Value()}
	case rdf.KindLiteral:
		switch {
		case obj.Lang() != "":
			return map[string]any{"@value": obj.Value(), "@language": obj.Lang()}
		case obj.Datatype() != "":
			return map[string]any{"@value": obj.Value(), "@type": obj.Datatype()}
		default:
			return obj.Value()
		}
	default:
		return nil
	}
}

// escapeString escapes special characters in strings for RDF serialization.
func escapeString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return s
}
