package rdf

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cayleygraph/quad"
	_ "github.com/cayleygraph/quad/jsonld" // registers the JSON-LD reader
	"github.com/cayleygraph/quad/nquads"
	knakk "github.com/knakk/rdf"
)

const xsdString = "http://www.w3.org/2001/XMLSchema#string"

// ErrUnsupportedInput is returned for a syntax no reader handles.
var ErrUnsupportedInput = errors.New("unsupported input format")

// Syntax names an input serialization.
type Syntax string

// Supported input syntaxes.
const (
	SyntaxNQuads Syntax = "nquads"
	SyntaxTurtle Syntax = "turtle"
	SyntaxRDFXML Syntax = "rdfxml"
	SyntaxJSONLD Syntax = "jsonld"
)

// SyntaxForPath picks the input syntax from a file extension. Turtle and
// RDF/XML are read with knakk/rdf; every other extension is looked up in
// the cayleygraph/quad format registry. Unknown extensions are read as
// N-Triples.
func SyntaxForPath(path string) Syntax {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".ttl", ".turtle":
		return SyntaxTurtle
	case ".rdf", ".owl", ".xml":
		return SyntaxRDFXML
	}
	if f := quad.FormatByExt(ext); f != nil && f.Name == string(SyntaxJSONLD) {
		return SyntaxJSONLD
	}
	return SyntaxNQuads
}

// Read parses r in the given syntax, preserving statement order.
func Read(r io.Reader, syntax Syntax) ([]Triple, error) {
	switch syntax {
	case SyntaxNQuads:
		return ReadNQuads(r)
	case SyntaxTurtle:
		return readKnakk(r, knakk.Turtle)
	case SyntaxRDFXML:
		return readKnakk(r, knakk.RDFXML)
	case SyntaxJSONLD:
		f := quad.FormatByName(string(SyntaxJSONLD))
		if f == nil || f.Reader == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedInput, syntax)
		}
		qr := f.Reader(r)
		defer qr.Close()
		return readQuads(qr)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedInput, syntax)
	}
}

// ReadNQuads parses N-Triples or N-Quads from r, preserving statement order.
func ReadNQuads(r io.Reader) ([]Triple, error) {
	return readQuads(nquads.NewReader(r, true))
}

func readQuads(qr quad.Reader) ([]Triple, error) {
	var triples []Triple
	for line := 1; ; line++ {
		q, err := qr.ReadQuad()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read statement %d: %w", line, err)
		}

		t, err := FromQuad(q)
		if err != nil {
			return nil, fmt.Errorf("convert statement %d: %w", line, err)
		}
		triples = append(triples, t)
	}

	return triples, nil
}

func readKnakk(r io.Reader, format knakk.Format) ([]Triple, error) {
	dec := knakk.NewTripleDecoder(r, format)

	var triples []Triple
	for n := 1; ; n++ {
		kt, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read statement %d: %w", n, err)
		}

		subject, err := fromTerm(kt.Subj)
		if err != nil {
			return nil, fmt.Errorf("convert statement %d: %w", n, err)
		}
		object, err := fromTerm(kt.Obj)
		if err != nil {
			return nil, fmt.Errorf("convert statement %d: %w", n, err)
		}
		triples = append(triples, T(subject, kt.Pred.String(), object))
	}

	return triples, nil
}

// fromTerm converts a knakk/rdf term. Plain and xsd:string literals both
// become plain literals, matching the N-Triples reader.
func fromTerm(term knakk.Term) (Node, error) {
	switch t := term.(type) {
	case knakk.IRI:
		return NamedNode(t.String()), nil
	case knakk.Blank:
		return AnonymousNode(strings.TrimPrefix(t.String(), "_:")), nil
	case knakk.Literal:
		switch {
		case t.Lang() != "":
			return LangLiteral(t.String(), t.Lang()), nil
		case t.DataType.String() == "" || t.DataType.String() == xsdString:
			return Literal(t.String()), nil
		default:
			return TypedLiteral(t.String(), t.DataType.String()), nil
		}
	default:
		return Node{}, fmt.Errorf("%w: %v", ErrInvalidNode, term)
	}
}

// LoadFile reads a graph file, choosing the parser with SyntaxForPath.
func LoadFile(path string) ([]Triple, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open graph: %w", err)
	}
	defer f.Close()

	triples, err := Read(f, SyntaxForPath(path))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return triples, nil
}

// ParseLabel is the inverse of Node.Label. Strings starting with "_:" are
// blank nodes, strings starting with '"' are parsed as N-Triples literals
// and anything else is an IRI.
func ParseLabel(label string) (Node, error) {
	switch {
	case label == "":
		return Node{}, fmt.Errorf("%w: empty label", ErrInvalidNode)
	case strings.HasPrefix(label, "_:"):
		return AnonymousNode(label[2:]), nil
	case strings.HasPrefix(label, `"`):
		line := "<urn:semsum:s> <urn:semsum:p> " + label + " .\n"
		q, err := nquads.NewReader(strings.NewReader(line), true).ReadQuad()
		if err != nil {
			return Node{}, fmt.Errorf("%w: %s: %v", ErrInvalidNode, label, err)
		}
		return FromValue(q.Object)
	default:
		return NamedNode(label), nil
	}
}
