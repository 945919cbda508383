package export_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semsum/encoder"
	"github.com/c360studio/semsum/export"
	"github.com/c360studio/semsum/pattern"
	"github.com/c360studio/semsum/rdf"
	"github.com/c360studio/semsum/summary"
)

const (
	knows  = "http://ex.org/knows"
	person = "http://ex.org/Person"
)

func sampleGraph(t *testing.T) *summary.Graph {
	t.Helper()
	labels := encoder.ColumnLabels{
		0: encoder.TypeFeature(person),
		1: encoder.DirectFeature(knows),
		2: encoder.InverseFeature(knows),
	}
	patterns := []pattern.Pattern{
		pattern.New([]int{0, 1}, []int{0, 1}),
		pattern.New([]int{2}, []int{2}),
	}
	g, _ := summary.Decode(patterns, labels)
	return g
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want export.Format
	}{
		{"turtle", export.FormatTurtle},
		{"TTL", export.FormatTurtle},
		{"nt", export.FormatNTriples},
		{"n-triples", export.FormatNTriples},
		{"json-ld", export.FormatJSONLD},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := export.ParseFormat(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := export.ParseFormat("rdfxml")
	assert.ErrorIs(t, err, export.ErrUnsupportedFormat)
}

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, export.FormatNTriples, export.FormatForPath("out/summary.nt", export.FormatTurtle))
	assert.Equal(t, export.FormatJSONLD, export.FormatForPath("x.JSONLD", export.FormatTurtle))
	assert.Equal(t, export.FormatTurtle, export.FormatForPath("summary.out", export.FormatTurtle))
}

func TestGetFormatInfo(t *testing.T) {
	info, ok := export.GetFormatInfo(export.FormatTurtle)
	require.True(t, ok)
	assert.Equal(t, "text/turtle", info.MIMEType)

	_, ok = export.GetFormatInfo("rdfxml")
	assert.False(t, ok)
}

func TestWriteTurtle(t *testing.T) {
	g := sampleGraph(t)

	out, err := export.Render(g, export.FormatTurtle)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "@prefix literal: <http://example.org/literal/> .\n"))
	assert.Contains(t, out, "@prefix sum: <http://example.org/vocab#> .")
	assert.Contains(t, out, "pattern:0\n    a <http://ex.org/Person> ;\n    sum:extent \"2\"^^xsd:integer ;\n    <http://ex.org/knows> literal:")
	assert.Contains(t, out, "pattern:1\n    sum:extent \"1\"^^xsd:integer ;\n    <http://ex.org/knows> pattern:0 .\n")
}

func TestWriteTurtle_NodeWithoutEdges(t *testing.T) {
	g, _ := summary.Decode([]pattern.Pattern{pattern.New([]int{0}, nil)}, nil)

	out, err := export.Render(g, export.FormatTurtle)
	require.NoError(t, err)
	assert.Contains(t, out, "pattern:0\n    sum:extent \"1\"^^xsd:integer .\n")
}

func TestWriteNTriples(t *testing.T) {
	g := sampleGraph(t)

	var buf bytes.Buffer
	require.NoError(t, export.Write(&buf, g, export.FormatNTriples))

	out := buf.String()
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 5)
	assert.Contains(t, out, "<http://example.org/pattern/1> <http://ex.org/knows> <http://example.org/pattern/0> .")
	assert.Contains(t, out, `"2"^^<http://www.w3.org/2001/XMLSchema#integer>`)

	back, err := rdf.ReadNQuads(&buf)
	require.NoError(t, err)
	assert.Equal(t, g.Triples(), back)
}

func TestWriteJSONLD(t *testing.T) {
	g := sampleGraph(t)

	out, err := export.Render(g, export.FormatJSONLD)
	require.NoError(t, err)

	doc, err := export.ParseJSONLD([]byte(out))
	require.NoError(t, err)
	require.Len(t, doc.Graph, 2)
	assert.Equal(t, "http://example.org/vocab#", doc.Context["sum"])

	p0 := doc.Graph[0]
	assert.Equal(t, "http://example.org/pattern/0", p0.ID)
	assert.Equal(t, []string{person}, p0.Type)
	assert.Equal(t, map[string]any{
		"@value": "2",
		"@type":  "http://www.w3.org/2001/XMLSchema#integer",
	}, p0.Properties["http://example.org/vocab#extent"])

	p1 := doc.Graph[1]
	assert.Empty(t, p1.Type)
	assert.Equal(t, map[string]any{"@id": "http://example.org/pattern/0"}, p1.Properties[knows])
}

func TestWriteJSONLD_RepeatedPredicate(t *testing.T) {
	labels := encoder.ColumnLabels{
		0: encoder.DirectFeature(knows),
		1: encoder.InverseFeature(knows),
	}
	g, _ := summary.Decode([]pattern.Pattern{pattern.New([]int{0}, []int{0, 1})}, labels)

	out, err := export.Render(g, export.FormatJSONLD)
	require.NoError(t, err)

	doc, err := export.ParseJSONLD([]byte(out))
	require.NoError(t, err)
	values, ok := doc.Graph[0].Properties[knows].([]any)
	require.True(t, ok)
	assert.Len(t, values, 2)
}

func TestWriteUnsupportedFormat(t *testing.T) {
	err := export.Write(&bytes.Buffer{}, sampleGraph(t), "rdfxml")
	assert.ErrorIs(t, err, export.ErrUnsupportedFormat)
}

func TestWriteEmptyGraph(t *testing.T) {
	g, _ := summary.Decode(nil, nil)

	for format := range export.FormatRegistry {
		t.Run(string(format), func(t *testing.T) {
			_, err := export.Render(g, format)
			assert.NoError(t, err)
		})
	}
}

func TestDumpAll(t *testing.T) {
	a, b := rdf.NamedNode("http://ex.org/a"), rdf.AnonymousNode("b1")
	res, err := encoder.Encode([]rdf.Triple{
		rdf.T(a, knows, b),
		rdf.T(b, rdf.TypePredicate, rdf.NamedNode(person)),
	})
	require.NoError(t, err)

	patterns := []pattern.Pattern{pattern.New([]int{1}, []int{1, 2, 9})}
	dir := filepath.Join(t.TempDir(), "dumps")
	require.NoError(t, export.DumpAll(dir, res, patterns))

	read := func(name string) string {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		return string(data)
	}

	assert.Equal(t, "1\n2 3\n", read(export.MatrixFile))
	assert.Equal(t, "1 Direct(http://ex.org/knows)\n2 Inverse(http://ex.org/knows)\n3 Type(http://ex.org/Person)\n",
		read(export.FeaturesFile))
	assert.Equal(t, "0 http://ex.org/a\n1 _:b1\n", read(export.SubjectsFile))
	assert.Equal(t, "0\t1\t1\tInverse(http://ex.org/knows), Type(http://ex.org/Person), ?10\n",
		read(export.PatternsFile))
}

func TestDumpAll_WithoutPatterns(t *testing.T) {
	res, err := encoder.Encode(nil)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, export.DumpAll(dir, res, nil))

	_, err = os.Stat(filepath.Join(dir, export.PatternsFile))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, export.MatrixFile))
	assert.NoError(t, err)
}
