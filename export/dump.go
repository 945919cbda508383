package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/c360studio/semsum/encoder"
	"github.com/c360studio/semsum/pattern"
	"github.com/c360studio/semsum/rdf"
)

// Dump file names written by DumpAll.
const (
	MatrixFile   = "matrix.txt"
	FeaturesFile = "features.txt"
	SubjectsFile = "subjects.txt"
	PatternsFile = "patterns.txt"
)

// WriteMatrix writes one line per row listing the 1-based ids of its set
// columns.
func WriteMatrix(w io.Writer, m *encoder.Matrix) error {
	return pattern.WriteTransactions(w, m)
}

// WriteFeatures writes "<1-based column id> <feature>" per column.
func WriteFeatures(w io.Writer, res *encoder.Result) error {
	bw := bufio.NewWriter(w)
	var err error
	res.Columns().Each(func(i int, key encoder.FeatureKey) bool {
		_, err = fmt.Fprintf(bw, "%d %s\n", i+1, key)
		return err == nil
	})
	if err != nil {
		return err
	}
	return bw.Flush()
}

// WriteSubjects writes "<0-based row id> <IRI or _:id>" per row.
func WriteSubjects(w io.Writer, res *encoder.Result) error {
	bw := bufio.NewWriter(w)
	var err error
	res.Rows().Each(func(i int, node rdf.Node) bool {
		_, err = fmt.Fprintf(bw, "%d %s\n", i, node.Label())
		return err == nil
	})
	if err != nil {
		return err
	}
	return bw.Flush()
}

// WritePatterns writes each pattern with its extent, rows and decoded
// feature labels, tab separated.
func WritePatterns(w io.Writer, patterns []pattern.Pattern, labels encoder.ColumnLabels) error {
	bw := bufio.NewWriter(w)
	for i, p := range patterns {
		features := make([]string, 0, len(p.Columns))
		for _, c := range p.Columns {
			if key, ok := labels[c]; ok {
				features = append(features, key.String())
			} else {
				features = append(features, fmt.Sprintf("?%d", c+1))
			}
		}
		rows := make([]string, len(p.Rows))
		for j, r := range p.Rows {
			rows[j] = fmt.Sprint(r)
		}
		if _, err := fmt.Fprintf(bw, "%d\t%d\t%s\t%s\n",
			i, p.Extent(), strings.Join(rows, " "), strings.Join(features, ", ")); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// DumpAll writes the matrix, feature, subject and pattern dumps into dir.
// patterns may be nil when only the encoding is dumped.
func DumpAll(dir string, res *encoder.Result, patterns []pattern.Pattern) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dump dir: %w", err)
	}

	dumps := []dump{
		{MatrixFile, func(w io.Writer) error { return WriteMatrix(w, res.Matrix()) }},
		{FeaturesFile, func(w io.Writer) error { return WriteFeatures(w, res) }},
		{SubjectsFile, func(w io.Writer) error { return WriteSubjects(w, res) }},
	}
	if patterns != nil {
		dumps = append(dumps, dump{PatternsFile, func(w io.Writer) error { return WritePatterns(w, patterns, res.Labels()) }})
	}

	for _, d := range dumps {
		if err := writeFile(filepath.Join(dir, d.name), d.write); err != nil {
			return err
		}
	}
	return nil
}

type dump struct {
	name  string
	write func(io.Writer) error
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
