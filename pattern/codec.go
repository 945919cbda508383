package pattern

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/c360studio/semsum/encoder"
)

// The text pattern format has one pattern per line:
//
//	<item ids> | <row ids>
//
// Item ids are 1-based column indices, matching the transaction format fed
// to miners. Row ids are 0-based. Blank lines and lines starting with '#'
// are ignored. The "| rows" part is optional.

// ReadText parses patterns in the text format.
func ReadText(r io.Reader) ([]Pattern, error) {
	var patterns []Pattern

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		itemPart, rowPart, _ := strings.Cut(text, "|")

		items, err := parseInts(itemPart)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: items: %v", ErrInvalidPattern, line, err)
		}
		cols := make([]int, len(items))
		for i, item := range items {
			if item < 1 {
				return nil, fmt.Errorf("%w: line %d: item ids are 1-based, got %d", ErrInvalidPattern, line, item)
			}
			cols[i] = item - 1
		}

		rows, err := parseInts(rowPart)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: rows: %v", ErrInvalidPattern, line, err)
		}
		for _, r := range rows {
			if r < 0 {
				return nil, fmt.Errorf("%w: line %d: negative row %d", ErrInvalidPattern, line, r)
			}
		}

		patterns = append(patterns, New(rows, cols))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read patterns: %w", err)
	}

	return patterns, nil
}

func parseInts(s string) ([]int, error) {
	fields := strings.Fields(s)
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// WriteText writes patterns in the text format.
func WriteText(w io.Writer, patterns []Pattern) error {
	bw := bufio.NewWriter(w)
	for _, p := range patterns {
		items := make([]string, len(p.Columns))
		for i, c := range p.Columns {
			items[i] = strconv.Itoa(c + 1)
		}
		rows := make([]string, len(p.Rows))
		for i, r := range p.Rows {
			rows[i] = strconv.Itoa(r)
		}
		if _, err := fmt.Fprintf(bw, "%s | %s\n", strings.Join(items, " "), strings.Join(rows, " ")); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadJSON parses a JSON array of {"rows": [...], "columns": [...]} objects.
// Indices are 0-based.
func ReadJSON(r io.Reader) ([]Pattern, error) {
	var raw []Pattern
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}

	patterns := make([]Pattern, len(raw))
	for i, p := range raw {
		patterns[i] = p.Normalize()
	}
	return patterns, nil
}

// WriteJSON writes patterns as an indented JSON array.
func WriteJSON(w io.Writer, patterns []Pattern) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if patterns == nil {
		patterns = []Pattern{}
	}
	return enc.Encode(patterns)
}

// WriteTransactions writes m in FIMI transaction format: one line per row
// listing the 1-based indices of its set columns.
func WriteTransactions(w io.Writer, m *encoder.Matrix) error {
	bw := bufio.NewWriter(w)
	for r := 0; r < m.Rows(); r++ {
		cols := m.ActiveColumns(r)
		items := make([]string, len(cols))
		for i, c := range cols {
			items[i] = strconv.Itoa(c + 1)
		}
		if _, err := bw.WriteString(strings.Join(items, " ") + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
