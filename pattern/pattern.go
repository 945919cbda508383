// Package pattern defines mined patterns and the sources that produce them.
//
// The mining algorithm itself is a black box behind Source: given the
// encoded matrix and mining parameters it returns an ordered list of
// patterns, each a set of row indices and a set of column indices.
package pattern

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/c360studio/semsum/encoder"
)

// ErrInvalidPattern is returned when pattern input cannot be parsed.
var ErrInvalidPattern = errors.New("invalid pattern")

// ErrInvalidParams is returned by Params.Validate.
var ErrInvalidParams = errors.New("invalid mining parameters")

// Pattern is a (rows, columns) pair approximating a dense block of the matrix.
type Pattern struct {
	Rows    []int `json:"rows"`
	Columns []int `json:"columns"`
}

// New returns a pattern with sorted, de-duplicated copies of rows and cols.
func New(rows, cols []int) Pattern {
	return Pattern{Rows: normalize(rows), Columns: normalize(cols)}
}

func normalize(in []int) []int {
	out := slices.Clone(in)
	slices.Sort(out)
	return slices.Compact(out)
}

// Normalize returns a sorted, de-duplicated copy of p.
func (p Pattern) Normalize() Pattern {
	return New(p.Rows, p.Columns)
}

// Extent returns the number of distinct rows.
func (p Pattern) Extent() int {
	return len(normalize(p.Rows))
}

// HasColumn reports whether col is in the column set.
func (p Pattern) HasColumn(col int) bool {
	return slices.Contains(p.Columns, col)
}

// Params are the mining parameters handed to a Source.
type Params struct {
	// K is the number of patterns to mine.
	K int `yaml:"k" json:"k"`
	// EpsilonRow is the row-wise noise tolerance in [0,1].
	EpsilonRow float64 `yaml:"epsilon_row" json:"epsilon_row"`
	// EpsilonCol is the column-wise noise tolerance in [0,1].
	EpsilonCol float64 `yaml:"epsilon_col" json:"epsilon_col"`
}

// DefaultParams returns the parameters used when none are configured.
func DefaultParams() Params {
	return Params{K: 100, EpsilonRow: 0.6, EpsilonCol: 0.6}
}

// Validate checks that the parameters are in range.
func (p Params) Validate() error {
	if p.K <= 0 {
		return fmt.Errorf("%w: k must be positive, got %d", ErrInvalidParams, p.K)
	}
	if p.EpsilonRow < 0 || p.EpsilonRow > 1 {
		return fmt.Errorf("%w: epsilon_row must be between 0 and 1", ErrInvalidParams)
	}
	if p.EpsilonCol < 0 || p.EpsilonCol > 1 {
		return fmt.Errorf("%w: epsilon_col must be between 0 and 1", ErrInvalidParams)
	}
	return nil
}

// Source mines patterns from an encoded matrix.
type Source interface {
	Mine(ctx context.Context, m *encoder.Matrix, params Params) ([]Pattern, error)
}

// Static is a Source that returns a fixed pattern list.
type Static []Pattern

// Mine returns a copy of the static patterns.
func (s Static) Mine(ctx context.Context, _ *encoder.Matrix, _ Params) ([]Pattern, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(s), nil
}
