package encoder

import (
	"errors"
	"fmt"
)

// ErrIndexOutOfBounds indicates a row or column outside the matrix.
var ErrIndexOutOfBounds = errors.New("matrix: index out of bounds")

// Matrix is a rows×cols boolean matrix stored row-major in a flat slice.
// Cells hold 0 or 1. Only the encoder writes to it.
type Matrix struct {
	rows, cols int
	data       []uint8
}

func newMatrix(rows, cols int) *Matrix {
	return &Matrix{rows: rows, cols: cols, data: make([]uint8, rows*cols)}
}

// Rows returns the number of rows.
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the number of columns.
func (m *Matrix) Cols() int { return m.cols }

func (m *Matrix) offset(row, col int) (int, error) {
	if row < 0 || row >= m.rows || col < 0 || col >= m.cols {
		return 0, fmt.Errorf("At(%d,%d): %w", row, col, ErrIndexOutOfBounds)
	}
	return row*m.cols + col, nil
}

// At returns the cell at (row, col).
func (m *Matrix) At(row, col int) (uint8, error) {
	i, err := m.offset(row, col)
	if err != nil {
		return 0, err
	}
	return m.data[i], nil
}

// Has reports whether the cell at (row, col) is set. Out-of-range cells
// are reported as unset.
func (m *Matrix) Has(row, col int) bool {
	v, err := m.At(row, col)
	return err == nil && v == 1
}

// set marks (row, col). Setting an already-set cell is a no-op.
func (m *Matrix) set(row, col int) {
	m.data[row*m.cols+col] = 1
}

// Row returns a copy of row r.
func (m *Matrix) Row(r int) []uint8 {
	if r < 0 || r >= m.rows {
		return nil
	}
	out := make([]uint8, m.cols)
	copy(out, m.data[r*m.cols:(r+1)*m.cols])
	return out
}

// Dense returns the matrix as a freshly allocated two-dimensional array.
func (m *Matrix) Dense() [][]uint8 {
	out := make([][]uint8, m.rows)
	for r := range out {
		out[r] = m.Row(r)
	}
	return out
}

// ActiveColumns returns the set columns of row r in ascending order.
func (m *Matrix) ActiveColumns(r int) []int {
	if r < 0 || r >= m.rows {
		return nil
	}
	var cols []int
	base := r * m.cols
	for c := 0; c < m.cols; c++ {
		if m.data[base+c] == 1 {
			cols = append(cols, c)
		}
	}
	return cols
}

// ColumnSupport returns, per column, the number of set rows.
func (m *Matrix) ColumnSupport() []int {
	support := make([]int, m.cols)
	for r := 0; r < m.rows; r++ {
		base := r * m.cols
		for c := 0; c < m.cols; c++ {
			support[c] += int(m.data[base+c])
		}
	}
	return support
}

// Ones returns the number of set cells.
func (m *Matrix) Ones() int {
	n := 0
	for _, v := range m.data {
		n += int(v)
	}
	return n
}

// Density returns the fraction of set cells, or 0 for an empty matrix.
func (m *Matrix) Density() float64 {
	if len(m.data) == 0 {
		return 0
	}
	return float64(m.Ones()) / float64(len(m.data))
}
