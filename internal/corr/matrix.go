// Package corr computes per-row statistics and correlations over batches of
// cross-sectional time series. Rows are periods, columns are members (e.g.
// assets). NaN marks a missing value and is excluded from every statistic.
//
// All functions are pure: inputs are never mutated, so concurrent calls are
// safe as long as callers do not mutate the matrices they pass in.
package corr

import (
	"errors"
	"fmt"
	"math"
)

// ErrShapeMismatch is returned when two operands do not have the same shape.
var ErrShapeMismatch = errors.New("corr: shape mismatch")

// Matrix is a dense row-major matrix.
type Matrix struct {
	Rows, Cols int
	Data       []float64
}

// NewMatrix allocates a zero-filled rows x cols matrix.
func NewMatrix(rows, cols int) Matrix {
	return Matrix{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// FromRows builds a matrix from row slices. All rows must have equal length.
func FromRows(rows [][]float64) (Matrix, error) {
	if len(rows) == 0 {
		return Matrix{}, nil
	}
	cols := len(rows[0])
	m := NewMatrix(len(rows), cols)
	for i, r := range rows {
		if len(r) != cols {
			return Matrix{}, fmt.Errorf("%w: row %d has %d columns, want %d", ErrShapeMismatch, i, len(r), cols)
		}
		copy(m.Row(i), r)
	}
	return m, nil
}

// At returns the element at (i, j).
func (m Matrix) At(i, j int) float64 { return m.Data[i*m.Cols+j] }

// Set writes the element at (i, j).
func (m Matrix) Set(i, j int, v float64) { m.Data[i*m.Cols+j] = v }

// Row returns row i as a slice sharing the matrix storage.
func (m Matrix) Row(i int) []float64 { return m.Data[i*m.Cols : (i+1)*m.Cols] }

// Clone returns a deep copy.
func (m Matrix) Clone() Matrix {
	out := Matrix{Rows: m.Rows, Cols: m.Cols, Data: make([]float64, len(m.Data))}
	copy(out.Data, m.Data)
	return out
}

// SameShape reports whether m and o have identical dimensions.
func (m Matrix) SameShape(o Matrix) bool {
	return m.Rows == o.Rows && m.Cols == o.Cols
}

// Mask marks excluded entries of a matrix with the same shape (true = masked).
type Mask []bool

// NaNMask masks every NaN entry of x.
func NaNMask(x Matrix) Mask {
	mask := make(Mask, len(x.Data))
	for k, v := range x.Data {
		mask[k] = math.IsNaN(v)
	}
	return mask
}

// ValidCount returns the number of unmasked entries in each row.
func ValidCount(mask Mask, rows, cols int) []int {
	n := make([]int, rows)
	for i := 0; i < rows; i++ {
		for _, masked := range mask[i*cols : (i+1)*cols] {
			if !masked {
				n[i]++
			}
		}
	}
	return n
}
