package heightmap

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// HeightMap is an immutable 2D grid of elevation samples backed by a gonum dense
// matrix. The zero value is an empty map.
type HeightMap struct {
	m *mat.Dense
}

// New builds a HeightMap from row-major data. The data slice is copied.
func New(rows, cols int, data []float64) (HeightMap, error) {
	if rows <= 0 || cols <= 0 {
		return HeightMap{}, ErrEmpty
	}
	if len(data) != rows*cols {
		return HeightMap{}, fmt.Errorf("data length %d does not match %dx%d", len(data), rows, cols)
	}
	buf := make([]float64, len(data))
	copy(buf, data)
	return HeightMap{m: mat.NewDense(rows, cols, buf)}, nil
}

// FromRows builds a HeightMap from a slice of equal-length rows.
func FromRows(rows [][]float64) (HeightMap, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return HeightMap{}, ErrEmpty
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return HeightMap{}, fmt.Errorf("row %d has %d values, want %d: %w", i, len(row), cols, ErrRaggedRows)
		}
		data = append(data, row...)
	}
	return HeightMap{m: mat.NewDense(len(rows), cols, data)}, nil
}

// FromDense wraps a copy of m.
func FromDense(m mat.Matrix) HeightMap {
	return HeightMap{m: mat.DenseCopyOf(m)}
}

// Dims returns the number of rows and columns. An empty map returns (0, 0).
func (h HeightMap) Dims() (rows, cols int) {
	if h.m == nil {
		return 0, 0
	}
	return h.m.Dims()
}

// Empty reports whether the map holds no samples.
func (h HeightMap) Empty() bool {
	return h.m == nil
}

// IsSquare reports whether the map has as many rows as columns.
func (h HeightMap) IsSquare() bool {
	r, c := h.Dims()
	return r == c && r > 0
}

// At returns the sample at (row, col).
func (h HeightMap) At(row, col int) float64 {
	return h.m.At(row, col)
}

// Row returns a copy of row r.
func (h HeightMap) Row(r int) []float64 {
	_, cols := h.Dims()
	out := make([]float64, cols)
	copy(out, h.m.RawRowView(r))
	return out
}

// Data returns a row-major copy of all samples.
func (h HeightMap) Data() []float64 {
	if h.m == nil {
		return nil
	}
	raw := h.m.RawMatrix()
	out := make([]float64, 0, raw.Rows*raw.Cols)
	for r := 0; r < raw.Rows; r++ {
		out = append(out, h.m.RawRowView(r)...)
	}
	return out
}

// Dense returns a copy of the backing matrix.
func (h HeightMap) Dense() *mat.Dense {
	return mat.DenseCopyOf(h.m)
}

// Min returns the smallest sample.
func (h HeightMap) Min() float64 {
	return floats.Min(h.Data())
}

// Max returns the largest sample.
func (h HeightMap) Max() float64 {
	return floats.Max(h.Data())
}

// Square returns the top-left n×n sub-map where n is the smaller dimension.
// Some instruments emit one extra scan line, and the flattening filter
// requires square input. A map that is already square is returned as is.
func (h HeightMap) Square() HeightMap {
	rows, cols := h.Dims()
	if rows == cols {
		return h
	}
	n := rows
	if cols < n {
		n = cols
	}
	return FromDense(h.m.Slice(0, n, 0, n))
}

// String implements fmt.Stringer for log output.
func (h HeightMap) String() string {
	r, c := h.Dims()
	return fmt.Sprintf("HeightMap(%dx%d)", r, c)
}
