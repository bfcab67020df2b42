package imaging

import (
	"github.com/ironsheep/afm-tools-mcp/internal/heightmap"
)

// Grid is a mutable row-major float64 image used for intermediate results.
//
// Unlike heightmap.HeightMap it is scratch space: filters allocate a new Grid
// for their output and never write to their input.
type Grid struct {
	Rows int
	Cols int
	Pix  []float64
}

// NewGrid allocates a zero-filled rows×cols grid.
func NewGrid(rows, cols int) *Grid {
	return &Grid{Rows: rows, Cols: cols, Pix: make([]float64, rows*cols)}
}

// FromHeightMap copies a height map into a Grid.
func FromHeightMap(h heightmap.HeightMap) *Grid {
	rows, cols := h.Dims()
	return &Grid{Rows: rows, Cols: cols, Pix: h.Data()}
}

// HeightMap copies g into an immutable height map.
func (g *Grid) HeightMap() (heightmap.HeightMap, error) {
	return heightmap.New(g.Rows, g.Cols, g.Pix)
}

// At returns the value at (row, col).
func (g *Grid) At(row, col int) float64 {
	return g.Pix[row*g.Cols+col]
}

// Set stores v at (row, col).
func (g *Grid) Set(row, col int, v float64) {
	g.Pix[row*g.Cols+col] = v
}

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	out := NewGrid(g.Rows, g.Cols)
	copy(out.Pix, g.Pix)
	return out
}

// MinMax returns the smallest and largest values.
func (g *Grid) MinMax() (min, max float64) {
	if len(g.Pix) == 0 {
		return 0, 0
	}
	min, max = g.Pix[0], g.Pix[0]
	for _, v := range g.Pix[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}
