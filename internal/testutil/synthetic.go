// Package testutil builds synthetic height maps for tests.
package testutil

import (
	"github.com/ironsheep/afm-tools-mcp/internal/heightmap"
)

// Pit describes a circular depression with a flat floor.
type Pit struct {
	Row, Col float64
	Radius   float64
	Floor    float64
}

// Plane returns a size×size map of constant value level with each pit cut into
// it. A pixel belongs to a pit when its distance to the pit centre is strictly
// below the radius.
func Plane(size int, level float64, pits ...Pit) heightmap.HeightMap {
	data := make([]float64, size*size)
	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			v := level
			for _, p := range pits {
				dr, dc := float64(r)-p.Row, float64(c)-p.Col
				if dr*dr+dc*dc < p.Radius*p.Radius {
					v = p.Floor
				}
			}
			data[r*size+c] = v
		}
	}
	h, err := heightmap.New(size, size, data)
	if err != nil {
		panic(err)
	}
	return h
}

// WithRowOffsets returns h with offset(r) added to every sample of row r,
// imitating the line-to-line drift of a scanning instrument.
func WithRowOffsets(h heightmap.HeightMap, offset func(row int) float64) heightmap.HeightMap {
	rows, cols := h.Dims()
	data := h.Data()
	for r := 0; r < rows; r++ {
		o := offset(r)
		for c := 0; c < cols; c++ {
			data[r*cols+c] += o
		}
	}
	out, err := heightmap.New(rows, cols, data)
	if err != nil {
		panic(err)
	}
	return out
}

// ScenarioPit is a 100×100 plane at 50 with one pit of radius 10 centred at
// (50, 50) whose floor is at 10.
func ScenarioPit() heightmap.HeightMap {
	return Plane(100, 50, Pit{Row: 50, Col: 50, Radius: 10, Floor: 10})
}

// Labels builds a LabelMap, panicking on malformed input.
func Labels(rows, cols int, labels []int) heightmap.LabelMap {
	l, err := heightmap.NewLabelMap(rows, cols, labels)
	if err != nil {
		panic(err)
	}
	return l
}

// DiskLabels returns a size×size LabelMap with the pixels strictly inside each
// disk set to its 1-based index.
func DiskLabels(size int, disks ...Pit) heightmap.LabelMap {
	labels := make([]int, size*size)
	for i, d := range disks {
		for r := 0; r < size; r++ {
			for c := 0; c < size; c++ {
				dr, dc := float64(r)-d.Row, float64(c)-d.Col
				if dr*dr+dc*dc < d.Radius*d.Radius {
					labels[r*size+c] = i + 1
				}
			}
		}
	}
	return Labels(size, size, labels)
}
