package heightmap

import "fmt"

// LabelMap is an immutable integer grid where 0 is background and each positive
// value identifies one region.
type LabelMap struct {
	rows, cols int
	labels     []int
}

// NewLabelMap builds a LabelMap from row-major labels. The slice is copied.
// Negative labels are rejected.
func NewLabelMap(rows, cols int, labels []int) (LabelMap, error) {
	if rows <= 0 || cols <= 0 {
		return LabelMap{}, ErrEmpty
	}
	if len(labels) != rows*cols {
		return LabelMap{}, fmt.Errorf("label length %d does not match %dx%d", len(labels), rows, cols)
	}
	buf := make([]int, len(labels))
	for i, v := range labels {
		if v < 0 {
			return LabelMap{}, fmt.Errorf("negative label %d at index %d", v, i)
		}
		buf[i] = v
	}
	return LabelMap{rows: rows, cols: cols, labels: buf}, nil
}

// Dims returns the number of rows and columns.
func (l LabelMap) Dims() (rows, cols int) {
	return l.rows, l.cols
}

// At returns the label at (row, col).
func (l LabelMap) At(row, col int) int {
	return l.labels[row*l.cols+col]
}

// Labels returns a row-major copy of the labels.
func (l LabelMap) Labels() []int {
	out := make([]int, len(l.labels))
	copy(out, l.labels)
	return out
}

// Max returns the largest label value, 0 for an all-background map.
func (l LabelMap) Max() int {
	max := 0
	for _, v := range l.labels {
		if v > max {
			max = v
		}
	}
	return max
}

// Count returns the number of distinct positive labels.
func (l LabelMap) Count() int {
	seen := make(map[int]struct{})
	for _, v := range l.labels {
		if v > 0 {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}
