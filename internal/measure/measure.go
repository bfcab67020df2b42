// Package measure turns labelled hole regions into physical measurements.
package measure

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/ironsheep/afm-tools-mcp/internal/heightmap"
)

// ErrDimensionMismatch is returned when a label map and a height map differ in size.
var ErrDimensionMismatch = errors.New("label map and height map dimensions differ")

// Particle is the measurement of one hole region.
type Particle struct {
	// Label is the region's value in the label map.
	Label int `json:"label"`

	// CenterRow and CenterCol are the rounded centroid of the region.
	CenterRow int `json:"center_row"`
	CenterCol int `json:"center_col"`

	// AreaPixels is the number of samples in the region.
	AreaPixels int `json:"area_px"`

	// Diameter is the diameter of the circle of equal area, in nanometers.
	Diameter float64 `json:"diameter_nm"`

	// Depth is the lowest flattened height in the scan window of the
	// equivalent circle, in the height units of the map. Holes are negative.
	Depth float64 `json:"depth"`
}

// region accumulates the pixel statistics of one label.
type region struct {
	area           int
	sumRow, sumCol float64
}

// ClearBorder returns labels with every region that has at least one pixel on
// the outermost row or column set to background. Regions are removed whole.
func ClearBorder(labels heightmap.LabelMap) (heightmap.LabelMap, error) {
	rows, cols := labels.Dims()
	if rows == 0 {
		return labels, nil
	}
	data := labels.Labels()

	onBorder := make(map[int]bool)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if r != 0 && r != rows-1 && c != 0 && c != cols-1 {
				continue
			}
			if v := data[r*cols+c]; v > 0 {
				onBorder[v] = true
			}
		}
	}
	if len(onBorder) == 0 {
		return labels, nil
	}
	for i, v := range data {
		if onBorder[v] {
			data[i] = 0
		}
	}
	return heightmap.NewLabelMap(rows, cols, data)
}

// ExtractProperties measures every region of labels that does not touch the
// image border.
//
// For a region of A pixels the diameter is that of the circle of equal area,
// 2·√(A/π)·scale. The depth is the minimum of flattened over the scan window
// of that circle around the rounded centroid (see depthWindow); samples that
// would fall outside the image are skipped, and if none remain the centroid
// sample is used. Particles are returned in ascending label order. A label map
// without interior regions yields an empty slice and no error.
func ExtractProperties(labels heightmap.LabelMap, flattened heightmap.HeightMap, scale heightmap.ScaleFactor) ([]Particle, error) {
	if err := scale.Validate(); err != nil {
		return nil, err
	}
	lr, lc := labels.Dims()
	fr, fc := flattened.Dims()
	if lr != fr || lc != fc {
		return nil, fmt.Errorf("labels %dx%d, height map %dx%d: %w", lr, lc, fr, fc, ErrDimensionMismatch)
	}

	interior, err := ClearBorder(labels)
	if err != nil {
		return nil, err
	}

	regions := collectRegions(interior)
	ids := make([]int, 0, len(regions))
	for id := range regions {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	particles := make([]Particle, 0, len(ids))
	for _, id := range ids {
		reg := regions[id]
		n := float64(reg.area)
		p := Particle{
			Label:      id,
			CenterRow:  int(math.Round(reg.sumRow / n)),
			CenterCol:  int(math.Round(reg.sumCol / n)),
			AreaPixels: reg.area,
			Diameter:   2 * math.Sqrt(n/math.Pi) * float64(scale),
		}
		p.Depth = windowMinimum(flattened, p.CenterRow, p.CenterCol, p.Diameter/2/float64(scale))
		particles = append(particles, p)
	}
	return particles, nil
}

func collectRegions(labels heightmap.LabelMap) map[int]*region {
	rows, cols := labels.Dims()
	regions := make(map[int]*region)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := labels.At(r, c)
			if v <= 0 {
				continue
			}
			reg, ok := regions[v]
			if !ok {
				reg = &region{}
				regions[v] = reg
			}
			reg.area++
			reg.sumRow += float64(r)
			reg.sumCol += float64(c)
		}
	}
	return regions
}

// depthWindow returns the half-open row and column ranges scanned for the
// depth of a hole of the given pixel radius centred at (row, col).
//
// The columns span the 2r box around col. The row half-height is the circle
// chord at the box's middle column, so the window is a rectangle nearly as
// large as the box rather than a disk. Bounds truncate toward zero and may lie
// outside the image.
func depthWindow(row, col int, radius float64) (r0, r1, c0, c1 int) {
	cr, cc := float64(row), float64(col)
	c0 = int(cc - radius)
	c1 = int(cc + radius)
	mid := float64(c0+c1) / 2
	half := math.Sqrt(math.Max(0, radius*radius-(cc-mid)*(cc-mid)))
	r0 = int(cr - half)
	r1 = int(cr + half)
	return r0, r1, c0, c1
}

// windowMinimum returns the smallest in-image sample of the depth window, or
// the centre sample when the window holds none.
func windowMinimum(h heightmap.HeightMap, row, col int, radius float64) float64 {
	rows, cols := h.Dims()
	r0, r1, c0, c1 := depthWindow(row, col, radius)

	found := false
	lowest := math.Inf(1)
	for c := max(c0, 0); c < min(c1, cols); c++ {
		for r := max(r0, 0); r < min(r1, rows); r++ {
			if v := h.At(r, c); v < lowest {
				lowest = v
			}
			found = true
		}
	}
	if !found {
		return h.At(row, col)
	}
	return lowest
}
