package imaging

import (
	"fmt"
	"math"

	"github.com/ironsheep/afm-tools-mcp/internal/heightmap"
)

const (
	// claheTiles is the number of contextual regions along each axis.
	claheTiles = 8

	// DefaultClipLimit is the CLAHE clip limit as a fraction of tile pixels.
	DefaultClipLimit = 0.01

	histogramBins = 256
)

// RescaleInverted maps g linearly onto 0..255 with inverted polarity, so the
// lowest sample becomes 255 and the highest 0. Depressions in a height map
// therefore come out bright.
//
// A grid with zero dynamic range cannot be rescaled and yields
// heightmap.ErrDegenerateImage.
func RescaleInverted(g *Grid) ([]uint8, error) {
	min, max := g.MinMax()
	if !(max > min) {
		return nil, fmt.Errorf("range [%g, %g]: %w", min, max, heightmap.ErrDegenerateImage)
	}
	span := max - min
	out := make([]uint8, len(g.Pix))
	for i, v := range g.Pix {
		u := math.Round(255 * (1 - (v-min)/span))
		out[i] = uint8(math.Max(0, math.Min(255, u)))
	}
	return out, nil
}

// CLAHE performs contrast-limited adaptive histogram equalization on an 8-bit
// rows×cols image and returns values in [0, 1].
//
// # Algorithm
//
//  1. Split the image into roughly 8×8 tiles of ceil(dim/8) pixels.
//  2. Build a 256-bin histogram per tile and clip each bin at
//     max(1, int(clipLimit × tile pixels)); spread the clipped excess evenly
//     over all bins.
//  3. Turn each clipped histogram into a cumulative lookup table scaled to [0, 1].
//  4. Map every pixel by bilinear interpolation between the lookup tables of the
//     four nearest tile centres (edges and corners use the nearest tables).
func CLAHE(pix []uint8, rows, cols int, clipLimit float64) *Grid {
	tileH := ceilDiv(rows, claheTiles)
	tileW := ceilDiv(cols, claheTiles)
	tilesY := ceilDiv(rows, tileH)
	tilesX := ceilDiv(cols, tileW)

	luts := make([][histogramBins]float64, tilesY*tilesX)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			r0, r1 := ty*tileH, minInt((ty+1)*tileH, rows)
			c0, c1 := tx*tileW, minInt((tx+1)*tileW, cols)

			var hist [histogramBins]float64
			for r := r0; r < r1; r++ {
				for c := c0; c < c1; c++ {
					hist[pix[r*cols+c]]++
				}
			}
			n := float64((r1 - r0) * (c1 - c0))
			clipHistogram(&hist, math.Max(1, math.Floor(clipLimit*n)))

			lut := &luts[ty*tilesX+tx]
			var cum float64
			for b := 0; b < histogramBins; b++ {
				cum += hist[b]
				lut[b] = math.Min(1, cum/n)
			}
		}
	}

	out := NewGrid(rows, cols)
	for r := 0; r < rows; r++ {
		y0, y1, wy := tileNeighbours(r, tileH, tilesY)
		for c := 0; c < cols; c++ {
			x0, x1, wx := tileNeighbours(c, tileW, tilesX)
			v := pix[r*cols+c]

			top := (1-wx)*luts[y0*tilesX+x0][v] + wx*luts[y0*tilesX+x1][v]
			bottom := (1-wx)*luts[y1*tilesX+x0][v] + wx*luts[y1*tilesX+x1][v]
			out.Pix[r*cols+c] = (1-wy)*top + wy*bottom
		}
	}
	return out
}

// Equalize is the normalization shared by flattening and segmentation:
// inverted full-range 8-bit rescale followed by CLAHE.
func Equalize(g *Grid) (*Grid, error) {
	pix, err := RescaleInverted(g)
	if err != nil {
		return nil, err
	}
	return CLAHE(pix, g.Rows, g.Cols, DefaultClipLimit), nil
}

// clipHistogram caps every bin at limit and redistributes the excess evenly.
func clipHistogram(hist *[histogramBins]float64, limit float64) {
	var excess float64
	for b := range hist {
		if hist[b] > limit {
			excess += hist[b] - limit
			hist[b] = limit
		}
	}
	if excess == 0 {
		return
	}
	share := excess / histogramBins
	for b := range hist {
		hist[b] += share
	}
}

// tileNeighbours returns the two tile indices around pixel p along one axis and
// the interpolation weight of the second one.
func tileNeighbours(p, tileSize, tiles int) (i0, i1 int, w float64) {
	f := (float64(p)+0.5)/float64(tileSize) - 0.5
	i0 = int(math.Floor(f))
	w = f - float64(i0)
	if i0 < 0 {
		i0, w = 0, 0
	}
	i1 = i0 + 1
	if i1 >= tiles {
		i1 = tiles - 1
	}
	if i0 >= tiles {
		i0 = tiles - 1
	}
	return i0, i1, w
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
