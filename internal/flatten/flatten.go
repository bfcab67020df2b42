// Package flatten removes per-row baseline offsets from AFM height maps.
//
// AFM images are acquired line by line and each scan line picks up its own
// offset. Subtracting each row's mean aligns the lines, but large holes pull
// the mean down on the rows they cross. Flatten therefore estimates the
// baseline from background pixels only, after masking the holes found by an
// Otsu split of the contrast-equalized first-pass image.
package flatten

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/afm-tools-mcp/internal/heightmap"
	"github.com/ironsheep/afm-tools-mcp/internal/imaging"
)

// DefaultMargin is added to the Otsu threshold before masking foreground.
const DefaultMargin = 0.05

// Options tunes the flattening filter.
type Options struct {
	// Margin is added to the Otsu threshold of the equalized image; pixels
	// above threshold+Margin are excluded from the baseline.
	Margin float64
}

// DefaultOptions returns the options used by Flatten.
func DefaultOptions() Options {
	return Options{Margin: DefaultMargin}
}

// Result is the flattened map plus the diagnostics of how it was obtained.
type Result struct {
	Flattened heightmap.HeightMap

	// Mask marks the pixels excluded from the refined baseline, row-major.
	Mask []bool

	// Threshold is the Otsu threshold of the equalized first-pass image.
	Threshold float64

	// MaskedPixels counts true entries of Mask.
	MaskedPixels int

	// FallbackRows counts rows that were entirely masked and used their plain
	// mean instead.
	FallbackRows int
}

// Flatten removes the per-row baseline from a square height map while ignoring
// holes. See FlattenWithOptions.
func Flatten(image heightmap.HeightMap) (heightmap.HeightMap, error) {
	res, err := FlattenWithOptions(image, DefaultOptions())
	if err != nil {
		return heightmap.HeightMap{}, err
	}
	return res.Flattened, nil
}

// FlattenWithOptions removes the per-row baseline from a square height map.
//
// # Algorithm
//
//  1. Subtract each row's plain mean to get a first-pass image.
//  2. Rescale it to 8 bits with inverted polarity and equalize it with CLAHE,
//     so holes come out bright.
//  3. Mask pixels brighter than OtsuThreshold + opts.Margin.
//  4. Subtract from the original image each row's mean over unmasked pixels.
//     A row with every pixel masked falls back to its plain mean.
//
// # Errors
//
//   - heightmap.ErrEmpty for an empty map
//   - heightmap.ErrInvalidShape when rows != cols (crop with Square first)
//   - heightmap.ErrDegenerateImage when the first-pass image is constant
func FlattenWithOptions(image heightmap.HeightMap, opts Options) (*Result, error) {
	rows, cols := image.Dims()
	if rows == 0 {
		return nil, heightmap.ErrEmpty
	}
	if rows != cols {
		return nil, fmt.Errorf("flatten %dx%d: %w", rows, cols, heightmap.ErrInvalidShape)
	}

	naive := rowMeans(image)
	first := subtractRows(image, naive)

	eq, err := imaging.Equalize(imaging.FromHeightMap(first))
	if err != nil {
		return nil, fmt.Errorf("flatten: %w", err)
	}
	threshold := imaging.OtsuThreshold(eq)
	cutoff := threshold + opts.Margin

	mask := make([]bool, rows*cols)
	masked := 0
	for i, v := range eq.Pix {
		if v > cutoff {
			mask[i] = true
			masked++
		}
	}

	refined, fallback := refineBaseline(image, mask, naive)

	return &Result{
		Flattened:    subtractRows(image, refined),
		Mask:         mask,
		Threshold:    threshold,
		MaskedPixels: masked,
		FallbackRows: fallback,
	}, nil
}

// FlattenDetailed is FlattenWithOptions with DefaultOptions.
func FlattenDetailed(image heightmap.HeightMap) (*Result, error) {
	return FlattenWithOptions(image, DefaultOptions())
}

// refineBaseline returns each row's mean over unmasked samples, and the number
// of rows that had none and kept their naive mean.
func refineBaseline(image heightmap.HeightMap, mask []bool, naive []float64) ([]float64, int) {
	rows, cols := image.Dims()
	refined := make([]float64, rows)
	fallback := 0
	background := make([]float64, 0, cols)
	for r := 0; r < rows; r++ {
		background = background[:0]
		for c, v := range image.Row(r) {
			if !mask[r*cols+c] {
				background = append(background, v)
			}
		}
		if len(background) == 0 {
			refined[r] = naive[r]
			fallback++
			continue
		}
		refined[r] = stat.Mean(background, nil)
	}
	return refined, fallback
}

// NaiveFlatten subtracts each row's plain mean. It accepts any shape and is
// kept for comparison with Flatten on images without large objects.
func NaiveFlatten(image heightmap.HeightMap) (heightmap.HeightMap, error) {
	if image.Empty() {
		return heightmap.HeightMap{}, heightmap.ErrEmpty
	}
	return subtractRows(image, rowMeans(image)), nil
}

func rowMeans(image heightmap.HeightMap) []float64 {
	rows, _ := image.Dims()
	means := make([]float64, rows)
	for r := range means {
		means[r] = stat.Mean(image.Row(r), nil)
	}
	return means
}

// subtractRows returns image with baseline[r] subtracted from every sample of row r.
func subtractRows(image heightmap.HeightMap, baseline []float64) heightmap.HeightMap {
	m := image.Dense()
	rows, _ := m.Dims()
	for r := 0; r < rows; r++ {
		row := m.RawRowView(r)
		for c := range row {
			row[c] -= baseline[r]
		}
	}
	return heightmap.FromDense(m)
}
