package detection

import (
	"fmt"

	"github.com/ironsheep/afm-tools-mcp/internal/heightmap"
	"github.com/ironsheep/afm-tools-mcp/internal/imaging"
)

// backgroundMarker is the watershed seed value of the background. Hole seeds
// are numbered from backgroundMarker+1.
const backgroundMarker = 1

// Segmentation holds the label map and the intermediate products it was built
// from.
type Segmentation struct {
	// Labels is 0 for background and 1..n for hole regions.
	Labels heightmap.LabelMap

	// Blobs are the detected blobs after pruning.
	Blobs []Blob

	// Equalized is the contrast-equalized image the detector ran on, with
	// depressions bright.
	Equalized *imaging.Grid

	// Seeds is the number of hole seeds handed to the watershed.
	Seeds int
}

// Segment labels the holes of a flattened height map. See SegmentDetailed.
func Segment(image heightmap.HeightMap, p Params) (heightmap.LabelMap, error) {
	seg, err := SegmentDetailed(image, p)
	if err != nil {
		return heightmap.LabelMap{}, err
	}
	return seg.Labels, nil
}

// SegmentDetailed labels the holes of a flattened height map.
//
// # Algorithm
//
//  1. Equalize the map (inverted 8-bit rescale, then CLAHE) so holes are bright.
//  2. Detect blobs with DetectBlobs.
//  3. Paint every blob disk into a footprint and grow it by one pixel.
//  4. Paint a PeakRadius disk at every blob centre and number the 8-connected
//     seed regions 1..k.
//  5. Seed the watershed with 1 outside the footprint and k+1 on each seed
//     region, then flood the Gaussian gradient magnitude of the equalized map.
//  6. Smooth the labels with a grey opening and renumber so the background is
//     0 and hole k keeps label k.
//
// An image without blobs yields an all-background label map.
func SegmentDetailed(image heightmap.HeightMap, p Params) (*Segmentation, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if image.Empty() {
		return nil, heightmap.ErrEmpty
	}
	rows, cols := image.Dims()

	eq, err := imaging.Equalize(imaging.FromHeightMap(image))
	if err != nil {
		return nil, fmt.Errorf("segment: %w", err)
	}

	blobs := DetectBlobs(eq, p)
	seg := &Segmentation{Blobs: blobs, Equalized: eq}
	if len(blobs) == 0 {
		seg.Labels, err = heightmap.NewLabelMap(rows, cols, make([]int, rows*cols))
		return seg, err
	}

	markers, seeds := buildMarkers(blobs, rows, cols, p)
	seg.Seeds = seeds

	gradient := imaging.GaussianGradientMagnitude(eq, p.GradientSigma)
	flooded := imaging.Watershed(gradient, markers)
	opened := imaging.GreyOpeningCross(flooded, rows, cols)

	for i, v := range opened {
		if v <= backgroundMarker {
			opened[i] = 0
		} else {
			opened[i] = v - backgroundMarker
		}
	}

	seg.Labels, err = heightmap.NewLabelMap(rows, cols, opened)
	if err != nil {
		return nil, err
	}
	return seg, nil
}

// buildMarkers returns the watershed seed image and the number of hole seeds.
//
// Hole seeds are assigned over the background seed, never added to it, so a
// seed value always identifies exactly one region.
func buildMarkers(blobs []Blob, rows, cols int, p Params) ([]int, int) {
	footprint := make([]bool, rows*cols)
	peaks := make([]bool, rows*cols)
	for _, b := range blobs {
		imaging.FillDisk(footprint, rows, cols, float64(b.Row), float64(b.Col), b.Radius)
		imaging.FillDisk(peaks, rows, cols, float64(b.Row), float64(b.Col), p.PeakRadius)
	}
	footprint = imaging.DilateCross(footprint, rows, cols)

	seedLabels, seeds := imaging.LabelComponents(peaks, rows, cols, true)

	markers := make([]int, rows*cols)
	for i := range markers {
		// The footprint is binary, so any cutoff in (0, 1] selects the
		// pixels outside it.
		var weight float64
		if footprint[i] {
			weight = 1
		}
		if weight < p.BackgroundCutoff {
			markers[i] = backgroundMarker
		}
		if seedLabels[i] > 0 {
			markers[i] = seedLabels[i] + backgroundMarker
		}
	}
	return markers, seeds
}
