package detection

import (
	"math"
	"sort"
	"sync"

	"github.com/ironsheep/afm-tools-mcp/internal/imaging"
)

// Blob is a bright circular feature found by the Laplacian-of-Gaussian detector.
type Blob struct {
	// Row and Col locate the blob centre.
	Row int `json:"row"`
	Col int `json:"col"`

	// Sigma is the scale at which the blob responded most strongly.
	Sigma float64 `json:"sigma"`

	// Radius is the estimated blob radius in pixels, Sigma·√2.
	Radius float64 `json:"radius"`

	// Response is the scale-normalized filter response at the peak.
	Response float64 `json:"response"`
}

// DetectBlobs finds bright blobs in an equalized image.
//
// Every scale in p is filtered with the scale-normalized Laplacian of Gaussian,
// -σ²∇²G. Peaks are positions that are at least as large as all 26 neighbours
// in (scale, row, col) and exceed p.Threshold; neighbours beyond the image or
// the scale range are ignored. When two blobs overlap by more than p.Overlap
// of the smaller one's area, the smaller one is dropped.
//
// Scales are filtered concurrently. The result is ordered by row, then column,
// then sigma.
func DetectBlobs(eq *imaging.Grid, p Params) []Blob {
	sigmas := p.sigmas()
	stack := make([]*imaging.Grid, len(sigmas))

	var wg sync.WaitGroup
	for i, sigma := range sigmas {
		wg.Add(1)
		go func(i int, sigma float64) {
			defer wg.Done()
			lap := imaging.GaussianLaplace(eq, sigma)
			norm := -sigma * sigma
			for j := range lap.Pix {
				lap.Pix[j] *= norm
			}
			stack[i] = lap
		}(i, sigma)
	}
	wg.Wait()

	blobs := localMaxima(stack, sigmas, p.Threshold)
	return pruneBlobs(blobs, p.Overlap)
}

// localMaxima scans the scale stack for 3×3×3 local maxima above threshold.
func localMaxima(stack []*imaging.Grid, sigmas []float64, threshold float64) []Blob {
	if len(stack) == 0 {
		return nil
	}
	rows, cols := stack[0].Rows, stack[0].Cols
	var blobs []Blob

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			for s := range stack {
				v := stack[s].Pix[r*cols+c]
				if v <= threshold || !isPeak(stack, s, r, c, v) {
					continue
				}
				blobs = append(blobs, Blob{
					Row:      r,
					Col:      c,
					Sigma:    sigmas[s],
					Radius:   sigmas[s] * math.Sqrt2,
					Response: v,
				})
			}
		}
	}
	return blobs
}

func isPeak(stack []*imaging.Grid, s, r, c int, v float64) bool {
	rows, cols := stack[0].Rows, stack[0].Cols
	for ds := -1; ds <= 1; ds++ {
		ns := s + ds
		if ns < 0 || ns >= len(stack) {
			continue
		}
		for dr := -1; dr <= 1; dr++ {
			nr := r + dr
			if nr < 0 || nr >= rows {
				continue
			}
			for dc := -1; dc <= 1; dc++ {
				nc := c + dc
				if nc < 0 || nc >= cols {
					continue
				}
				if stack[ns].Pix[nr*cols+nc] > v {
					return false
				}
			}
		}
	}
	return true
}

// pruneBlobs drops the smaller blob of every pair whose overlap exceeds
// threshold. A blob already dropped no longer eliminates others. On equal
// radii the earlier blob is dropped.
func pruneBlobs(blobs []Blob, threshold float64) []Blob {
	removed := make([]bool, len(blobs))
	for i := range blobs {
		for j := i + 1; j < len(blobs); j++ {
			if removed[i] || removed[j] {
				continue
			}
			a, b := blobs[i], blobs[j]
			if diskOverlap(a, b) <= threshold {
				continue
			}
			if a.Radius > b.Radius {
				removed[j] = true
			} else {
				removed[i] = true
			}
		}
	}

	kept := make([]Blob, 0, len(blobs))
	for i, b := range blobs {
		if !removed[i] {
			kept = append(kept, b)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Row != kept[j].Row {
			return kept[i].Row < kept[j].Row
		}
		if kept[i].Col != kept[j].Col {
			return kept[i].Col < kept[j].Col
		}
		return kept[i].Sigma < kept[j].Sigma
	})
	return kept
}

// diskOverlap returns the area shared by the two blob disks as a fraction of
// the smaller disk's area.
func diskOverlap(a, b Blob) float64 {
	r1, r2 := a.Radius, b.Radius
	if r1 <= 0 || r2 <= 0 {
		return 0
	}
	d := math.Hypot(float64(a.Row-b.Row), float64(a.Col-b.Col))
	if d >= r1+r2 {
		return 0
	}
	if d <= math.Abs(r1-r2) {
		return 1
	}

	ratio1 := clampUnit((d*d + r1*r1 - r2*r2) / (2 * d * r1))
	ratio2 := clampUnit((d*d + r2*r2 - r1*r1) / (2 * d * r2))
	lens := r1*r1*math.Acos(ratio1) + r2*r2*math.Acos(ratio2) -
		0.5*math.Sqrt(math.Abs((-d+r2+r1)*(d-r2+r1)*(d+r2-r1)*(d+r2+r1)))

	small := math.Min(r1, r2)
	return lens / (math.Pi * small * small)
}

func clampUnit(x float64) float64 {
	return math.Max(-1, math.Min(1, x))
}
