package detection

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/afm-tools-mcp/internal/heightmap"
	"github.com/ironsheep/afm-tools-mcp/internal/imaging"
	"github.com/ironsheep/afm-tools-mcp/internal/testutil"
)

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Params)
		valid  bool
	}{
		{"defaults", func(p *Params) {}, true},
		{"single scale", func(p *Params) { p.NumSigma = 1; p.MaxSigma = p.MinSigma }, true},
		{"zero min sigma", func(p *Params) { p.MinSigma = 0 }, false},
		{"max below min", func(p *Params) { p.MaxSigma = 0.5 }, false},
		{"no scales", func(p *Params) { p.NumSigma = 0 }, false},
		{"negative threshold", func(p *Params) { p.Threshold = -0.1 }, false},
		{"overlap above one", func(p *Params) { p.Overlap = 1.5 }, false},
		{"zero peak radius", func(p *Params) { p.PeakRadius = 0 }, false},
		{"zero cutoff", func(p *Params) { p.BackgroundCutoff = 0 }, false},
		{"zero gradient sigma", func(p *Params) { p.GradientSigma = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			err := p.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidParams)
			}
		})
	}
}

func TestParams_Sigmas(t *testing.T) {
	s := DefaultParams().sigmas()
	require.Len(t, s, 20)
	assert.Equal(t, 1.0, s[0])
	assert.Equal(t, 25.0, s[19])
	assert.InDelta(t, 24.0/19.0, s[1]-s[0], 1e-12)
}

func TestDiskOverlap(t *testing.T) {
	big := Blob{Row: 10, Col: 10, Radius: 5}

	tests := []struct {
		name     string
		other    Blob
		min, max float64
	}{
		{"identical", big, 1, 1},
		{"contained", Blob{Row: 11, Col: 10, Radius: 1}, 1, 1},
		{"disjoint", Blob{Row: 30, Col: 30, Radius: 2}, 0, 0},
		{"touching", Blob{Row: 10, Col: 20, Radius: 5}, 0, 0},
		{"partial", Blob{Row: 10, Col: 15, Radius: 5}, 0.3, 0.45},
		{"removed", Blob{Row: 10, Col: 10, Radius: 0}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := diskOverlap(big, tt.other)
			assert.GreaterOrEqual(t, got, tt.min)
			assert.LessOrEqual(t, got, tt.max)
			assert.InDelta(t, got, diskOverlap(tt.other, big), 1e-12, "overlap must be symmetric")
		})
	}
}

func TestPruneBlobs(t *testing.T) {
	blobs := []Blob{
		{Row: 50, Col: 41, Sigma: 1, Radius: math.Sqrt2},
		{Row: 50, Col: 50, Sigma: 7, Radius: 7 * math.Sqrt2},
		{Row: 5, Col: 5, Sigma: 2, Radius: 2 * math.Sqrt2},
	}

	got := pruneBlobs(blobs, 0.5)
	require.Len(t, got, 2)
	assert.Equal(t, Blob{Row: 5, Col: 5, Sigma: 2, Radius: 2 * math.Sqrt2}, got[0])
	assert.Equal(t, 50, got[1].Col, "the larger blob must survive")
}

func TestPruneBlobs_EqualRadii(t *testing.T) {
	blobs := []Blob{
		{Row: 10, Col: 10, Sigma: 3, Radius: 3 * math.Sqrt2},
		{Row: 10, Col: 11, Sigma: 3, Radius: 3 * math.Sqrt2},
	}
	got := pruneBlobs(blobs, 0.5)
	require.Len(t, got, 1)
	assert.Equal(t, 11, got[0].Col)
}

func equalized(t *testing.T, h heightmap.HeightMap) *imaging.Grid {
	t.Helper()
	eq, err := imaging.Equalize(imaging.FromHeightMap(h))
	require.NoError(t, err)
	return eq
}

func TestDetectBlobs_SinglePit(t *testing.T) {
	blobs := DetectBlobs(equalized(t, testutil.ScenarioPit()), DefaultParams())
	require.NotEmpty(t, blobs)

	largest := blobs[0]
	for _, b := range blobs[1:] {
		if b.Radius > largest.Radius {
			largest = b
		}
	}
	assert.InDelta(t, 50, largest.Row, 1)
	assert.InDelta(t, 50, largest.Col, 1)
	assert.InDelta(t, 10, largest.Radius, 2.5)

	for _, b := range blobs {
		d := math.Hypot(float64(b.Row-50), float64(b.Col-50))
		assert.Less(t, d, 12.0, "blob at (%d,%d) is outside the pit", b.Row, b.Col)
	}
}

func TestSegment_SinglePit(t *testing.T) {
	seg, err := SegmentDetailed(testutil.ScenarioPit(), DefaultParams())
	require.NoError(t, err)
	require.NotEmpty(t, seg.Blobs)
	assert.GreaterOrEqual(t, seg.Seeds, 1)

	labels := seg.Labels
	rows, cols := labels.Dims()
	require.Equal(t, 100, rows)
	require.Equal(t, 100, cols)

	centre := labels.At(50, 50)
	require.Positive(t, centre, "pit centre must be labelled")
	for _, p := range [][2]int{{0, 0}, {0, 99}, {99, 0}, {99, 99}, {50, 5}, {5, 50}} {
		assert.Zero(t, labels.At(p[0], p[1]), "background at %v", p)
	}

	area := 0
	for _, v := range labels.Labels() {
		if v == centre {
			area++
		}
	}
	// A radius-10 disk holds 317 pixels.
	assert.InDelta(t, 317, area, 80)
}

func TestSegment_TwoPits(t *testing.T) {
	image := testutil.Plane(100, 0,
		testutil.Pit{Row: 30, Col: 30, Radius: 8, Floor: -20},
		testutil.Pit{Row: 70, Col: 68, Radius: 8, Floor: -20},
	)

	labels, err := Segment(image, DefaultParams())
	require.NoError(t, err)

	a, b := labels.At(30, 30), labels.At(70, 68)
	assert.Positive(t, a)
	assert.Positive(t, b)
	assert.NotEqual(t, a, b, "separate pits must get separate labels")
	assert.Zero(t, labels.At(50, 50))
}

func TestSegment_NoBlobs(t *testing.T) {
	p := DefaultParams()
	p.Threshold = 100

	seg, err := SegmentDetailed(testutil.ScenarioPit(), p)
	require.NoError(t, err)
	assert.Empty(t, seg.Blobs)
	assert.Zero(t, seg.Labels.Max())

	rows, cols := seg.Labels.Dims()
	assert.Equal(t, 100, rows)
	assert.Equal(t, 100, cols)
}

func TestSegment_Errors(t *testing.T) {
	bad := DefaultParams()
	bad.NumSigma = 0
	_, err := Segment(testutil.ScenarioPit(), bad)
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = Segment(testutil.Plane(16, 7), DefaultParams())
	assert.True(t, errors.Is(err, heightmap.ErrDegenerateImage), "got %v", err)

	_, err = Segment(heightmap.HeightMap{}, DefaultParams())
	assert.ErrorIs(t, err, heightmap.ErrEmpty)
}

func TestBuildMarkers(t *testing.T) {
	blobs := []Blob{{Row: 10, Col: 10, Sigma: 3, Radius: 3 * math.Sqrt2}}
	markers, seeds := buildMarkers(blobs, 21, 21, DefaultParams())

	assert.Equal(t, 1, seeds)
	assert.Equal(t, 2, markers[10*21+10], "centre seed")
	assert.Equal(t, backgroundMarker, markers[0], "background seed")
	// Inside the footprint but off the seed disk stays unseeded.
	assert.Zero(t, markers[10*21+13])

	for i, v := range markers {
		assert.LessOrEqual(t, v, 2, "marker %d collides", i)
	}
}
