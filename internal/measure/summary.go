package measure

import (
	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/afm-tools-mcp/internal/heightmap"
)

// Summary aggregates the particles of one image.
type Summary struct {
	Count int `json:"count"`

	MeanDiameter float64 `json:"mean_diameter_nm"`
	StdDiameter  float64 `json:"std_diameter_nm"`
	MeanDepth    float64 `json:"mean_depth"`
	StdDepth     float64 `json:"std_depth"`

	// Density is the number of particles per square micrometer of scanned
	// area.
	Density float64 `json:"density_per_um2"`
}

// Summarize computes aggregate statistics for particles found on an image of
// size×size pixels at the given scale. Standard deviations are zero for fewer
// than two particles.
func Summarize(particles []Particle, size int, scale heightmap.ScaleFactor) Summary {
	s := Summary{Count: len(particles)}
	if len(particles) == 0 {
		return s
	}

	diameters := make([]float64, len(particles))
	depths := make([]float64, len(particles))
	for i, p := range particles {
		diameters[i] = p.Diameter
		depths[i] = p.Depth
	}

	if len(particles) > 1 {
		s.MeanDiameter, s.StdDiameter = stat.MeanStdDev(diameters, nil)
		s.MeanDepth, s.StdDepth = stat.MeanStdDev(depths, nil)
	} else {
		s.MeanDiameter, s.MeanDepth = diameters[0], depths[0]
	}

	sideUM := float64(size) * float64(scale) / 1000
	if sideUM > 0 {
		s.Density = float64(len(particles)) / (sideUM * sideUM)
	}
	return s
}
