package detection

import (
	"errors"
	"fmt"
)

// ErrInvalidParams is returned when segmentation parameters are out of range.
var ErrInvalidParams = errors.New("invalid detection parameters")

// Params controls blob detection and watershed segmentation.
//
// The zero value is not usable; start from DefaultParams.
type Params struct {
	// MinSigma and MaxSigma bound the Gaussian scales searched for blobs, in
	// pixels. A blob of radius R responds most strongly at sigma = R/√2.
	MinSigma float64 `json:"min_sigma" yaml:"min_sigma"`
	MaxSigma float64 `json:"max_sigma" yaml:"max_sigma"`

	// NumSigma is the number of evenly spaced scales between MinSigma and
	// MaxSigma, both included.
	NumSigma int `json:"num_sigma" yaml:"num_sigma"`

	// Threshold is the minimum scale-normalized response of a blob peak.
	Threshold float64 `json:"threshold" yaml:"threshold"`

	// Overlap is the fraction of the smaller blob's area that may be covered
	// by a larger blob before the smaller one is discarded.
	Overlap float64 `json:"overlap" yaml:"overlap"`

	// PeakRadius is the radius of the seed disk drawn at each blob centre.
	PeakRadius float64 `json:"peak_radius" yaml:"peak_radius"`

	// BackgroundCutoff marks pixels whose footprint value is below it as
	// background seeds.
	BackgroundCutoff float64 `json:"background_cutoff" yaml:"background_cutoff"`

	// GradientSigma smooths the flooding surface.
	GradientSigma float64 `json:"gradient_sigma" yaml:"gradient_sigma"`
}

// DefaultParams returns the parameters tuned for holes of 2 to 35 pixels in
// radius.
func DefaultParams() Params {
	return Params{
		MinSigma:         1,
		MaxSigma:         25,
		NumSigma:         20,
		Threshold:        0.1,
		Overlap:          0.5,
		PeakRadius:       2,
		BackgroundCutoff: 0.4,
		GradientSigma:    2,
	}
}

// Validate reports the first out-of-range field, wrapped in ErrInvalidParams.
func (p Params) Validate() error {
	switch {
	case !(p.MinSigma > 0):
		return fmt.Errorf("min_sigma %g must be positive: %w", p.MinSigma, ErrInvalidParams)
	case p.MaxSigma < p.MinSigma:
		return fmt.Errorf("max_sigma %g below min_sigma %g: %w", p.MaxSigma, p.MinSigma, ErrInvalidParams)
	case p.NumSigma < 1:
		return fmt.Errorf("num_sigma %d must be at least 1: %w", p.NumSigma, ErrInvalidParams)
	case p.Threshold < 0:
		return fmt.Errorf("threshold %g must not be negative: %w", p.Threshold, ErrInvalidParams)
	case p.Overlap < 0 || p.Overlap > 1:
		return fmt.Errorf("overlap %g outside [0, 1]: %w", p.Overlap, ErrInvalidParams)
	case !(p.PeakRadius > 0):
		return fmt.Errorf("peak_radius %g must be positive: %w", p.PeakRadius, ErrInvalidParams)
	case !(p.BackgroundCutoff > 0) || p.BackgroundCutoff > 1:
		return fmt.Errorf("background_cutoff %g outside (0, 1]: %w", p.BackgroundCutoff, ErrInvalidParams)
	case !(p.GradientSigma > 0):
		return fmt.Errorf("gradient_sigma %g must be positive: %w", p.GradientSigma, ErrInvalidParams)
	}
	return nil
}

// sigmas returns NumSigma evenly spaced scales from MinSigma to MaxSigma.
func (p Params) sigmas() []float64 {
	if p.NumSigma == 1 {
		return []float64{p.MinSigma}
	}
	out := make([]float64, p.NumSigma)
	step := (p.MaxSigma - p.MinSigma) / float64(p.NumSigma-1)
	for i := range out {
		out[i] = p.MinSigma + float64(i)*step
	}
	out[len(out)-1] = p.MaxSigma
	return out
}
