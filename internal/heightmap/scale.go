package heightmap

import (
	"fmt"
	"strings"
)

// ScaleFactor is the physical length of one pixel in nanometers.
type ScaleFactor float64

// ScanSize is the real-to-pixel description an instrument reports for a scan.
type ScanSize struct {
	// RealX is the physical scan width, in Unit.
	RealX float64 `json:"real_x" yaml:"real_x"`

	// PixelsX is the number of samples across the scan width.
	PixelsX int `json:"pixels_x" yaml:"pixels_x"`

	// Unit is the length unit of RealX. "um" (or "µm") means micrometers;
	// anything else is taken to be nanometers already.
	Unit string `json:"unit" yaml:"unit"`
}

// NewScaleFactor converts a scan width and pixel count into nm per pixel.
//
// Micrometer widths are multiplied by 1000: a 5 um scan over 100 pixels is
// 50 nm/px, not 0.05.
func NewScaleFactor(realX float64, pixelsX int, unit string) (ScaleFactor, error) {
	if realX <= 0 || pixelsX <= 0 {
		return 0, fmt.Errorf("scan size %g over %d pixels: %w", realX, pixelsX, ErrInvalidScale)
	}
	s := realX / float64(pixelsX)
	if IsMicrometers(unit) {
		s *= 1000
	}
	return ScaleFactor(s), nil
}

// ScaleFactor is shorthand for NewScaleFactor(s.RealX, s.PixelsX, s.Unit).
func (s ScanSize) ScaleFactor() (ScaleFactor, error) {
	return NewScaleFactor(s.RealX, s.PixelsX, s.Unit)
}

// IsMicrometers reports whether unit names micrometers.
func IsMicrometers(unit string) bool {
	switch strings.TrimSpace(unit) {
	case "um", "µm", "μm", "micrometer", "micrometers":
		return true
	}
	return false
}

// Validate returns ErrInvalidScale unless s is strictly positive.
func (s ScaleFactor) Validate() error {
	if !(s > 0) {
		return fmt.Errorf("scale %g: %w", float64(s), ErrInvalidScale)
	}
	return nil
}
