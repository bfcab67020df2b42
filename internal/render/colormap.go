package render

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// colormap interpolates evenly spaced color stops.
type colormap struct {
	stops []colorful.Color
}

func newColormap(hexes []string) (*colormap, error) {
	if len(hexes) < 2 {
		return nil, fmt.Errorf("colormap needs at least two stops, got %d", len(hexes))
	}
	m := &colormap{stops: make([]colorful.Color, len(hexes))}
	for i, h := range hexes {
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, fmt.Errorf("colormap stop %q: %w", h, err)
		}
		m.stops[i] = c
	}
	return m, nil
}

// at returns the color at t, clamped to [0, 1].
func (m *colormap) at(t float64) colorful.Color {
	t = math.Max(0, math.Min(1, t))
	pos := t * float64(len(m.stops)-1)
	i := int(pos)
	if i >= len(m.stops)-1 {
		return m.stops[len(m.stops)-1]
	}
	return m.stops[i].BlendLab(m.stops[i+1], pos-float64(i))
}
