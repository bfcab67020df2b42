// Package render draws diagnostic previews of flattened height maps with the
// outlines of detected holes.
package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/afm-tools-mcp/internal/heightmap"
)

// DefaultContourColor outlines holes in lime.
const DefaultContourColor = "#32cd32"

// copper runs from black through copper to a pale highlight. Intermediate
// values are blended in Lab space so equal height steps look equally spaced.
var copper = []string{"#000000", "#5c3317", "#b87333", "#fff1e0"}

// Options controls the preview appearance.
type Options struct {
	// Zoom enlarges each sample to Zoom×Zoom pixels. Values below 2 leave the
	// image at one pixel per sample.
	Zoom int

	// ContourColor is a hex color for hole outlines. Empty selects
	// DefaultContourColor.
	ContourColor string
}

// Preview colormaps flattened from its lowest to its highest sample and draws
// a one-pixel outline just outside every labelled region. A zero LabelMap draws
// no outlines.
func Preview(flattened heightmap.HeightMap, labels heightmap.LabelMap, opts Options) (*image.NRGBA, error) {
	if flattened.Empty() {
		return nil, heightmap.ErrEmpty
	}
	rows, cols := flattened.Dims()
	if lr, lc := labels.Dims(); lr != 0 && (lr != rows || lc != cols) {
		return nil, fmt.Errorf("labels %dx%d do not match height map %dx%d", lr, lc, rows, cols)
	}

	contourHex := opts.ContourColor
	if contourHex == "" {
		contourHex = DefaultContourColor
	}
	contour, err := colorful.Hex(contourHex)
	if err != nil {
		return nil, fmt.Errorf("contour color %q: %w", contourHex, err)
	}

	ramp, err := newColormap(copper)
	if err != nil {
		return nil, err
	}

	lo, hi := flattened.Min(), flattened.Max()
	img := image.NewNRGBA(image.Rect(0, 0, cols, rows))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			t := 0.5
			if hi > lo {
				t = (flattened.At(r, c) - lo) / (hi - lo)
			}
			img.SetNRGBA(c, r, toNRGBA(ramp.at(t)))
		}
	}

	if lr, _ := labels.Dims(); lr != 0 {
		outline := toNRGBA(contour)
		for _, p := range contourPixels(labels) {
			img.SetNRGBA(p.X, p.Y, outline)
		}
	}

	if opts.Zoom > 1 {
		img = imaging.Resize(img, cols*opts.Zoom, rows*opts.Zoom, imaging.NearestNeighbor)
	}
	return img, nil
}

// contourPixels returns the background pixels adjacent to a region: the region
// mask grown by one pixel, minus the mask itself.
func contourPixels(labels heightmap.LabelMap) []image.Point {
	rows, cols := labels.Dims()
	mask := image.NewGray(image.Rect(0, 0, cols, rows))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if labels.At(r, c) > 0 {
				mask.SetGray(c, r, color.Gray{Y: 255})
			}
		}
	}

	grown := segment.Threshold(effect.Dilate(mask, 1), 128)

	var out []image.Point
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if grown.GrayAt(c, r).Y > 0 && mask.GrayAt(c, r).Y == 0 {
				out = append(out, image.Pt(c, r))
			}
		}
	}
	return out
}

// WritePNG encodes img as PNG to w.
func WritePNG(w io.Writer, img image.Image) error {
	if err := imaging.Encode(w, img, imaging.PNG); err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	return nil
}

// EncodeBase64 returns img as a base64-encoded PNG.
func EncodeBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := WritePNG(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func toNRGBA(c colorful.Color) color.NRGBA {
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}
