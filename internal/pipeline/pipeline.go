// Package pipeline runs the complete hole measurement on one or many height
// maps: square crop, line flattening, segmentation, property extraction and
// the Diam_Dep result table.
//
// # Stages
//
// Run performs the in-memory stages and returns every intermediate product.
// MeasureFile adds loading and output: it writes the result table (and
// optionally a preview and an archive record) only after all stages succeed,
// so a failed run never leaves a partial table behind. MeasureBatch runs
// MeasureFile over many files with a bounded number of workers.
//
// The context is checked between stages; a stage itself runs to completion.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ironsheep/afm-tools-mcp/internal/config"
	"github.com/ironsheep/afm-tools-mcp/internal/detection"
	"github.com/ironsheep/afm-tools-mcp/internal/flatten"
	"github.com/ironsheep/afm-tools-mcp/internal/heightmap"
	"github.com/ironsheep/afm-tools-mcp/internal/measure"
	"github.com/ironsheep/afm-tools-mcp/internal/store"
)

// Input is one height map to measure.
type Input struct {
	// Name identifies the run in logs and the archive, normally the input
	// file name without extension.
	Name string

	Map heightmap.HeightMap

	// Size converts pixels to nanometers. A zero PixelsX means the map's
	// column count; a zero RealX means 1 nm per pixel.
	Size heightmap.ScanSize
}

// Result holds the products of one run.
type Result struct {
	RunID string `json:"run_id"`
	Name  string `json:"name"`

	// Cropped reports that the input was not square and was cut to its
	// top-left square.
	Cropped bool `json:"cropped"`

	Scale heightmap.ScaleFactor `json:"scale_nm_per_px"`

	Flattened heightmap.HeightMap `json:"-"`
	Labels    heightmap.LabelMap  `json:"-"`

	Blobs     []detection.Blob   `json:"blobs"`
	Particles []measure.Particle `json:"particles"`
	Summary   measure.Summary    `json:"summary"`

	// OutputPath and PreviewPath are set by MeasureFile.
	OutputPath  string `json:"output_path,omitempty"`
	PreviewPath string `json:"preview_path,omitempty"`
}

// Runner executes pipeline runs with a fixed configuration.
type Runner struct {
	cfg     config.Config
	log     zerolog.Logger
	archive *store.Store
	cache   *heightmap.Cache
}

// Option customizes a Runner.
type Option func(*Runner)

// WithLogger sets the logger; the default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Runner) { r.log = log }
}

// WithArchive records every successful MeasureFile run in s.
func WithArchive(s *store.Store) Option {
	return func(r *Runner) { r.archive = s }
}

// WithCache loads height maps through c.
func WithCache(c *heightmap.Cache) Option {
	return func(r *Runner) { r.cache = c }
}

// NewRunner returns a Runner for cfg.
func NewRunner(cfg config.Config, opts ...Option) *Runner {
	r := &Runner{cfg: cfg, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Config returns the runner's configuration.
func (r *Runner) Config() config.Config {
	return r.cfg
}

// Run measures the holes of in.Map with the default logger and no archive.
func Run(ctx context.Context, in Input, cfg config.Config) (*Result, error) {
	return NewRunner(cfg).Run(ctx, in)
}

// Run measures the holes of in.Map.
func (r *Runner) Run(ctx context.Context, in Input) (*Result, error) {
	res := &Result{RunID: uuid.NewString(), Name: in.Name}
	log := r.log.With().Str("run_id", res.RunID).Str("name", in.Name).Logger()

	if in.Map.Empty() {
		return nil, heightmap.ErrEmpty
	}
	image := in.Map
	if !image.IsSquare() {
		rows, cols := image.Dims()
		image = image.Square()
		res.Cropped = true
		log.Warn().Int("rows", rows).Int("cols", cols).Msg("input not square, cropped to top-left square")
	}
	size, _ := image.Dims()

	scale, err := r.resolveScale(in.Size, size, log)
	if err != nil {
		return nil, err
	}
	res.Scale = scale

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	flat, err := flatten.FlattenWithOptions(image, r.cfg.FlattenOptions())
	if err != nil {
		return nil, fmt.Errorf("flatten %s: %w", in.Name, err)
	}
	res.Flattened = flat.Flattened
	flattenTime := time.Since(start)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start = time.Now()
	seg, err := detection.SegmentDetailed(res.Flattened, r.cfg.Detection)
	if err != nil {
		return nil, fmt.Errorf("segment %s: %w", in.Name, err)
	}
	res.Labels = seg.Labels
	res.Blobs = seg.Blobs
	segmentTime := time.Since(start)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res.Particles, err = measure.ExtractProperties(res.Labels, res.Flattened, scale)
	if err != nil {
		return nil, fmt.Errorf("measure %s: %w", in.Name, err)
	}
	res.Summary = measure.Summarize(res.Particles, size, scale)

	log.Info().
		Int("size", size).
		Float64("scale_nm_per_px", float64(scale)).
		Int("masked_px", flat.MaskedPixels).
		Int("fallback_rows", flat.FallbackRows).
		Int("blobs", len(res.Blobs)).
		Int("particles", len(res.Particles)).
		Dur("flatten", flattenTime).
		Dur("segment", segmentTime).
		Msg("run complete")
	return res, nil
}

// resolveScale derives nm per pixel from the scan size. A map without a
// known physical size is measured in pixels.
func (r *Runner) resolveScale(size heightmap.ScanSize, cols int, log zerolog.Logger) (heightmap.ScaleFactor, error) {
	if size.RealX == 0 {
		log.Warn().Msg("scan size unknown, reporting diameters in pixels")
		return 1, nil
	}
	if size.PixelsX == 0 {
		size.PixelsX = cols
	}
	return size.ScaleFactor()
}
