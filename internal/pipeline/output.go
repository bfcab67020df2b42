package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ironsheep/afm-tools-mcp/internal/config"
	"github.com/ironsheep/afm-tools-mcp/internal/heightmap"
	"github.com/ironsheep/afm-tools-mcp/internal/measure"
	"github.com/ironsheep/afm-tools-mcp/internal/render"
	"github.com/ironsheep/afm-tools-mcp/internal/store"
)

const (
	tablePrefix   = "Diam_Dep_"
	previewPrefix = "Preview_"
)

// WriteTable writes one "diameter depth" line per particle, each value with
// two decimals. No particles means no output at all.
func WriteTable(w io.Writer, particles []measure.Particle) error {
	bw := bufio.NewWriter(w)
	for _, p := range particles {
		if _, err := fmt.Fprintf(bw, "%.2f %.2f\n", p.Diameter, p.Depth); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// OutputPath returns the result table path for an input file:
// Diam_Dep_<name>.txt next to the input, where name is the input's base name
// without its extension.
func OutputPath(inputPath string) string {
	return filepath.Join(filepath.Dir(inputPath), tablePrefix+baseName(inputPath)+".txt")
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// outputPaths returns the table and preview paths for inputPath, honoring the
// configured output directory.
func (r *Runner) outputPaths(inputPath string) (table, preview string) {
	dir := filepath.Dir(inputPath)
	if r.cfg.Output.Dir != "" {
		dir = r.cfg.Output.Dir
	}
	name := baseName(inputPath)
	return filepath.Join(dir, tablePrefix+name+".txt"), filepath.Join(dir, previewPrefix+name+".png")
}

// MeasureFile measures the height map stored at path with a Runner for cfg.
func MeasureFile(ctx context.Context, path string, size heightmap.ScanSize, cfg config.Config) (*Result, error) {
	return NewRunner(cfg).MeasureFile(ctx, path, size)
}

// MeasureFile loads path, runs the pipeline and writes the result table, then
// the preview and archive record when configured. The table's directory is
// created if needed. On error nothing is left behind: files already written
// by this call are removed.
func (r *Runner) MeasureFile(ctx context.Context, path string, size heightmap.ScanSize) (res *Result, err error) {
	var h heightmap.HeightMap
	if r.cache != nil {
		h, err = r.cache.Load(path)
	} else {
		h, err = heightmap.Load(path)
	}
	if err != nil {
		return nil, err
	}

	res, err = r.Run(ctx, Input{Name: baseName(path), Map: h, Size: size})
	if err != nil {
		return nil, err
	}

	var img image.Image
	if r.cfg.Preview.Enabled {
		img, err = render.Preview(res.Flattened, res.Labels, render.Options{Zoom: previewZoom(res)})
		if err != nil {
			return nil, err
		}
	}

	var written []string
	defer func() {
		if err == nil {
			return
		}
		for _, p := range written {
			if rmErr := os.Remove(p); rmErr != nil && !os.IsNotExist(rmErr) {
				r.log.Warn().Err(rmErr).Str("path", p).Msg("failed to remove partial output")
			}
		}
		res = nil
	}()

	table, preview := r.outputPaths(path)
	if err = writeFileAtomic(table, func(w io.Writer) error {
		return WriteTable(w, res.Particles)
	}); err != nil {
		return nil, fmt.Errorf("write %s: %w", table, err)
	}
	written = append(written, table)
	res.OutputPath = table

	if img != nil {
		if err = writeFileAtomic(preview, func(w io.Writer) error {
			return render.WritePNG(w, img)
		}); err != nil {
			return nil, fmt.Errorf("write %s: %w", preview, err)
		}
		written = append(written, preview)
		res.PreviewPath = preview
	}

	if r.archive != nil {
		rows, cols := res.Flattened.Dims()
		err = r.archive.SaveRun(ctx, store.Run{
			ID:    res.RunID,
			Name:  res.Name,
			Scale: float64(res.Scale),
			Rows:  rows,
			Cols:  cols,
		}, res.Particles)
		if err != nil {
			return nil, fmt.Errorf("archive %s: %w", res.Name, err)
		}
	}

	r.log.Info().Str("run_id", res.RunID).Str("output", table).Msg("table written")
	return res, nil
}

// previewZoom enlarges small maps so the preview stays legible.
func previewZoom(res *Result) int {
	rows, _ := res.Flattened.Dims()
	if rows == 0 || rows >= 256 {
		return 1
	}
	return (256 + rows - 1) / rows
}

// writeFileAtomic writes through a temporary file in the target directory and
// renames it into place, so readers never observe a partial file.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
