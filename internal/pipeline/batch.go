package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/ironsheep/afm-tools-mcp/internal/config"
	"github.com/ironsheep/afm-tools-mcp/internal/heightmap"
)

// BatchItem is the outcome of one file in a batch.
type BatchItem struct {
	Path   string  `json:"path"`
	Result *Result `json:"result,omitempty"`
	Err    error   `json:"-"`
}

// MeasureBatch measures many files with a Runner for cfg.
func MeasureBatch(ctx context.Context, paths []string, size heightmap.ScanSize, cfg config.Config) ([]BatchItem, error) {
	return NewRunner(cfg).MeasureBatch(ctx, paths, size)
}

// MeasureBatch runs MeasureFile on every path using at most cfg.Workers
// concurrent workers (one per CPU when zero). Items are returned in input
// order. The error joins every per-file failure; a failed file does not stop
// the others.
func (r *Runner) MeasureBatch(ctx context.Context, paths []string, size heightmap.ScanSize) ([]BatchItem, error) {
	workers := r.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	items := make([]BatchItem, len(paths))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				res, err := r.MeasureFile(ctx, paths[i], size)
				items[i] = BatchItem{Path: paths[i], Result: res, Err: err}
			}
		}()
	}

	for i := range paths {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var errs []error
	for _, it := range items {
		if it.Err != nil {
			r.log.Error().Err(it.Err).Str("path", it.Path).Msg("measurement failed")
			errs = append(errs, fmt.Errorf("%s: %w", it.Path, it.Err))
		}
	}
	return items, errors.Join(errs...)
}
