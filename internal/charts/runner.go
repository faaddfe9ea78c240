package charts

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joshdurbin/activity-export/internal/logging"
	"github.com/joshdurbin/activity-export/internal/table"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one chart
type Result struct {
	Name  string
	Paths []string
	Err   error
}

// Results holds one entry per chart, in All order
type Results []Result

// Paths returns every file written
func (r Results) Paths() []string {
	var out []string
	for _, res := range r {
		out = append(out, res.Paths...)
	}
	return out
}

// Failed returns the charts that returned an error
func (r Results) Failed() []Result {
	var out []Result
	for _, res := range r {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// RenderAll creates dir and renders every chart into it. A failing chart is
// logged and recorded in its Result without stopping the others. With workers
// of 1 or less charts render one after another; otherwise up to workers run at once.
// The returned error is only set when dir cannot be created or ctx is done.
func RenderAll(ctx context.Context, t *table.Table, dir string, workers int) (Results, error) {
	return render(ctx, t, dir, workers, All)
}

func render(ctx context.Context, t *table.Table, dir string, workers int, charts []Chart) (Results, error) {
	log := logging.Stage("charts")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating figure directory: %w", err)
	}

	results := make(Results, len(charts))
	g, gCtx := errgroup.WithContext(ctx)
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for i, c := range charts {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				results[i] = Result{Name: c.Name, Err: err}
				return nil
			}

			start := time.Now()
			paths, err := safeRender(c, t, dir)
			results[i] = Result{Name: c.Name, Paths: paths, Err: err}

			if err != nil {
				log.Warn().Err(err).Str("chart", c.Name).Msg("chart failed")
				return nil
			}
			if len(paths) == 0 {
				log.Debug().Str("chart", c.Name).Msg("chart skipped, no data")
				return nil
			}
			log.Debug().
				Str("chart", c.Name).
				Strs("files", paths).
				Dur("duration", time.Since(start)).
				Msg("chart rendered")
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// safeRender isolates a renderer panic to its own chart
func safeRender(c Chart, t *table.Table, dir string) (paths []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rendering %s: panic: %v", c.Name, r)
		}
	}()
	return c.Render(t, dir)
}
