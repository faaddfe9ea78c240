package clean

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joshdurbin/activity-export/internal/export"
	"github.com/joshdurbin/activity-export/internal/logging"
	"github.com/joshdurbin/activity-export/internal/table"
)

// Options configures a clean run
type Options struct {
	// Source is a local path or http(s) URL of the raw export
	Source string
	// Output is the CSV destination. Empty skips writing.
	Output string
	// Fetcher loads the source. Nil uses default retry settings.
	Fetcher *export.Fetcher
}

// Run loads the export at opts.Source, builds and tidies the activity table,
// and writes it to opts.Output when set. The table is returned either way.
func Run(ctx context.Context, opts Options) (*table.Table, error) {
	log := logging.Stage("clean")
	start := time.Now()

	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = export.NewFetcher(export.DefaultRetryConfig())
	}

	ex, err := fetcher.ReadExport(ctx, opts.Source)
	if err != nil {
		return nil, err
	}

	wide := BuildTable(ex.Records, ex.Columns...)
	log.Debug().
		Int("rows", wide.Len()).
		Int("columns", wide.Width()).
		Msg("built activity table")

	tidy, pruned := TidyWithReport(wide)
	log.Info().
		Int("rows", tidy.Len()).
		Int("columns", tidy.Width()).
		Int("sparse_dropped", len(pruned.Sparse)).
		Int("constant_dropped", len(pruned.Constant)).
		Msg("cleaned activity table")

	if opts.Output == "" {
		return tidy, nil
	}

	if err := WriteCSVFile(opts.Output, tidy); err != nil {
		return nil, fmt.Errorf("writing cleaned CSV: %w", err)
	}

	ev := log.Info().Str("path", opts.Output).Dur("duration", time.Since(start))
	if info, err := os.Stat(opts.Output); err == nil {
		ev = ev.Str("size", humanize.Bytes(uint64(info.Size())))
	}
	ev.Msg("wrote cleaned CSV")

	return tidy, nil
}
