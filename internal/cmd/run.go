package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joshdurbin/activity-export/internal/analysis"
	"github.com/joshdurbin/activity-export/internal/charts"
	"github.com/joshdurbin/activity-export/internal/clean"
	"github.com/joshdurbin/activity-export/internal/db"
	"github.com/joshdurbin/activity-export/internal/export"
	"github.com/joshdurbin/activity-export/internal/logging"
	"github.com/joshdurbin/activity-export/internal/server"
	"github.com/joshdurbin/activity-export/internal/sync"
	"github.com/joshdurbin/activity-export/internal/table"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RuntimeConfig holds all runtime configuration from CLI flags
type RuntimeConfig struct {
	Source       string
	Output       string
	FigureDir    string
	Year         int
	DBPath       string
	NoDB         bool
	ChartWorkers int
	HTTPRetries  int
	MCPPort      int
}

// Run cleans the export, writes the CSV, then reloads the CSV and analyzes it
func Run(cfg *RuntimeConfig, out io.Writer) error {
	if err := requireOutput(cfg); err != nil {
		return err
	}
	log := logging.Logger

	log.Info().
		Str("source", cfg.Source).
		Str("output", cfg.Output).
		Str("figures", cfg.FigureDir).
		Int("year", cfg.Year).
		Bool("no_db", cfg.NoDB).
		Msg("starting activity-export")

	ctx, cancel := signalContext()
	defer cancel()

	if _, err := runClean(ctx, cfg); err != nil {
		return err
	}
	return runAnalyze(ctx, cfg, out)
}

// Clean runs only the cleaning stage
func Clean(cfg *RuntimeConfig) error {
	ctx, cancel := signalContext()
	defer cancel()

	_, err := runClean(ctx, cfg)
	return err
}

// Analyze runs only the analysis stage over an existing cleaned CSV
func Analyze(cfg *RuntimeConfig, out io.Writer) error {
	if err := requireOutput(cfg); err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	return runAnalyze(ctx, cfg, out)
}

// Serve opens the cache and runs the MCP server until interrupted
func Serve(cfg *RuntimeConfig) error {
	ctx, cancel := signalContext()
	defer cancel()

	sqlDB, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	queries := db.New(sqlDB)
	sync.LogDatabaseStats(ctx, queries)

	srv := server.New(queries)
	if cfg.MCPPort > 0 {
		return runHTTPServer(ctx, srv.MCPServer(), cfg.MCPPort)
	}
	log := logging.Stage("serve")
	log.Info().Msg("MCP server running via stdio")
	return srv.Run(ctx)
}

// requireOutput rejects an empty CSV path for commands that analyze the CSV
func requireOutput(cfg *RuntimeConfig) error {
	if strings.TrimSpace(cfg.Output) == "" {
		return errors.New("--output must name the cleaned CSV to analyze")
	}
	return nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	log := logging.Logger

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

func runClean(ctx context.Context, cfg *RuntimeConfig) (*table.Table, error) {
	retry := export.DefaultRetryConfig()
	retry.MaxRetries = cfg.HTTPRetries

	tidy, err := clean.Run(ctx, clean.Options{
		Source:  cfg.Source,
		Output:  cfg.Output,
		Fetcher: export.NewFetcher(retry),
	})
	if err != nil {
		recordFailure(ctx, cfg, err)
		return nil, err
	}

	if !cfg.NoDB {
		if err := cacheTable(ctx, cfg, tidy); err != nil {
			// the CSV is already written; the cache is optional
			logging.Warn("failed to cache activities", "db_path", cfg.DBPath, "error", err)
		}
	}
	return tidy, nil
}

// cacheTable saves the cleaned table to the SQLite cache
func cacheTable(ctx context.Context, cfg *RuntimeConfig, t *table.Table) error {
	log := logging.Stage("cache")

	sqlDB, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	service := sync.NewService(sqlDB)
	var progress sync.SaveProgressCallback
	if logging.IsTraceEnabled() {
		progress = func(current, total int, activityName string) {
			log.Debug().Int("current", current).Int("total", total).Str("name", activityName).Msg("saved activity")
		}
	}

	if _, err := service.Save(ctx, t, sync.RunInfo{Source: cfg.Source, Output: cfg.Output}, progress); err != nil {
		return err
	}
	sync.LogDatabaseStats(ctx, db.New(sqlDB))
	return nil
}

// recordFailure stores a failed run in an existing cache. A failed run never
// creates the database, so a bad export leaves no files behind.
func recordFailure(ctx context.Context, cfg *RuntimeConfig, cause error) {
	if cfg.NoDB || ctx.Err() != nil {
		return
	}
	if _, err := os.Stat(cfg.DBPath); err != nil {
		return
	}

	sqlDB, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		logging.Warn("failed to record pipeline failure", "error", err)
		return
	}
	defer sqlDB.Close()

	if _, err := sync.NewService(sqlDB).RecordFailure(ctx, sync.RunInfo{Source: cfg.Source, Output: cfg.Output}, cause); err != nil {
		logging.Warn("failed to record pipeline failure", "error", err)
	}
}

func runAnalyze(ctx context.Context, cfg *RuntimeConfig, out io.Writer) error {
	log := logging.Stage("analyze")
	start := time.Now()

	t, err := analysis.Load(cfg.Output)
	if err != nil {
		return fmt.Errorf("loading cleaned CSV: %w", err)
	}

	prepared := analysis.Prepare(t, cfg.Year)
	log.Info().
		Int("rows", t.Len()).
		Int("analyzed", prepared.Len()).
		Int("year", cfg.Year).
		Msg("prepared activities for analysis")

	summary := analysis.ComputeStats(prepared)

	results, err := charts.RenderAll(ctx, prepared, cfg.FigureDir, cfg.ChartWorkers)
	if err != nil {
		return fmt.Errorf("rendering charts: %w", err)
	}
	if failed := results.Failed(); len(failed) > 0 {
		log.Warn().Int("failed", len(failed)).Int("charts", len(results)).Msg("some charts could not be rendered")
	}
	log.Info().
		Int("files", len(results.Paths())).
		Dur("duration", time.Since(start)).
		Msg("analysis complete")

	return analysis.PrintReport(out, summary, cfg.FigureDir)
}

// runHTTPServer runs the MCP server over HTTP/SSE
func runHTTPServer(ctx context.Context, mcpServer *mcp.Server, port int) error {
	log := logging.Stage("serve")

	handler := mcp.NewSSEHandler(func(r *http.Request) *mcp.Server {
		return mcpServer
	}, nil)

	addr := fmt.Sprintf(":%d", port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info().
			Str("address", addr).
			Str("endpoint", fmt.Sprintf("http://localhost%s", addr)).
			Msg("MCP server running via HTTP/SSE")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down HTTP server")
		return httpServer.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}
