package cmd

import (
	"fmt"
	"os"

	"github.com/joshdurbin/activity-export/internal/config"
	"github.com/joshdurbin/activity-export/internal/logging"
	"github.com/spf13/cobra"
)

var (
	verbosity    int
	sourcePath   string
	outputPath   string
	figureDir    string
	year         int
	dbPath       string
	noDB         bool
	chartWorkers int
	envFile      string
	httpRetries  int
)

var rootCmd = &cobra.Command{
	Use:   "activity-export",
	Short: "Clean a fitness tracker export and summarize it with stats and charts",
	Long: `activity-export turns a summarized activities export (JSON) into a tidy CSV,
then reloads the CSV to compute key stats and render charts.

The pipeline:
- Loads the export from --source, SUMMARIZED_ACTIVITIES_PATH, a .env file, or the default path
- Normalizes units and timestamps, drops sparse and constant columns, writes the CSV
- Caches the cleaned activities in a local SQLite database (skip with --no-db)
- Filters to --year, drops multisport containers, prints key stats and saves PNG charts

Run "activity-export serve" to expose the cached activities over the Model Context Protocol.
`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Set up logging based on verbosity before any command runs
		logging.Setup(logging.Level(verbosity))
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		rtCfg, err := runtimeConfig()
		if err != nil {
			return err
		}
		return Run(rtCfg, cmd.OutOrStdout())
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Clean the export, then analyze the cleaned CSV (the default)",
	RunE:  rootCmd.RunE,
}

func init() {
	// Logging verbosity
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase verbosity (-v for debug, -vv for trace with HTTP headers)")

	// Pipeline locations
	rootCmd.PersistentFlags().StringVar(&sourcePath, "source", "", fmt.Sprintf("export JSON path or http(s) URL (default: $%s, then %s, then %s)", config.SourceEnvVar, config.DefaultEnvFile, config.DefaultSource))
	rootCmd.PersistentFlags().StringVar(&outputPath, "output", config.DefaultOutput, "path of the cleaned CSV")
	rootCmd.PersistentFlags().StringVar(&figureDir, "figures", config.DefaultFigureDir, "directory for chart PNGs")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "dotenv file consulted for the export path")

	// Analysis settings
	rootCmd.PersistentFlags().IntVar(&year, "year", 0, "only analyze activities that started in this year (0 for all)")
	rootCmd.PersistentFlags().IntVar(&chartWorkers, "chart-workers", 1, "charts rendered at once (1 renders them in order)")
	rootCmd.PersistentFlags().IntVar(&httpRetries, "retries", 3, "retries for remote exports on connection errors, 429 and 5xx")

	// SQLite cache
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", config.DefaultDBPath, "path to SQLite database file")
	rootCmd.PersistentFlags().BoolVar(&noDB, "no-db", false, "skip caching cleaned activities in SQLite")

	rootCmd.AddCommand(runCmd, cleanCmd, analyzeCmd, serveCmd)
}

// runtimeConfig collects the flags, resolving the export path when --source is empty
func runtimeConfig() (*RuntimeConfig, error) {
	source := sourcePath
	if source == "" {
		resolved, err := config.ResolveSource(envFile)
		if err != nil {
			return nil, fmt.Errorf("resolving source: %w", err)
		}
		source = resolved
	}

	if year < 0 {
		return nil, fmt.Errorf("--year must be 0 or a calendar year, got %d", year)
	}

	return &RuntimeConfig{
		Source:       source,
		Output:       outputPath,
		FigureDir:    figureDir,
		Year:         year,
		DBPath:       dbPath,
		NoDB:         noDB,
		ChartWorkers: chartWorkers,
		HTTPRetries:  httpRetries,
	}, nil
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
