// Package commands wires the dgatopo CLI.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"dga-topology/config"
	"dga-topology/ingest"
	"dga-topology/logging"
	"dga-topology/models"

	"github.com/spf13/cobra"
)

// Build metadata, set with -ldflags.
var (
	Version = "dev"
	Commit  = "none"
)

type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

// NewRootCommand builds the dgatopo command tree.
func NewRootCommand() *cobra.Command {
	gf := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "dgatopo",
		Short: "Topological change detection for dissolved-gas monitoring series",
		Long: `dgatopo compares persistence diagrams of adjacent sliding windows over
transformer dissolved-gas series and reports how far they drift.

Commands:
  analyze   Score a monitor export window pair by window pair
  compare   Compare the topology of two units
  serve     Run the HTTP analysis service`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&gf.configPath, "config", "c", "", "config file (default ./dgatopo.yaml)")
	rootCmd.PersistentFlags().StringVar(&gf.logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&gf.logFormat, "log-format", "", "log format: text or json")

	rootCmd.AddCommand(newAnalyzeCommand(gf))
	rootCmd.AddCommand(newCompareCommand(gf))
	rootCmd.AddCommand(newServeCommand(gf))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// load reads the config file and applies global flag overrides.
func (gf *globalFlags) load() (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig(gf.configPath)
	if err != nil {
		return nil, nil, err
	}

	if gf.logLevel != "" {
		cfg.Logging.Level = gf.logLevel
	}
	if gf.logFormat != "" {
		cfg.Logging.Format = gf.logFormat
	}

	logger, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return nil, nil, err
	}

	return cfg, logger, nil
}

func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	return logging.New(cfg.Logging.Level, cfg.Logging.Format, w)
}

func csvOptions(cfg *config.Config) *ingest.CSVOptions {
	opts := ingest.DefaultCSVOptions()
	opts.Delimiter = []rune(cfg.Ingest.Delimiter)[0]
	opts.TimestampColumn = cfg.Ingest.TimestampColumn
	opts.TimestampFormat = cfg.Ingest.TimestampFormat
	opts.Year = cfg.Ingest.Year

	return opts
}

func loadSeries(path string, cfg *config.Config, logger *slog.Logger) (*models.Series, error) {
	series, report, err := ingest.LoadCSV(path, csvOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	logger.Info("series loaded",
		"path", path,
		"rows", report.Rows,
		"incomplete", report.Incomplete,
		"out_of_range", report.OutOfRange,
		"duplicates", report.Duplicates)

	return series, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dgatopo %s (commit: %s)\n", Version, Commit)
		},
	}
}
