package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"dga-topology/analytics"
	"dga-topology/config"
	"dga-topology/models"
	"dga-topology/report"

	"github.com/spf13/cobra"
)

type analyzeFlags struct {
	output         string
	format         string
	windowSize     int
	step           int
	maxDim         int
	referenceStart int
	referenceEnd   int
	difference     bool
	alignment      string
	emptyPolicy    string
	groundMetric   string
	order          float64
	threshold      float64
	workers        int
	year           int
	flagDim        int
	flagWindow     int
	flagThreshold  float64
	quiet          bool
}

func newAnalyzeCommand(gf *globalFlags) *cobra.Command {
	af := &analyzeFlags{}

	cmd := &cobra.Command{
		Use:   "analyze <export.csv>",
		Short: "Score adjacent window pairs of a monitor export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := gf.load()
			if err != nil {
				return err
			}
			af.apply(cmd, cfg)
			if err := config.Validate(cfg); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			series, err := loadSeries(args[0], cfg, logger)
			if err != nil {
				return err
			}

			pipeline, err := analytics.NewPipeline(cfg.Analysis.Options(), logger)
			if err != nil {
				return err
			}

			started := time.Now()
			scores, err := pipeline.Analyze(cmd.Context(), series)
			if err != nil {
				return err
			}

			if scores.Len() == 0 {
				logger.Warn("no window pairs to score",
					"error", models.ErrInsufficientData,
					"rows", series.Len(),
					"need", 2*cfg.Analysis.WindowSize)
			}

			if err := writeOutput(cmd.OutOrStdout(), af, scores); err != nil {
				return err
			}

			if !af.quiet {
				points := analytics.FlagChangePoints(scores, cfg.Engine.FlagDim, cfg.Engine.FlagWindow, cfg.Engine.FlagThreshold)
				fmt.Fprintln(cmd.ErrOrStderr(), report.RenderSummary(scores, time.Since(started)))
				fmt.Fprintln(cmd.ErrOrStderr(), report.RenderChangePoints(points))
			}

			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&af.output, "output", "o", "", "output file (default stdout)")
	f.StringVarP(&af.format, "format", "f", "", "output format: csv, json, yaml (default from extension, else csv)")
	f.IntVarP(&af.windowSize, "window", "w", analytics.DefaultWindowSize, "window size in rows")
	f.IntVar(&af.step, "step", analytics.DefaultStep, "rows between consecutive window pairs")
	f.IntVar(&af.maxDim, "maxdim", analytics.DefaultMaxDim, "highest homology dimension")
	f.IntVar(&af.referenceStart, "reference-start", 0, "first row of the normalization reference batch")
	f.IntVar(&af.referenceEnd, "reference-end", 0, "end row (exclusive) of the reference batch, 0 for all")
	f.BoolVar(&af.difference, "difference", true, "take first differences before scaling")
	f.StringVar(&af.alignment, "alignment", string(models.AlignEnd), "score timestamp: end, boundary or start")
	f.StringVar(&af.emptyPolicy, "empty-policy", string(analytics.EmptyZero), "distance for empty diagrams: zero, nan or diagonal")
	f.StringVar(&af.groundMetric, "metric", string(analytics.Chebyshev), "ground metric: chebyshev or euclidean")
	f.Float64Var(&af.order, "order", analytics.DefaultOrder, "Wasserstein order")
	f.Float64Var(&af.threshold, "threshold", 0, "Rips filtration cap, 0 for none")
	f.IntVar(&af.workers, "workers", 0, "parallel window evaluations, 0 for NumCPU")
	f.IntVar(&af.year, "year", 0, "keep only rows from this year")
	f.IntVar(&af.flagDim, "flag-dim", 0, "homology dimension used for change-point flagging")
	f.IntVar(&af.flagWindow, "flag-window", analytics.DefaultFlagWindow, "trailing scores used for flagging")
	f.Float64Var(&af.flagThreshold, "flag-threshold", analytics.DefaultFlagThreshold, "z-score above which a step is flagged")
	f.BoolVarP(&af.quiet, "quiet", "q", false, "suppress the summary tables")

	return cmd
}

// apply copies explicitly set flags over the loaded configuration.
func (af *analyzeFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	a := &cfg.Analysis

	if f.Changed("window") {
		a.WindowSize = af.windowSize
	}
	if f.Changed("step") {
		a.Step = af.step
	}
	if f.Changed("maxdim") {
		a.MaxDim = af.maxDim
	}
	if f.Changed("reference-start") {
		a.ReferenceStart = af.referenceStart
	}
	if f.Changed("reference-end") {
		a.ReferenceEnd = af.referenceEnd
	}
	if f.Changed("difference") {
		a.Difference = af.difference
	}
	if f.Changed("alignment") {
		a.Alignment = af.alignment
	}
	if f.Changed("empty-policy") {
		a.EmptyPolicy = af.emptyPolicy
	}
	if f.Changed("metric") {
		a.GroundMetric = af.groundMetric
	}
	if f.Changed("order") {
		a.Order = af.order
	}
	if f.Changed("threshold") {
		a.Threshold = af.threshold
	}
	if f.Changed("workers") {
		a.Workers = af.workers
	}
	if f.Changed("year") {
		cfg.Ingest.Year = af.year
	}
	if f.Changed("flag-dim") {
		cfg.Engine.FlagDim = af.flagDim
	}
	if f.Changed("flag-window") {
		cfg.Engine.FlagWindow = af.flagWindow
	}
	if f.Changed("flag-threshold") {
		cfg.Engine.FlagThreshold = af.flagThreshold
	}
}

func writeOutput(stdout io.Writer, af *analyzeFlags, scores *models.ChangeScoreSeries) error {
	format := report.FormatFromPath(af.output)
	if af.format != "" {
		parsed, err := report.ParseFormat(af.format)
		if err != nil {
			return err
		}
		format = parsed
	}

	if af.output == "" {
		return report.Write(stdout, scores, format)
	}

	file, err := os.Create(af.output)
	if err != nil {
		return err
	}

	writeErr := report.Write(file, scores, format)

	return errors.Join(writeErr, file.Close())
}
