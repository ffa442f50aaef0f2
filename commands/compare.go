package commands

import (
	"fmt"
	"path/filepath"

	"dga-topology/analytics"
	"dga-topology/report"

	"github.com/spf13/cobra"
)

func newCompareCommand(gf *globalFlags) *cobra.Command {
	var (
		maxDim    int
		maxPoints int
		year      int
	)

	cmd := &cobra.Command{
		Use:   "compare <unit-a.csv> <unit-b.csv>",
		Short: "Compare the persistence diagrams of two units",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := gf.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("year") {
				cfg.Ingest.Year = year
			}

			a, err := loadSeries(args[0], cfg, logger)
			if err != nil {
				return err
			}
			b, err := loadSeries(args[1], cfg, logger)
			if err != nil {
				return err
			}

			opts := cfg.Analysis.Options()
			distance := analytics.Wasserstein{Order: opts.Order, Metric: opts.GroundMetric, Empty: opts.EmptyPolicy}
			if err := distance.Validate(); err != nil {
				return err
			}

			result, err := analytics.CompareUnits(a, b, maxDim, maxPoints, analytics.Rips{Threshold: opts.Threshold, MaxSimplices: opts.MaxSimplices}, distance)
			if err != nil {
				return err
			}

			labels := [2]string{filepath.Base(args[0]), filepath.Base(args[1])}
			fmt.Fprintln(cmd.OutOrStdout(), report.RenderComparison(result, labels))

			return nil
		},
	}

	cmd.Flags().IntVar(&maxDim, "maxdim", 2, "highest homology dimension")
	cmd.Flags().IntVar(&maxPoints, "max-points", analytics.DefaultCompareMaxPoints, "rows kept per unit (evenly spaced)")
	cmd.Flags().IntVar(&year, "year", 0, "keep only rows from this year")

	return cmd
}
