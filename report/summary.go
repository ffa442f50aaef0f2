package report

import (
	"fmt"
	"math"
	"time"

	"dga-topology/analytics"
	"dga-topology/models"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false

	return tbl
}

// RenderSummary tabulates per-dimension statistics of series.
func RenderSummary(series *models.ChangeScoreSeries, elapsed time.Duration) string {
	tbl := newTable()
	tbl.SetTitle(fmt.Sprintf("%s window pairs (W=%d, step=%d) in %s",
		humanize.Comma(int64(series.Len())), series.WindowSize, series.Step, elapsed.Round(time.Millisecond)))
	tbl.AppendHeader(table.Row{"dim", "mean", "max", "max at", "undefined"})

	for d := 0; d <= series.MaxDim; d++ {
		values := series.Dimension(d)

		var sum, best float64
		var count, undefined int
		bestAt := -1

		for i, v := range values {
			if math.IsNaN(v) {
				undefined++
				continue
			}
			sum += v
			count++
			if bestAt < 0 || v > best {
				best, bestAt = v, i
			}
		}

		mean, maxCell, atCell := "-", "-", "-"
		if count > 0 {
			mean = fmt.Sprintf("%.6g", sum/float64(count))
			maxCell = fmt.Sprintf("%.6g", best)
			atCell = series.Scores[bestAt].Timestamp.Format(time.RFC3339)
		}

		tbl.AppendRow(table.Row{fmt.Sprintf("H%d", d), mean, maxCell, atCell, humanize.Comma(int64(undefined))})
	}

	return tbl.Render()
}

// RenderChangePoints tabulates flagged steps.
func RenderChangePoints(points []models.ChangePoint) string {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"index", "timestamp", "score", "z"})

	for _, cp := range points {
		tbl.AppendRow(table.Row{cp.Index, cp.Timestamp.Format(time.RFC3339), fmt.Sprintf("%.6g", cp.Score), fmt.Sprintf("%.2f", cp.ZScore)})
	}
	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d change points", len(points))})

	return tbl.Render()
}

// RenderComparison tabulates a two-unit comparison.
func RenderComparison(result *analytics.Comparison, labels [2]string) string {
	tbl := newTable()
	tbl.SetTitle(fmt.Sprintf("%s (%d points) vs %s (%d points)", labels[0], result.Points[0], labels[1], result.Points[1]))
	tbl.AppendHeader(table.Row{"dim", labels[0] + " pairs", labels[1] + " pairs", "wasserstein"})

	for d, dist := range result.Distances {
		tbl.AppendRow(table.Row{
			fmt.Sprintf("H%d", d),
			result.Diagrams[0][d].Len(),
			result.Diagrams[1][d].Len(),
			fmt.Sprintf("%.4f", dist),
		})
	}

	return tbl.Render()
}
