package analytics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	windowsComputedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dga_windows_computed_total",
			Help: "Total number of windows whose persistence diagrams were computed",
		},
	)

	pairEvaluationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dga_pair_evaluation_seconds",
			Help:    "Time spent computing distances for one window pair",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		},
	)

	analysisRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dga_analysis_runs_total",
			Help: "Total number of analysis runs by outcome",
		},
		[]string{"status"},
	)

	jobsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dga_jobs_dropped_total",
			Help: "Total number of analysis jobs rejected because the queue was full",
		},
	)
)
