package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dga-topology/models"

	"golang.org/x/sync/errgroup"
)

// Sequencer slides window pairs across a standardized series and scores each
// pair with one distance per homology dimension.
type Sequencer struct {
	windowSize int
	step       int
	maxDim     int
	alignment  models.Alignment
	workers    int

	homology PersistenceComputer
	distance DiagramDistance
	logger   *slog.Logger
}

// NewSequencer validates opts and binds the persistence and distance
// implementations. A nil logger uses slog.Default().
func NewSequencer(opts Options, homology PersistenceComputer, distance DiagramDistance, logger *slog.Logger) (*Sequencer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Sequencer{
		windowSize: opts.WindowSize,
		step:       opts.Step,
		maxDim:     opts.MaxDim,
		alignment:  opts.alignment(),
		workers:    opts.workers(),
		homology:   homology,
		distance:   distance,
		logger:     logger,
	}, nil
}

// Run returns one score per window pair, ordered by pair index. A series
// shorter than two windows yields an empty result. Any failure aborts the run
// and no partial scores are returned.
func (s *Sequencer) Run(ctx context.Context, series *models.StandardizedSeries) (*models.ChangeScoreSeries, error) {
	out := &models.ChangeScoreSeries{
		Channels:   series.Channels,
		WindowSize: s.windowSize,
		Step:       s.step,
		MaxDim:     s.maxDim,
		Alignment:  s.alignment,
		Scores:     []models.ChangeScore{},
	}

	plan, err := NewPairPlan(series.Len(), s.windowSize, s.step)
	if err != nil {
		return nil, err
	}

	if plan.Count() == 0 {
		s.logger.DebugContext(ctx, "not enough rows for a window pair",
			"rows", series.Len(), "window_size", s.windowSize)
		return out, nil
	}

	rows := series.Rows()
	timestamps := series.Timestamps()

	diagrams, err := s.computeDiagrams(ctx, plan, rows)
	if err != nil {
		return nil, err
	}

	scores := make([]models.ChangeScore, plan.Count())
	offset := s.alignment.Offset(s.windowSize)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for pair := range plan.All() {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			start := time.Now()
			a, b := diagrams[pair.Start], diagrams[pair.Start+s.windowSize]
			distances := make([]float64, s.maxDim+1)

			for d := range distances {
				dist, err := s.distance.Distance(a[d], b[d])
				if err != nil {
					return &models.ComputationError{Stage: "distance", Index: pair.Index, Err: err}
				}
				distances[d] = dist
			}

			scores[pair.Index] = models.ChangeScore{
				Index:     pair.Index,
				Start:     pair.Start,
				Timestamp: timestamps[pair.Start+offset],
				Distances: distances,
			}
			pairEvaluationSeconds.Observe(time.Since(start).Seconds())

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out.Scores = scores
	s.logger.DebugContext(ctx, "window pairs scored",
		"pairs", len(scores), "windows", len(diagrams))

	return out, nil
}

// computeDiagrams evaluates every distinct window once, keyed by start row.
func (s *Sequencer) computeDiagrams(ctx context.Context, plan PairPlan, rows [][]float64) (map[int][]models.PersistenceDiagram, error) {
	starts := plan.WindowStarts()
	results := make([][]models.PersistenceDiagram, len(starts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, start := range starts {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			window := plan.Window(rows, start)
			dgms, err := s.homology.Persistence(window.Rows, s.maxDim)
			if err != nil {
				return &models.ComputationError{Stage: "persistence", Index: start, Err: err}
			}
			if len(dgms) != s.maxDim+1 {
				return &models.ComputationError{
					Stage: "persistence",
					Index: start,
					Err:   fmt.Errorf("got %d diagrams, want %d", len(dgms), s.maxDim+1),
				}
			}

			results[i] = dgms
			windowsComputedTotal.Inc()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	byStart := make(map[int][]models.PersistenceDiagram, len(starts))
	for i, start := range starts {
		byStart[start] = results[i]
	}

	return byStart, nil
}
