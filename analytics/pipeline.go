package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dga-topology/models"
)

// Pipeline runs the whole detection chain on a raw series: optional
// differencing, a scaler fitted once on the reference batch, and the
// sliding-window sequencer.
type Pipeline struct {
	opts      Options
	sequencer *Sequencer
	logger    *slog.Logger
}

// NewPipeline builds a pipeline backed by Rips persistence and the
// Wasserstein distance configured in opts.
func NewPipeline(opts Options, logger *slog.Logger) (*Pipeline, error) {
	return NewPipelineWith(opts, opts.homology(), opts.distance(), logger)
}

// NewPipelineWith builds a pipeline with caller-provided persistence and
// distance implementations.
func NewPipelineWith(opts Options, homology PersistenceComputer, distance DiagramDistance, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}

	seq, err := NewSequencer(opts, homology, distance, logger)
	if err != nil {
		return nil, err
	}

	return &Pipeline{opts: opts, sequencer: seq, logger: logger}, nil
}

// Options returns the options the pipeline was built with.
func (p *Pipeline) Options() Options {
	return p.opts
}

// Prepare differences (when enabled) and standardizes series. It returns
// models.ErrInsufficientData when fewer than two windows of rows remain.
func (p *Pipeline) Prepare(series *models.Series) (*models.StandardizedSeries, error) {
	if err := series.Validate(); err != nil {
		return nil, err
	}

	work := series
	if p.opts.Difference {
		work = Difference(series)
	}

	if work.Len() < 2*p.opts.WindowSize {
		return nil, fmt.Errorf("%w: %d rows, need %d", models.ErrInsufficientData, work.Len(), 2*p.opts.WindowSize)
	}

	end := p.opts.ReferenceEnd
	if end == 0 {
		end = work.Len()
	}
	if end > work.Len() || p.opts.ReferenceStart >= end {
		return nil, fmt.Errorf("%w: reference range [%d, %d) outside %d rows",
			models.ErrInvalidConfig, p.opts.ReferenceStart, end, work.Len())
	}

	scaler, err := FitScaler(work.Slice(p.opts.ReferenceStart, end).Rows())
	if err != nil {
		return nil, err
	}

	return scaler.Transform(work)
}

// Analyze runs the pipeline. A series too short for one window pair gives an
// empty score series and a nil error.
func (p *Pipeline) Analyze(ctx context.Context, series *models.Series) (*models.ChangeScoreSeries, error) {
	started := time.Now()

	standardized, err := p.Prepare(series)
	if err != nil {
		if errors.Is(err, models.ErrInsufficientData) {
			analysisRunsTotal.WithLabelValues("insufficient_data").Inc()
			return p.empty(series.Channels), nil
		}
		analysisRunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	scores, err := p.sequencer.Run(ctx, standardized)
	if err != nil {
		analysisRunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	analysisRunsTotal.WithLabelValues("ok").Inc()
	p.logger.InfoContext(ctx, "analysis finished",
		"rows", series.Len(),
		"pairs", scores.Len(),
		"window_size", p.opts.WindowSize,
		"maxdim", p.opts.MaxDim,
		"elapsed", time.Since(started))

	return scores, nil
}

func (p *Pipeline) empty(channels []string) *models.ChangeScoreSeries {
	return &models.ChangeScoreSeries{
		Channels:   channels,
		WindowSize: p.opts.WindowSize,
		Step:       p.opts.Step,
		MaxDim:     p.opts.MaxDim,
		Alignment:  p.opts.alignment(),
		Scores:     []models.ChangeScore{},
	}
}
