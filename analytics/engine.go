package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"dga-topology/models"
)

var (
	// ErrQueueFull is returned by Submit when no worker can take the job.
	ErrQueueFull = errors.New("analysis queue is full")
	// ErrEngineClosed is returned by Submit after Close.
	ErrEngineClosed = errors.New("analytics engine is closed")
)

// ResultStore persists the latest analysis of each unit.
type ResultStore interface {
	SaveAnalysis(ctx context.Context, unitID string, result models.AnalysisResult) error
	GetAnalysis(ctx context.Context, unitID string) (*models.AnalysisResult, error)
}

// ChangeCallback is invoked for every flagged change point.
type ChangeCallback func(unitID string, point models.ChangePoint)

// Job is one unit's series queued for analysis.
type Job struct {
	UnitID  string
	Series  *models.Series
	Options Options
}

// EngineConfig sizes the worker pool and the change-point flagger.
type EngineConfig struct {
	Workers       int
	QueueSize     int
	FlagDim       int
	FlagWindow    int
	FlagThreshold float64
}

// AnalyticsEngine runs queued jobs on a fixed set of workers and stores each
// result.
type AnalyticsEngine struct {
	store    ResultStore
	cfg      EngineConfig
	jobs     chan Job
	onChange ChangeCallback
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once

	mu     sync.RWMutex
	closed bool
}

// NewAnalyticsEngine starts the workers. With cfg.Workers 0 the pool gets
// 2×NumCPU workers clamped to [4, 16].
func NewAnalyticsEngine(store ResultStore, cfg EngineConfig, onChange ChangeCallback, logger *slog.Logger) *AnalyticsEngine {
	if logger == nil {
		logger = slog.Default()
	}

	numWorkers := cfg.Workers
	if numWorkers <= 0 {
		numWorkers = min(max(runtime.NumCPU()*2, 4), 16)
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	cfg.Workers = numWorkers

	ctx, cancel := context.WithCancel(context.Background())
	engine := &AnalyticsEngine{
		store:    store,
		cfg:      cfg,
		jobs:     make(chan Job, cfg.QueueSize),
		onChange: onChange,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}

	logger.Info("starting analytics workers", "workers", numWorkers, "queue", cfg.QueueSize)
	for i := 0; i < numWorkers; i++ {
		engine.wg.Add(1)
		go engine.processJobs()
	}

	return engine
}

// Submit queues job without blocking. A job whose maxdim is below the
// flagged dimension is rejected with models.ErrInvalidConfig.
func (ae *AnalyticsEngine) Submit(job Job) error {
	if job.Options.MaxDim < ae.cfg.FlagDim {
		return fmt.Errorf("%w: maxdim %d is below the flagged dimension %d",
			models.ErrInvalidConfig, job.Options.MaxDim, ae.cfg.FlagDim)
	}

	ae.mu.RLock()
	defer ae.mu.RUnlock()
	if ae.closed {
		return ErrEngineClosed
	}

	select {
	case ae.jobs <- job:
		return nil
	default:
		jobsDroppedTotal.Inc()
		ae.logger.Warn("analysis queue is full, dropping job", "unit_id", job.UnitID)
		return ErrQueueFull
	}
}

// Close stops accepting jobs and waits for the workers to finish every queued
// job. Use Abort to cancel queued and running analyses instead.
func (ae *AnalyticsEngine) Close() {
	ae.shutdown(false)
}

// Abort cancels running analyses and waits for the workers to exit. Queued
// jobs are discarded without a stored result.
func (ae *AnalyticsEngine) Abort() {
	ae.shutdown(true)
}

// Shutdown drains the queue like Close until ctx is done, then aborts the
// remaining work and returns ctx.Err().
func (ae *AnalyticsEngine) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		ae.Close()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		ae.cancel()
		<-done
		return ctx.Err()
	}
}

func (ae *AnalyticsEngine) shutdown(abort bool) {
	if abort {
		ae.cancel()
	}

	ae.once.Do(func() {
		ae.mu.Lock()
		ae.closed = true
		close(ae.jobs)
		ae.mu.Unlock()

		ae.wg.Wait()
		ae.cancel()
	})
}

func (ae *AnalyticsEngine) processJobs() {
	defer ae.wg.Done()

	for job := range ae.jobs {
		ae.processJob(job)
	}
}

func (ae *AnalyticsEngine) processJob(job Job) {
	logger := ae.logger.With("unit_id", job.UnitID)
	result := models.AnalysisResult{UnitID: job.UnitID, ProcessedAt: time.Now().UTC()}

	pipeline, err := NewPipeline(job.Options, logger)
	if err == nil {
		var scores *models.ChangeScoreSeries
		scores, err = pipeline.Analyze(ae.ctx, job.Series)
		if err == nil {
			result.Series = *scores
			result.InsufficientData = scores.Len() == 0
			result.ChangePoints = FlagChangePoints(scores, ae.cfg.FlagDim, ae.cfg.FlagWindow, ae.cfg.FlagThreshold)
		}
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		logger.Error("analysis failed", "error", err)
		result.Error = err.Error()
	}

	if err := ae.store.SaveAnalysis(ae.ctx, job.UnitID, result); err != nil {
		logger.Error("failed to save analysis", "error", err)
	}

	for _, cp := range result.ChangePoints {
		logger.Info("change point detected",
			"index", cp.Index, "timestamp", cp.Timestamp, "score", cp.Score, "z_score", cp.ZScore)

		if ae.onChange != nil {
			ae.onChange(job.UnitID, cp)
		}
	}
}
