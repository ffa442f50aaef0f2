package analytics

import (
	"fmt"
	"math"
	"runtime"

	"dga-topology/models"
)

// Default analysis parameters.
const (
	DefaultWindowSize = 30
	DefaultStep       = 1
	DefaultMaxDim     = 1
	DefaultOrder      = 1.0

	// DefaultMaxSimplices bounds the simplices of the largest dimension a
	// window's Rips complex may hold. It admits 60 points at maxdim 2.
	DefaultMaxSimplices = 500_000

	// MaxSupportedDim is the highest homology dimension a run may request.
	MaxSupportedDim = 16
)

// Options configures one analysis run.
type Options struct {
	WindowSize int
	Step       int
	MaxDim     int

	// ReferenceStart and ReferenceEnd select rows [start, end) of the
	// (differenced) series used to fit the scaler. ReferenceEnd 0 means the
	// end of the series.
	ReferenceStart int
	ReferenceEnd   int

	// Difference takes first differences before scaling.
	Difference bool

	Alignment    models.Alignment
	EmptyPolicy  EmptyPolicy
	GroundMetric GroundMetric
	Order        float64

	// Threshold caps the Rips filtration; 0 means no cap.
	Threshold float64

	// Workers bounds parallel window evaluation; 0 means runtime.NumCPU().
	Workers int

	// MaxSimplices caps the complex size; 0 means DefaultMaxSimplices.
	MaxSimplices int
}

// DefaultOptions returns window 30, step 1, maxdim 1 with end alignment and
// the zero-distance empty-diagram policy.
func DefaultOptions() Options {
	return Options{
		WindowSize:   DefaultWindowSize,
		Step:         DefaultStep,
		MaxDim:       DefaultMaxDim,
		Alignment:    models.AlignEnd,
		EmptyPolicy:  EmptyZero,
		GroundMetric: Chebyshev,
		Order:        DefaultOrder,
	}
}

// Validate rejects options that cannot describe a run.
func (o Options) Validate() error {
	if o.WindowSize <= 0 {
		return fmt.Errorf("%w: window_size must be positive, got %d", models.ErrInvalidConfig, o.WindowSize)
	}
	if o.Step <= 0 {
		return fmt.Errorf("%w: step must be positive, got %d", models.ErrInvalidConfig, o.Step)
	}
	if o.MaxDim < 0 {
		return fmt.Errorf("%w: maxdim must be non-negative, got %d", models.ErrInvalidConfig, o.MaxDim)
	}
	if o.ReferenceStart < 0 || o.ReferenceEnd < 0 {
		return fmt.Errorf("%w: reference range must be non-negative", models.ErrInvalidConfig)
	}
	if o.ReferenceEnd != 0 && o.ReferenceEnd <= o.ReferenceStart {
		return fmt.Errorf("%w: reference range [%d, %d) is empty", models.ErrInvalidConfig, o.ReferenceStart, o.ReferenceEnd)
	}
	if o.Alignment != "" && !o.Alignment.Valid() {
		return fmt.Errorf("%w: unknown alignment %q", models.ErrInvalidConfig, o.Alignment)
	}
	if o.Threshold < 0 || math.IsNaN(o.Threshold) {
		return fmt.Errorf("%w: threshold must be non-negative", models.ErrInvalidConfig)
	}
	if o.Workers < 0 {
		return fmt.Errorf("%w: workers must be non-negative", models.ErrInvalidConfig)
	}
	if o.MaxSimplices < 0 {
		return fmt.Errorf("%w: max_simplices must be non-negative", models.ErrInvalidConfig)
	}
	if err := o.homology().checkSize(o.WindowSize, o.MaxDim); err != nil {
		return err
	}

	return o.distance().Validate()
}

func (o Options) alignment() models.Alignment {
	if o.Alignment == "" {
		return models.AlignEnd
	}

	return o.Alignment
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}

	return runtime.NumCPU()
}

func (o Options) homology() Rips {
	return Rips{Threshold: o.Threshold, MaxSimplices: o.MaxSimplices}
}

func (o Options) distance() Wasserstein {
	return Wasserstein{Order: o.Order, Metric: o.GroundMetric, Empty: o.EmptyPolicy}
}
