// Package synth generates deterministic dissolved-gas series for tests, demos
// and load generation.
package synth

import (
	"math"
	"math/rand/v2"
	"time"

	"dga-topology/models"
)

// Options shapes a generated series.
type Options struct {
	Channels []string
	Rows     int
	Start    time.Time
	Interval time.Duration
	Baseline float64 // level of every channel before the step
	Noise    float64 // amplitude of the per-row noise
	StepAt   int     // row where StepSize is added; negative disables it
	StepSize float64
	Seed     uint64
}

// DefaultOptions returns ten channels of hourly readings with no step.
func DefaultOptions() Options {
	return Options{
		Channels: []string{"H2", "CH4", "C2H2", "C2H4", "C2H6", "CO", "CO2", "O2", "GasComb", "H2O"},
		Rows:     200,
		Start:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval: time.Hour,
		Baseline: 100,
		Noise:    1,
		StepAt:   -1,
		Seed:     1,
	}
}

// Generate returns the same series for the same options.
func Generate(opts Options) *models.Series {
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	obs := make([]models.Observation, opts.Rows)

	for i := range obs {
		values := make([]float64, len(opts.Channels))
		for c := range values {
			level := opts.Baseline * (1 + float64(c)/10)
			if opts.StepAt >= 0 && i >= opts.StepAt {
				level += opts.StepSize
			}
			wave := math.Sin(float64(i)/7 + float64(c))
			values[c] = level + opts.Noise*(0.5*wave+rng.NormFloat64())
		}
		obs[i] = models.Observation{
			Timestamp: opts.Start.Add(time.Duration(i) * opts.Interval),
			Values:    values,
		}
	}

	return &models.Series{Channels: append([]string(nil), opts.Channels...), Observations: obs}
}
