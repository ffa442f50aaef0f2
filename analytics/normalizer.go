package analytics

import (
	"fmt"
	"math"

	"dga-topology/models"

	"gonum.org/v1/gonum/stat"
)

// Scaler holds per-channel statistics fitted once on a reference batch.
// It is never refit while a run is in progress.
type Scaler struct {
	Mean []float64
	Std  []float64
}

// FitScaler computes the per-channel mean and population standard deviation
// of the reference rows.
func FitScaler(reference [][]float64) (*Scaler, error) {
	if len(reference) == 0 {
		return nil, fmt.Errorf("%w: empty reference batch", models.ErrInvalidConfig)
	}

	channels := len(reference[0])
	scaler := &Scaler{
		Mean: make([]float64, channels),
		Std:  make([]float64, channels),
	}

	column := make([]float64, len(reference))
	for c := 0; c < channels; c++ {
		for r, row := range reference {
			if len(row) != channels {
				return nil, fmt.Errorf("%w: reference row %d has %d values, want %d", models.ErrInvalidSeries, r, len(row), channels)
			}
			column[r] = row[c]
		}

		mean, std := stat.PopMeanStdDev(column, nil)
		if math.IsNaN(mean) || math.IsInf(mean, 0) {
			return nil, fmt.Errorf("%w: channel %d is not finite", models.ErrInvalidSeries, c)
		}

		// Constant channels can leave rounding noise in the deviation.
		if std <= zeroScaleTolerance*math.Max(1, math.Abs(mean)) {
			std = 0
		}

		scaler.Mean[c] = mean
		scaler.Std[c] = std
	}

	return scaler, nil
}

const zeroScaleTolerance = 10 * 2.220446049250313e-16

// Channels returns the number of channels the scaler was fitted on.
func (s *Scaler) Channels() int {
	return len(s.Mean)
}

// TransformRow writes the scaled values of row into dst and returns it.
// Channels with zero deviation map to 0.
func (s *Scaler) TransformRow(dst, row []float64) []float64 {
	if dst == nil {
		dst = make([]float64, len(row))
	}

	for c, v := range row {
		if s.Std[c] == 0 {
			dst[c] = 0
			continue
		}
		dst[c] = (v - s.Mean[c]) / s.Std[c]
	}

	return dst
}

// Transform scales every observation of series, reference rows included.
func (s *Scaler) Transform(series *models.Series) (*models.StandardizedSeries, error) {
	if len(series.Channels) != s.Channels() {
		return nil, fmt.Errorf("%w: series has %d channels, scaler %d", models.ErrInvalidSeries, len(series.Channels), s.Channels())
	}

	obs := make([]models.Observation, series.Len())
	for i, o := range series.Observations {
		obs[i] = models.Observation{
			Timestamp: o.Timestamp,
			Values:    s.TransformRow(nil, o.Values),
		}
	}

	return &models.StandardizedSeries{
		Series: models.Series{Channels: series.Channels, Observations: obs},
		Mean:   append([]float64(nil), s.Mean...),
		Std:    append([]float64(nil), s.Std...),
	}, nil
}

// Difference returns the first differences of series. Row k of the result
// carries the timestamp of input row k+1.
func Difference(series *models.Series) *models.Series {
	if series.Len() < 2 {
		return &models.Series{Channels: series.Channels}
	}

	obs := make([]models.Observation, series.Len()-1)
	for i := 1; i < series.Len(); i++ {
		prev, cur := series.Observations[i-1].Values, series.Observations[i].Values
		values := make([]float64, len(cur))
		for c := range cur {
			values[c] = cur[c] - prev[c]
		}
		obs[i-1] = models.Observation{Timestamp: series.Observations[i].Timestamp, Values: values}
	}

	return &models.Series{Channels: series.Channels, Observations: obs}
}
