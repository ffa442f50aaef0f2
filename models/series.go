package models

import (
	"fmt"
	"math"
	"time"
)

// Observation is one timestamped reading of every monitored channel.
type Observation struct {
	Timestamp time.Time `json:"timestamp"`
	Values    []float64 `json:"values"`
}

// Series is a time-ordered sequence of observations sharing one channel layout.
type Series struct {
	Channels     []string      `json:"channels"`
	Observations []Observation `json:"observations"`
}

// NewSeries builds a series from parallel timestamp and row slices.
func NewSeries(channels []string, timestamps []time.Time, rows [][]float64) (*Series, error) {
	if len(timestamps) != len(rows) {
		return nil, fmt.Errorf("%w: %d timestamps for %d rows", ErrInvalidSeries, len(timestamps), len(rows))
	}

	obs := make([]Observation, len(rows))
	for i := range rows {
		obs[i] = Observation{Timestamp: timestamps[i], Values: rows[i]}
	}

	s := &Series{Channels: channels, Observations: obs}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

// Validate checks the channel layout, finiteness and timestamp ordering.
func (s *Series) Validate() error {
	if len(s.Channels) == 0 {
		return fmt.Errorf("%w: no channels", ErrInvalidSeries)
	}

	for i, o := range s.Observations {
		if len(o.Values) != len(s.Channels) {
			return fmt.Errorf("%w: row %d has %d values, want %d", ErrInvalidSeries, i, len(o.Values), len(s.Channels))
		}

		for c, v := range o.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: row %d channel %s is not finite", ErrInvalidSeries, i, s.Channels[c])
			}
		}

		if i > 0 && !o.Timestamp.After(s.Observations[i-1].Timestamp) {
			return fmt.Errorf("%w: timestamp at row %d is not after row %d", ErrInvalidSeries, i, i-1)
		}
	}

	return nil
}

// Len returns the number of observations.
func (s *Series) Len() int {
	return len(s.Observations)
}

// Rows returns the observation values as a row-major matrix. Rows alias the
// observation slices.
func (s *Series) Rows() [][]float64 {
	rows := make([][]float64, len(s.Observations))
	for i, o := range s.Observations {
		rows[i] = o.Values
	}

	return rows
}

// Timestamps returns the observation timestamps in order.
func (s *Series) Timestamps() []time.Time {
	ts := make([]time.Time, len(s.Observations))
	for i, o := range s.Observations {
		ts[i] = o.Timestamp
	}

	return ts
}

// Slice returns the observations in [start, end) sharing the channel layout.
func (s *Series) Slice(start, end int) *Series {
	if start < 0 {
		start = 0
	}
	if end > len(s.Observations) {
		end = len(s.Observations)
	}
	if start >= end {
		return &Series{Channels: s.Channels}
	}

	return &Series{Channels: s.Channels, Observations: s.Observations[start:end]}
}

// StandardizedSeries is a series after scaling with a frozen Scaler.
type StandardizedSeries struct {
	Series
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// Window is a contiguous block of standardized rows starting at Start.
type Window struct {
	Start int
	Rows  [][]float64
}
