package models

import (
	"encoding/json"
	"errors"
	"math"
	"time"
)

// Alignment selects which observation timestamps a window pair's score.
type Alignment string

const (
	// AlignEnd stamps a pair at the last row of its second window.
	AlignEnd Alignment = "end"
	// AlignBoundary stamps a pair at the first row of its second window.
	AlignBoundary Alignment = "boundary"
	// AlignStart stamps a pair at the first row of its first window.
	AlignStart Alignment = "start"
)

// Valid reports whether a is a known alignment.
func (a Alignment) Valid() bool {
	switch a {
	case AlignEnd, AlignBoundary, AlignStart:
		return true
	}

	return false
}

// Offset returns the row offset from the pair start for window size w.
func (a Alignment) Offset(w int) int {
	switch a {
	case AlignBoundary:
		return w
	case AlignStart:
		return 0
	default:
		return 2*w - 1
	}
}

// ChangeScore is the distance between the two windows of one pair, one value
// per homology dimension.
type ChangeScore struct {
	Index     int
	Start     int
	Timestamp time.Time
	Distances []float64
}

type changeScoreJSON struct {
	Index     int        `json:"index"`
	Start     int        `json:"start"`
	Timestamp time.Time  `json:"timestamp"`
	Distances []*float64 `json:"distances"`
}

// MarshalJSON writes NaN distances as null.
func (c ChangeScore) MarshalJSON() ([]byte, error) {
	out := changeScoreJSON{
		Index:     c.Index,
		Start:     c.Start,
		Timestamp: c.Timestamp,
		Distances: make([]*float64, len(c.Distances)),
	}

	for i := range c.Distances {
		if !math.IsNaN(c.Distances[i]) {
			v := c.Distances[i]
			out.Distances[i] = &v
		}
	}

	return json.Marshal(out)
}

// UnmarshalJSON reads null distances back as NaN.
func (c *ChangeScore) UnmarshalJSON(data []byte) error {
	var in changeScoreJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	c.Index = in.Index
	c.Start = in.Start
	c.Timestamp = in.Timestamp
	c.Distances = make([]float64, len(in.Distances))

	for i, d := range in.Distances {
		if d == nil {
			c.Distances[i] = math.NaN()
		} else {
			c.Distances[i] = *d
		}
	}

	return nil
}

// ChangeScoreSeries is the ordered output of one analysis run.
type ChangeScoreSeries struct {
	Channels   []string      `json:"channels"`
	WindowSize int           `json:"window_size"`
	Step       int           `json:"step"`
	MaxDim     int           `json:"maxdim"`
	Alignment  Alignment     `json:"alignment"`
	Scores     []ChangeScore `json:"scores"`
}

// Len returns the number of scores.
func (s *ChangeScoreSeries) Len() int {
	return len(s.Scores)
}

// Dimension returns the distances of homology dimension dim across all steps.
func (s *ChangeScoreSeries) Dimension(dim int) []float64 {
	out := make([]float64, len(s.Scores))
	for i, sc := range s.Scores {
		if dim < len(sc.Distances) {
			out[i] = sc.Distances[dim]
		} else {
			out[i] = math.NaN()
		}
	}

	return out
}

// ChangePoint is a step whose score stood out from the trailing scores.
type ChangePoint struct {
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`
	Score     float64   `json:"score"`
	ZScore    float64   `json:"z_score"`
}

// AnalysisResult is what one unit's analysis leaves behind.
type AnalysisResult struct {
	UnitID           string            `json:"unit_id"`
	Series           ChangeScoreSeries `json:"series"`
	ChangePoints     []ChangePoint     `json:"change_points"`
	InsufficientData bool              `json:"insufficient_data"`
	Error            string            `json:"error,omitempty"`
	ProcessedAt      time.Time         `json:"processed_at"`
}

// AnalysisRequest is the body of an analysis submission.
type AnalysisRequest struct {
	UnitID     string         `json:"unit_id"`
	Channels   []string       `json:"channels"`
	Timestamps []string       `json:"timestamps"`
	Rows       [][]float64    `json:"rows"`
	Options    *RequestConfig `json:"options,omitempty"`
}

// RequestConfig overrides analysis options for one request. Zero values keep
// the server defaults.
type RequestConfig struct {
	WindowSize  int    `json:"window_size,omitempty"`
	Step        int    `json:"step,omitempty"`
	MaxDim      *int   `json:"maxdim,omitempty"`
	Difference  *bool  `json:"difference,omitempty"`
	Alignment   string `json:"alignment,omitempty"`
	EmptyPolicy string `json:"empty_policy,omitempty"`
}

// Validate checks the request shape; series validation happens in Series.
func (r *AnalysisRequest) Validate() error {
	if r.UnitID == "" {
		return errors.New("unit_id is required")
	}

	if len(r.Channels) == 0 {
		return errors.New("channels are required")
	}

	if len(r.Timestamps) != len(r.Rows) {
		return errors.New("timestamps and rows must have the same length")
	}

	return nil
}

// Series parses the RFC3339 timestamps and builds a validated series.
func (r *AnalysisRequest) Series() (*Series, error) {
	ts := make([]time.Time, len(r.Timestamps))
	for i, raw := range r.Timestamps {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, errors.New("invalid timestamp format, expected RFC3339")
		}
		ts[i] = t
	}

	return NewSeries(r.Channels, ts, r.Rows)
}
