package models

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hours(n int) []time.Time {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ts := make([]time.Time, n)
	for i := range ts {
		ts[i] = base.Add(time.Duration(i) * time.Hour)
	}

	return ts
}

func TestNewSeries(t *testing.T) {
	t.Parallel()

	s, err := NewSeries([]string{"H2", "CH4"}, hours(3), [][]float64{{1, 2}, {3, 4}, {5, 6}})
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}, {5, 6}}, s.Rows())
	assert.Equal(t, hours(3), s.Timestamps())

	sub := s.Slice(1, 10)
	assert.Equal(t, 2, sub.Len())
	assert.Equal(t, []float64{3, 4}, sub.Observations[0].Values)
	assert.Zero(t, s.Slice(2, 1).Len())
	assert.Equal(t, s.Channels, s.Slice(2, 1).Channels)
}

func TestSeriesValidate(t *testing.T) {
	t.Parallel()

	ts := hours(2)

	tests := []struct {
		name       string
		channels   []string
		timestamps []time.Time
		rows       [][]float64
	}{
		{name: "no_channels", timestamps: ts, rows: [][]float64{{}, {}}},
		{name: "length_mismatch", channels: []string{"a"}, timestamps: ts[:1], rows: [][]float64{{1}, {2}}},
		{name: "ragged", channels: []string{"a", "b"}, timestamps: ts, rows: [][]float64{{1, 2}, {3}}},
		{name: "nan", channels: []string{"a"}, timestamps: ts, rows: [][]float64{{1}, {math.NaN()}}},
		{name: "inf", channels: []string{"a"}, timestamps: ts, rows: [][]float64{{math.Inf(1)}, {1}}},
		{name: "duplicate_time", channels: []string{"a"}, timestamps: []time.Time{ts[0], ts[0]}, rows: [][]float64{{1}, {2}}},
		{name: "backwards", channels: []string{"a"}, timestamps: []time.Time{ts[1], ts[0]}, rows: [][]float64{{1}, {2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewSeries(tt.channels, tt.timestamps, tt.rows)
			require.ErrorIs(t, err, ErrInvalidSeries)
		})
	}
}

func TestAlignment(t *testing.T) {
	t.Parallel()

	assert.True(t, AlignEnd.Valid())
	assert.True(t, AlignBoundary.Valid())
	assert.True(t, AlignStart.Valid())
	assert.False(t, Alignment("middle").Valid())
	assert.False(t, Alignment("").Valid())

	assert.Equal(t, 59, AlignEnd.Offset(30))
	assert.Equal(t, 30, AlignBoundary.Offset(30))
	assert.Equal(t, 0, AlignStart.Offset(30))
	assert.Equal(t, 59, Alignment("").Offset(30))
}

func TestChangeScoreJSON(t *testing.T) {
	t.Parallel()

	in := ChangeScore{Index: 3, Start: 3, Timestamp: hours(1)[0], Distances: []float64{0.30000000000000004, math.NaN()}}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"index":3,"start":3,"timestamp":"2025-01-01T00:00:00Z","distances":[0.30000000000000004,null]}`, string(data))

	var out ChangeScore
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in.Index, out.Index)
	assert.True(t, in.Timestamp.Equal(out.Timestamp))
	require.Len(t, out.Distances, 2)
	assert.InDelta(t, in.Distances[0], out.Distances[0], 0)
	assert.True(t, math.IsNaN(out.Distances[1]))

	require.Error(t, json.Unmarshal([]byte(`{"distances":"x"}`), &out))
}

func TestChangeScoreSeriesDimension(t *testing.T) {
	t.Parallel()

	s := &ChangeScoreSeries{Scores: []ChangeScore{
		{Distances: []float64{1, 2}},
		{Distances: []float64{3}},
	}}

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []float64{1, 3}, s.Dimension(0))

	h1 := s.Dimension(1)
	assert.InDelta(t, 2, h1[0], 0)
	assert.True(t, math.IsNaN(h1[1]))
}

func TestPersistenceDiagram(t *testing.T) {
	t.Parallel()

	d := PersistenceDiagram{Dimension: 0, Pairs: []PersistencePair{{Birth: 0, Death: 2}, {Birth: 0, Death: math.Inf(1)}}}
	assert.Equal(t, 2, d.Len())
	assert.False(t, d.Empty())
	assert.Equal(t, []PersistencePair{{Birth: 0, Death: 2}}, d.FinitePairs())
	assert.InDelta(t, 2, d.Pairs[0].Persistence(), 0)
	assert.False(t, d.Pairs[1].Finite())
	assert.True(t, PersistenceDiagram{}.Empty())
}

func TestAnalysisRequest(t *testing.T) {
	t.Parallel()

	req := AnalysisRequest{
		UnitID:     "TR-1",
		Channels:   []string{"H2"},
		Timestamps: []string{"2025-01-01T00:00:00Z", "2025-01-01T01:00:00.5+01:00"},
		Rows:       [][]float64{{1}, {2}},
	}
	require.NoError(t, req.Validate())

	s, err := req.Series()
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	bad := req
	bad.UnitID = ""
	require.Error(t, bad.Validate())

	bad = req
	bad.Channels = nil
	require.Error(t, bad.Validate())

	bad = req
	bad.Rows = bad.Rows[:1]
	require.Error(t, bad.Validate())

	bad = req
	bad.Timestamps = []string{"2025-01-01", "2025-01-02"}
	_, err = bad.Series()
	require.Error(t, err)
}

func TestComputationError(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	var err error = &ComputationError{Stage: "persistence", Index: 4, Err: cause}

	assert.Equal(t, "persistence failed at index 4: boom", err.Error())
	require.ErrorIs(t, err, cause)
}
