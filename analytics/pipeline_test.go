package analytics

import (
	"context"
	"math"
	"testing"

	"dga-topology/models"
	"dga-topology/synth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constantRows(n int, values ...float64) [][]float64 {
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = append([]float64(nil), values...)
	}

	return rows
}

func TestPipelineConstantSeries(t *testing.T) {
	t.Parallel()

	series := seriesFromRows(t, []string{"a", "b", "c"}, constantRows(60, 1, 2, 3))

	p, err := NewPipeline(DefaultOptions(), nil)
	require.NoError(t, err)

	out, err := p.Analyze(context.Background(), series)
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())

	sc := out.Scores[0]
	assert.Equal(t, 0, sc.Index)
	assert.Equal(t, []float64{0, 0}, sc.Distances)
	assert.Equal(t, series.Observations[59].Timestamp, sc.Timestamp)
}

func TestPipelineTooShort(t *testing.T) {
	t.Parallel()

	series := seriesFromRows(t, []string{"a"}, constantRows(59, 1))

	p, err := NewPipeline(DefaultOptions(), nil)
	require.NoError(t, err)

	out, err := p.Analyze(context.Background(), series)
	require.NoError(t, err)
	assert.NotNil(t, out.Scores)
	assert.Zero(t, out.Len())
	assert.Equal(t, 30, out.WindowSize)

	_, err = p.Prepare(series)
	require.ErrorIs(t, err, models.ErrInsufficientData)
}

func TestPipelineStepChange(t *testing.T) {
	t.Parallel()

	rows := make([][]float64, 90)
	for i := range rows {
		x := float64(i)
		level := 0.0
		if i >= 30 {
			level = 10
		}
		rows[i] = []float64{level + 0.05*math.Sin(x), level + 0.05*math.Cos(1.3*x)}
	}
	series := seriesFromRows(t, []string{"H2", "CH4"}, rows)

	p, err := NewPipeline(DefaultOptions(), nil)
	require.NoError(t, err)

	out, err := p.Analyze(context.Background(), series)
	require.NoError(t, err)
	require.Equal(t, 31, out.Len())

	h0 := out.Dimension(0)
	calm := math.Max(h0[0], h0[30])
	for i := 1; i < 30; i++ {
		assert.Greater(t, h0[i], calm, "pair %d straddles the step", i)
	}
	assert.Greater(t, h0[15], 5*h0[30])
}

func TestPipelinePairCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rows, window, step int
		difference         bool
		expected           int
	}{
		{rows: 61, window: 30, step: 1, expected: 2},
		{rows: 200, window: 20, step: 5, expected: 33},
		{rows: 61, window: 30, step: 1, difference: true, expected: 1},
		{rows: 60, window: 30, step: 1, difference: true, expected: 0},
	}

	for _, tt := range tests {
		gen := synth.DefaultOptions()
		gen.Channels = gen.Channels[:2]
		gen.Rows = tt.rows

		opts := DefaultOptions()
		opts.WindowSize = tt.window
		opts.Step = tt.step
		opts.Difference = tt.difference
		opts.MaxDim = 0

		p, err := NewPipeline(opts, nil)
		require.NoError(t, err)

		out, err := p.Analyze(context.Background(), synth.Generate(gen))
		require.NoError(t, err)
		assert.Equal(t, tt.expected, out.Len(), "%+v", tt)
		for _, sc := range out.Scores {
			assert.Len(t, sc.Distances, 1)
		}
	}
}

func TestPipelineDeterministic(t *testing.T) {
	t.Parallel()

	gen := synth.DefaultOptions()
	gen.Rows = 80
	gen.StepAt = 40
	gen.StepSize = 20
	series := synth.Generate(gen)

	opts := DefaultOptions()
	opts.WindowSize = 15
	opts.Step = 2
	opts.Difference = true

	run := func(workers int) *models.ChangeScoreSeries {
		o := opts
		o.Workers = workers
		p, err := NewPipeline(o, nil)
		require.NoError(t, err)
		out, err := p.Analyze(context.Background(), series)
		require.NoError(t, err)
		return out
	}

	first := run(1)
	assert.Equal(t, first, run(1))
	assert.Equal(t, first, run(6))
}

func TestPipelineReferenceRange(t *testing.T) {
	t.Parallel()

	rows := make([][]float64, 60)
	for i := range rows {
		rows[i] = []float64{float64(i % 10)}
	}
	series := seriesFromRows(t, []string{"a"}, rows)

	opts := DefaultOptions()
	opts.ReferenceStart = 0
	opts.ReferenceEnd = 10

	p, err := NewPipeline(opts, nil)
	require.NoError(t, err)

	std, err := p.Prepare(series)
	require.NoError(t, err)
	assert.InDelta(t, 4.5, std.Mean[0], 1e-12)
	assert.InDelta(t, math.Sqrt(8.25), std.Std[0], 1e-12)

	opts.ReferenceEnd = 100
	p, err = NewPipeline(opts, nil)
	require.NoError(t, err)
	_, err = p.Prepare(series)
	require.ErrorIs(t, err, models.ErrInvalidConfig)
}

func TestPipelineRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	opts.WindowSize = -1
	_, err := NewPipeline(opts, nil)
	require.ErrorIs(t, err, models.ErrInvalidConfig)

	opts = DefaultOptions()
	opts.EmptyPolicy = "ignore"
	_, err = NewPipeline(opts, nil)
	require.ErrorIs(t, err, models.ErrInvalidConfig)

	opts = DefaultOptions()
	opts.ReferenceStart, opts.ReferenceEnd = 5, 5
	_, err = NewPipeline(opts, nil)
	require.ErrorIs(t, err, models.ErrInvalidConfig)

	p, err := NewPipeline(DefaultOptions(), nil)
	require.NoError(t, err)

	series := seriesFromRows(t, []string{"a"}, constantRows(60, 1))
	series.Observations[10].Values[0] = math.NaN()
	_, err = p.Analyze(context.Background(), series)
	require.ErrorIs(t, err, models.ErrInvalidSeries)
}

func TestPipelineWithStubs(t *testing.T) {
	t.Parallel()

	opts := stubOptions(5, 5)
	p, err := NewPipelineWith(opts, &labelHomology{failAt: 1e9}, deathGap{}, nil)
	require.NoError(t, err)
	assert.Equal(t, opts, p.Options())

	out, err := p.Analyze(context.Background(), seriesFromRows(t, []string{"a"}, constantRows(20, 3)))
	require.NoError(t, err)
	require.Equal(t, 3, out.Len())
	for _, sc := range out.Scores {
		assert.Equal(t, []float64{0, 1}, sc.Distances)
	}
}
