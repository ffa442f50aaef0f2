package analytics

import (
	"math"
	"testing"

	"dga-topology/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func diagram(dim int, pairs ...float64) models.PersistenceDiagram {
	d := models.PersistenceDiagram{Dimension: dim, Pairs: []models.PersistencePair{}}
	for i := 0; i+1 < len(pairs); i += 2 {
		d.Pairs = append(d.Pairs, models.PersistencePair{Birth: pairs[i], Death: pairs[i+1]})
	}

	return d
}

func TestWassersteinKnownValues(t *testing.T) {
	t.Parallel()

	inf := math.Inf(1)

	tests := []struct {
		name     string
		w        Wasserstein
		a, b     models.PersistenceDiagram
		expected float64
	}{
		{
			name:     "identical",
			a:        diagram(0, 0, 1, 0, 2.5),
			b:        diagram(0, 0, 1, 0, 2.5),
			expected: 0,
		},
		{
			name:     "shifted_death",
			a:        diagram(0, 0, 1),
			b:        diagram(0, 0, 2),
			expected: 1,
		},
		{
			name:     "cheaper_through_diagonal",
			a:        diagram(1, 0, 4),
			b:        diagram(1, 10, 10.5),
			expected: 4.5 / math.Sqrt2,
		},
		{
			name:     "chebyshev",
			a:        diagram(1, 0, 1),
			b:        diagram(1, 0.5, 1.5),
			expected: 0.5,
		},
		{
			name:     "euclidean",
			w:        Wasserstein{Metric: Euclidean},
			a:        diagram(1, 0, 1),
			b:        diagram(1, 0.5, 1.5),
			expected: math.Hypot(0.5, 0.5),
		},
		{
			name:     "order_two",
			w:        Wasserstein{Order: 2},
			a:        diagram(0, 0, 1, 0, 3),
			b:        diagram(0, 0, 1),
			expected: 3 / math.Sqrt2,
		},
		{
			name:     "infinite_points_ignored",
			a:        diagram(0, 0, 1, 0, inf),
			b:        diagram(0, 0, 1, 0, inf),
			expected: 0,
		},
		{
			name:     "only_infinite_points",
			w:        Wasserstein{Empty: EmptyNaN},
			a:        diagram(0, 0, inf),
			b:        diagram(0, 0, inf),
			expected: 0,
		},
		{
			name:     "extra_point_to_diagonal",
			a:        diagram(0, 0, 1, 0, 2),
			b:        diagram(0, 0, 1),
			expected: 2 / math.Sqrt2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := tt.w.Distance(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, got, 1e-12)
		})
	}
}

func TestWassersteinEmptyPolicies(t *testing.T) {
	t.Parallel()

	empty := diagram(1)
	full := diagram(1, 0, 2)

	got, err := Wasserstein{}.Distance(empty, full)
	require.NoError(t, err)
	assert.Zero(t, got)

	got, err = Wasserstein{Empty: EmptyZero}.Distance(full, empty)
	require.NoError(t, err)
	assert.Zero(t, got)

	got, err = Wasserstein{Empty: EmptyNaN}.Distance(empty, full)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got))

	got, err = Wasserstein{Empty: EmptyDiagonal}.Distance(empty, full)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt2, got, 1e-12)

	got, err = Wasserstein{Empty: EmptyDiagonal}.Distance(empty, empty)
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestWassersteinSymmetricAndNonNegative(t *testing.T) {
	t.Parallel()

	a := diagram(1, 0.1, 0.9, 0.3, 0.35, 0.2, 1.7, 0.05, 0.5)
	b := diagram(1, 0.15, 1.1, 0.4, 0.42, 0.9, 1.0)

	for _, w := range []Wasserstein{{}, {Metric: Euclidean}, {Order: 2}, {Order: 3, Metric: Euclidean}} {
		ab, err := w.Distance(a, b)
		require.NoError(t, err)
		ba, err := w.Distance(b, a)
		require.NoError(t, err)

		assert.Equal(t, ab, ba, "%+v", w)
		assert.Greater(t, ab, 0.0)

		self, err := w.Distance(a, a)
		require.NoError(t, err)
		assert.InDelta(t, 0, self, 1e-12)
	}
}

func TestWassersteinPairOrderDoesNotMatter(t *testing.T) {
	t.Parallel()

	a := diagram(0, 0, 3, 0, 1, 0, 2)
	b := diagram(0, 0, 2.5, 0, 0.5)
	shuffled := diagram(0, 0, 1, 0, 2, 0, 3)

	x, err := Wasserstein{}.Distance(a, b)
	require.NoError(t, err)
	y, err := Wasserstein{}.Distance(shuffled, b)
	require.NoError(t, err)
	assert.Equal(t, x, y)
}

func TestWassersteinErrors(t *testing.T) {
	t.Parallel()

	_, err := Wasserstein{}.Distance(diagram(0, 0, 1), diagram(1, 0, 1))
	require.Error(t, err)

	require.ErrorIs(t, Wasserstein{Order: 0.5}.Validate(), models.ErrInvalidConfig)
	require.ErrorIs(t, Wasserstein{Order: math.Inf(1)}.Validate(), models.ErrInvalidConfig)
	require.ErrorIs(t, Wasserstein{Metric: "manhattan"}.Validate(), models.ErrInvalidConfig)
	require.ErrorIs(t, Wasserstein{Empty: "skip"}.Validate(), models.ErrInvalidConfig)
	require.NoError(t, Wasserstein{}.Validate())
	require.NoError(t, Wasserstein{Order: 2, Metric: Euclidean, Empty: EmptyDiagonal}.Validate())
}
