package analytics

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"dga-topology/models"
)

// DiagramDistance measures the dissimilarity of two diagrams of the same
// homology dimension.
type DiagramDistance interface {
	Distance(a, b models.PersistenceDiagram) (float64, error)
}

// EmptyPolicy decides the distance when a diagram has no pairs.
type EmptyPolicy string

const (
	// EmptyZero returns 0 when either diagram is empty.
	EmptyZero EmptyPolicy = "zero"
	// EmptyNaN returns NaN when either diagram is empty.
	EmptyNaN EmptyPolicy = "nan"
	// EmptyDiagonal applies no special case: points of the other diagram are
	// matched to the diagonal.
	EmptyDiagonal EmptyPolicy = "diagonal"
)

// GroundMetric is the distance between two off-diagonal points.
type GroundMetric string

const (
	Chebyshev GroundMetric = "chebyshev"
	Euclidean GroundMetric = "euclidean"
)

// Wasserstein is the order-p optimal matching distance between diagrams.
// Unmatched points pay their Euclidean distance to the diagonal. Points with
// an infinite death are ignored. Zero values select order 1, the Chebyshev
// ground metric and EmptyZero.
type Wasserstein struct {
	Order  float64
	Metric GroundMetric
	Empty  EmptyPolicy
}

// Validate rejects unknown metrics and policies and orders below 1.
func (w Wasserstein) Validate() error {
	if w.Order != 0 && (w.Order < 1 || math.IsInf(w.Order, 0) || math.IsNaN(w.Order)) {
		return fmt.Errorf("%w: wasserstein order must be finite and >= 1, got %v", models.ErrInvalidConfig, w.Order)
	}

	switch w.Metric {
	case "", Chebyshev, Euclidean:
	default:
		return fmt.Errorf("%w: unknown ground metric %q", models.ErrInvalidConfig, w.Metric)
	}

	switch w.Empty {
	case "", EmptyZero, EmptyNaN, EmptyDiagonal:
	default:
		return fmt.Errorf("%w: unknown empty-diagram policy %q", models.ErrInvalidConfig, w.Empty)
	}

	return nil
}

// Distance implements DiagramDistance.
func (w Wasserstein) Distance(a, b models.PersistenceDiagram) (float64, error) {
	if a.Dimension != b.Dimension {
		return 0, fmt.Errorf("diagram dimensions differ: %d and %d", a.Dimension, b.Dimension)
	}

	if a.Empty() || b.Empty() {
		switch w.Empty {
		case EmptyNaN:
			return math.NaN(), nil
		case EmptyDiagonal:
		default:
			return 0, nil
		}
	}

	s, t := canonicalPairs(a), canonicalPairs(b)
	if comparePairs(t, s) < 0 {
		s, t = t, s
	}

	m, n := len(s), len(t)
	if m+n == 0 {
		return 0, nil
	}

	order := w.Order
	if order == 0 {
		order = 1
	}

	cost := make([][]float64, m+n)
	for i := range cost {
		cost[i] = make([]float64, m+n)
	}

	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			cost[i][j] = math.Pow(w.ground(s[i], t[j]), order)
		}
		d := math.Pow(diagonalDistance(s[i]), order)
		for j := n; j < m+n; j++ {
			cost[i][j] = d
		}
	}
	for j := 0; j < n; j++ {
		d := math.Pow(diagonalDistance(t[j]), order)
		for i := m; i < m+n; i++ {
			cost[i][j] = d
		}
	}

	_, total := minCostAssignment(cost)
	if total < 0 {
		total = 0
	}

	return math.Pow(total, 1/order), nil
}

func (w Wasserstein) ground(p, q models.PersistencePair) float64 {
	db, dd := math.Abs(p.Birth-q.Birth), math.Abs(p.Death-q.Death)
	if w.Metric == Euclidean {
		return math.Hypot(db, dd)
	}

	return math.Max(db, dd)
}

func diagonalDistance(p models.PersistencePair) float64 {
	return (p.Death - p.Birth) / math.Sqrt2
}

func canonicalPairs(d models.PersistenceDiagram) []models.PersistencePair {
	pairs := d.FinitePairs()
	sortPairs(pairs)

	return pairs
}

func comparePairs(a, b []models.PersistencePair) int {
	if c := cmp.Compare(len(a), len(b)); c != 0 {
		return c
	}

	return slices.CompareFunc(a, b, func(p, q models.PersistencePair) int {
		if c := cmp.Compare(p.Birth, q.Birth); c != 0 {
			return c
		}
		return cmp.Compare(p.Death, q.Death)
	})
}
