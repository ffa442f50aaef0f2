package analytics

import (
	"fmt"

	"dga-topology/models"
)

// DefaultCompareMaxPoints bounds the point cloud of a whole-unit comparison.
// The Rips complex grows with the (maxdim+2)-th power of the point count.
const DefaultCompareMaxPoints = 60

// Comparison holds the diagrams of two units and their per-dimension distance.
type Comparison struct {
	Diagrams  [2][]models.PersistenceDiagram
	Distances []float64
	Points    [2]int
}

// CompareUnits standardizes each unit on its own statistics, computes
// persistence of each whole series and the distance per dimension. Series
// longer than maxPoints rows are thinned to maxPoints evenly spaced rows.
func CompareUnits(a, b *models.Series, maxDim, maxPoints int, homology PersistenceComputer, distance DiagramDistance) (*Comparison, error) {
	if maxDim < 0 {
		return nil, fmt.Errorf("%w: maxdim must be non-negative, got %d", models.ErrInvalidConfig, maxDim)
	}
	if maxPoints <= 0 {
		maxPoints = DefaultCompareMaxPoints
	}

	var result Comparison

	for i, unit := range []*models.Series{a, b} {
		if err := unit.Validate(); err != nil {
			return nil, fmt.Errorf("unit %d: %w", i+1, err)
		}
		if unit.Len() == 0 {
			return nil, fmt.Errorf("unit %d: %w", i+1, models.ErrInsufficientData)
		}

		scaler, err := FitScaler(unit.Rows())
		if err != nil {
			return nil, fmt.Errorf("unit %d: %w", i+1, err)
		}
		std, err := scaler.Transform(unit)
		if err != nil {
			return nil, fmt.Errorf("unit %d: %w", i+1, err)
		}

		points := thin(std.Rows(), maxPoints)
		dgms, err := homology.Persistence(points, maxDim)
		if err != nil {
			return nil, &models.ComputationError{Stage: "persistence", Index: i, Err: err}
		}

		result.Diagrams[i] = dgms
		result.Points[i] = len(points)
	}

	result.Distances = make([]float64, maxDim+1)
	for d := range result.Distances {
		dist, err := distance.Distance(result.Diagrams[0][d], result.Diagrams[1][d])
		if err != nil {
			return nil, &models.ComputationError{Stage: "distance", Index: d, Err: err}
		}
		result.Distances[d] = dist
	}

	return &result, nil
}

// thin keeps n evenly spaced rows, first and last included.
func thin(rows [][]float64, n int) [][]float64 {
	if len(rows) <= n {
		return rows
	}
	if n == 1 {
		return rows[:1]
	}

	out := make([][]float64, n)
	for i := range out {
		out[i] = rows[i*(len(rows)-1)/(n-1)]
	}

	return out
}
