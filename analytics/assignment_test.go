package analytics

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinCostAssignmentKnown(t *testing.T) {
	t.Parallel()

	cost := [][]float64{
		{4, 1, 3},
		{2, 0, 5},
		{3, 2, 2},
	}

	assign, total := minCostAssignment(cost)
	assert.Equal(t, []int{1, 0, 2}, assign)
	assert.InDelta(t, 5, total, 1e-12)

	assign, total = minCostAssignment(nil)
	assert.Nil(t, assign)
	assert.Zero(t, total)
}

func bruteForceAssignment(cost [][]float64) float64 {
	n := len(cost)
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}

	best := math.Inf(1)
	var permute func(k int)
	permute = func(k int) {
		if k == n {
			var total float64
			for i, j := range perm {
				total += cost[i][j]
			}
			best = math.Min(best, total)
			return
		}
		for i := k; i < n; i++ {
			perm[k], perm[i] = perm[i], perm[k]
			permute(k + 1)
			perm[k], perm[i] = perm[i], perm[k]
		}
	}
	permute(0)

	return best
}

func TestMinCostAssignmentMatchesBruteForce(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(7, 11))
	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.IntN(6)
		cost := make([][]float64, n)
		for i := range cost {
			cost[i] = make([]float64, n)
			for j := range cost[i] {
				cost[i][j] = math.Round(rng.Float64()*100) / 10
			}
		}

		assign, total := minCostAssignment(cost)

		seen := make(map[int]bool, n)
		for _, j := range assign {
			assert.False(t, seen[j], "column %d assigned twice", j)
			seen[j] = true
		}
		assert.InDelta(t, bruteForceAssignment(cost), total, 1e-9, "trial %d", trial)
	}
}
