package analytics

import (
	"fmt"
	"iter"

	"dga-topology/models"
)

// WindowPair describes step Index of the sliding comparison: window A covers
// rows [Start, Start+W) and window B covers [Start+W, Start+2W).
type WindowPair struct {
	Index int
	Start int
}

// PairPlan enumerates window pairs over a series of fixed length. It holds no
// iteration state, so All can be ranged over any number of times.
type PairPlan struct {
	length int
	window int
	step   int
}

// NewPairPlan validates the window geometry for a series of length rows.
func NewPairPlan(length, window, step int) (PairPlan, error) {
	if window <= 0 {
		return PairPlan{}, fmt.Errorf("%w: window_size must be positive, got %d", models.ErrInvalidConfig, window)
	}
	if step <= 0 {
		return PairPlan{}, fmt.Errorf("%w: step must be positive, got %d", models.ErrInvalidConfig, step)
	}
	if length < 0 {
		length = 0
	}

	return PairPlan{length: length, window: window, step: step}, nil
}

// WindowSize returns W.
func (p PairPlan) WindowSize() int {
	return p.window
}

// Count returns floor((L-2W)/S)+1 when L >= 2W and 0 otherwise.
func (p PairPlan) Count() int {
	span := p.length - 2*p.window
	if span < 0 {
		return 0
	}

	return span/p.step + 1
}

// Pair returns the k-th pair. k must be in [0, Count()).
func (p PairPlan) Pair(k int) WindowPair {
	return WindowPair{Index: k, Start: k * p.step}
}

// All yields every pair in order.
func (p PairPlan) All() iter.Seq[WindowPair] {
	return func(yield func(WindowPair) bool) {
		for k := range p.Count() {
			if !yield(p.Pair(k)) {
				return
			}
		}
	}
}

// WindowStarts returns the distinct start rows of every window any pair
// touches, in increasing order.
func (p PairPlan) WindowStarts() []int {
	n := p.Count()
	if n == 0 {
		return nil
	}

	seen := make(map[int]struct{}, 2*n)
	starts := make([]int, 0, 2*n)
	add := func(s int) {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			starts = append(starts, s)
		}
	}

	// Both A starts and B starts are increasing, so merge them in order.
	a, b := 0, 0
	for a < n || b < n {
		sa, sb := -1, -1
		if a < n {
			sa = p.Pair(a).Start
		}
		if b < n {
			sb = p.Pair(b).Start + p.window
		}

		switch {
		case sb < 0 || (sa >= 0 && sa <= sb):
			add(sa)
			a++
		default:
			add(sb)
			b++
		}
	}

	return starts
}

// Window returns rows [start, start+W) of rows.
func (p PairPlan) Window(rows [][]float64, start int) models.Window {
	return models.Window{Start: start, Rows: rows[start : start+p.window]}
}
