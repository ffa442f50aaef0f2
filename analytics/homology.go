package analytics

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"dga-topology/models"

	"gonum.org/v1/gonum/floats"
)

// PersistenceComputer turns a point cloud into one persistence diagram per
// homology dimension 0..maxDim.
type PersistenceComputer interface {
	Persistence(points [][]float64, maxDim int) ([]models.PersistenceDiagram, error)
}

var errNonFinitePoint = errors.New("point cloud contains non-finite coordinates")

// Rips computes persistent homology of the Vietoris–Rips filtration built on
// Euclidean distances between points. Zero-persistence pairs are omitted.
// Threshold caps the filtration; zero, negative or +Inf means no cap. Classes
// still alive at the cap are reported with an infinite death.
//
// MaxSimplices caps the number of simplices in any one dimension of the
// complex, counted without the threshold; 0 means DefaultMaxSimplices.
// Larger inputs are rejected before anything is allocated.
type Rips struct {
	Threshold    float64
	MaxSimplices int
}

type simplex struct {
	index int64
	diam  float64
	verts []int
}

type ripsComplex struct {
	n      int
	dist   [][]float64
	binom  [][]int64
	thresh float64
}

// Persistence implements PersistenceComputer.
func (r Rips) Persistence(points [][]float64, maxDim int) ([]models.PersistenceDiagram, error) {
	if maxDim < 0 {
		return nil, fmt.Errorf("%w: maxdim must be non-negative, got %d", models.ErrInvalidConfig, maxDim)
	}

	diagrams := make([]models.PersistenceDiagram, maxDim+1)
	for d := range diagrams {
		diagrams[d] = models.PersistenceDiagram{Dimension: d, Pairs: []models.PersistencePair{}}
	}

	if len(points) == 0 {
		return diagrams, nil
	}
	if err := r.checkSize(len(points), maxDim); err != nil {
		return nil, err
	}

	rc, err := newRipsComplex(points, maxDim, r.threshold())
	if err != nil {
		return nil, err
	}

	edges := rc.simplices(1)
	pairs0, negative := rc.componentPairs(edges)
	diagrams[0].Pairs = pairs0

	faces := edges
	for k := 1; k <= maxDim; k++ {
		cofaces := rc.simplices(k + 1)
		pairs, cofaceNegative := rc.reduce(faces, negative, cofaces)
		diagrams[k].Pairs = pairs
		faces, negative = cofaces, cofaceNegative
	}

	for d := range diagrams {
		sortPairs(diagrams[d].Pairs)
	}

	return diagrams, nil
}

func (r Rips) threshold() float64 {
	if r.Threshold <= 0 || math.IsNaN(r.Threshold) {
		return math.Inf(1)
	}

	return r.Threshold
}

func (r Rips) budget() int {
	if r.MaxSimplices > 0 {
		return r.MaxSimplices
	}

	return DefaultMaxSimplices
}

// checkSize rejects complexes on n points whose largest dimension up to
// maxDim+1 holds more simplices than the budget.
func (r Rips) checkSize(n, maxDim int) error {
	if maxDim > MaxSupportedDim {
		return fmt.Errorf("%w: maxdim %d exceeds %d", models.ErrInvalidConfig, maxDim, MaxSupportedDim)
	}

	budget := r.budget()
	if size := largestSkeleton(n, maxDim+1); size > float64(budget) {
		return fmt.Errorf("%w: %d points at maxdim %d give %.4g simplices in one dimension, limit %d",
			models.ErrInvalidConfig, n, maxDim, size, budget)
	}

	return nil
}

// largestSkeleton returns max over 1 <= d <= maxSimplexDim of C(n, d+1), the
// simplex count of the full d-skeleton level on n points.
func largestSkeleton(n, maxSimplexDim int) float64 {
	top := min(maxSimplexDim+1, n)
	c, best := float64(n), 0.0
	for k := 2; k <= top; k++ {
		c = c * float64(n-k+1) / float64(k)
		best = math.Max(best, c)
		if math.IsInf(c, 1) {
			break
		}
	}

	return best
}

func newRipsComplex(points [][]float64, maxDim int, thresh float64) (*ripsComplex, error) {
	n := len(points)
	width := len(points[0])

	for i, p := range points {
		if len(p) != width {
			return nil, fmt.Errorf("point %d has %d coordinates, want %d", i, len(p), width)
		}
		for _, v := range p {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("point %d: %w", i, errNonFinitePoint)
			}
		}
	}

	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := floats.Distance(points[i], points[j], 2)
			dist[i][j] = d
			dist[j][i] = d
		}
	}

	// binom[v][k] = C(v, k) for the combinatorial number system.
	maxK := maxDim + 2
	binom := make([][]int64, n+1)
	for v := range binom {
		binom[v] = make([]int64, maxK+1)
		binom[v][0] = 1
		for k := 1; k <= maxK && v > 0; k++ {
			binom[v][k] = binom[v-1][k-1] + binom[v-1][k]
		}
	}

	return &ripsComplex{n: n, dist: dist, binom: binom, thresh: thresh}, nil
}

func (rc *ripsComplex) indexOf(verts []int) int64 {
	var idx int64
	for i, v := range verts {
		idx += rc.binom[v][i+1]
	}

	return idx
}

// simplices lists every dim-simplex within the threshold, ordered by
// diameter and then by combinatorial index.
func (rc *ripsComplex) simplices(dim int) []simplex {
	size := dim + 1
	if size > rc.n {
		return nil
	}

	var out []simplex
	verts := make([]int, size)

	var walk func(next, depth int, diam float64)
	walk = func(next, depth int, diam float64) {
		if depth == size {
			vs := slices.Clone(verts)
			out = append(out, simplex{index: rc.indexOf(vs), diam: diam, verts: vs})
			return
		}

		for v := next; v <= rc.n-(size-depth); v++ {
			d := diam
			for _, u := range verts[:depth] {
				d = math.Max(d, rc.dist[u][v])
			}
			if d > rc.thresh {
				continue
			}
			verts[depth] = v
			walk(v+1, depth+1, d)
		}
	}
	walk(0, 0, 0)

	slices.SortFunc(out, func(a, b simplex) int {
		if c := cmp.Compare(a.diam, b.diam); c != 0 {
			return c
		}
		return cmp.Compare(a.index, b.index)
	})

	return out
}

// componentPairs computes H0 with a union-find over edges in filtration
// order. It also returns which edges merged two components.
func (rc *ripsComplex) componentPairs(edges []simplex) ([]models.PersistencePair, []bool) {
	parent := make([]int, rc.n)
	for i := range parent {
		parent[i] = i
	}

	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}

	pairs := []models.PersistencePair{}
	negative := make([]bool, len(edges))
	components := rc.n

	for i, e := range edges {
		a, b := find(e.verts[0]), find(e.verts[1])
		if a == b {
			continue
		}
		parent[max(a, b)] = min(a, b)
		negative[i] = true
		components--
		if e.diam > 0 {
			pairs = append(pairs, models.PersistencePair{Birth: 0, Death: e.diam})
		}
	}

	for range components {
		pairs = append(pairs, models.PersistencePair{Birth: 0, Death: math.Inf(1)})
	}

	return pairs, negative
}

// reduce runs Z/2 column reduction of the boundary matrix from cofaces to
// faces. negative marks faces that already kill a lower-dimensional class.
// It returns the pairs of the faces' dimension and which cofaces are
// negative.
func (rc *ripsComplex) reduce(faces []simplex, negative []bool, cofaces []simplex) ([]models.PersistencePair, []bool) {
	position := make(map[int64]int, len(faces))
	for i, f := range faces {
		position[f.index] = i
	}

	pairs := []models.PersistencePair{}
	pivotCols := make(map[int][]int)
	cofaceNegative := make([]bool, len(cofaces))
	killed := make([]bool, len(faces))
	face := make([]int, 0, 8)

	for j, c := range cofaces {
		col := make([]int, 0, len(c.verts))
		for drop := range c.verts {
			face = face[:0]
			face = append(face, c.verts[:drop]...)
			face = append(face, c.verts[drop+1:]...)
			col = append(col, position[rc.indexOf(face)])
		}
		slices.Sort(col)

		for len(col) > 0 {
			low := col[len(col)-1]
			other, ok := pivotCols[low]
			if !ok {
				break
			}
			col = symmetricDifference(col, other)
		}

		if len(col) == 0 {
			continue
		}

		low := col[len(col)-1]
		pivotCols[low] = col
		cofaceNegative[j] = true
		killed[low] = true

		if birth, death := faces[low].diam, c.diam; death > birth {
			pairs = append(pairs, models.PersistencePair{Birth: birth, Death: death})
		}
	}

	for i, f := range faces {
		if !negative[i] && !killed[i] {
			pairs = append(pairs, models.PersistencePair{Birth: f.diam, Death: math.Inf(1)})
		}
	}

	return pairs, cofaceNegative
}

// symmetricDifference merges two ascending index lists over Z/2.
func symmetricDifference(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)

	return out
}

func sortPairs(pairs []models.PersistencePair) {
	slices.SortFunc(pairs, func(a, b models.PersistencePair) int {
		if c := cmp.Compare(a.Birth, b.Birth); c != 0 {
			return c
		}
		return cmp.Compare(a.Death, b.Death)
	})
}
