package models

import "math"

// PersistencePair is one topological feature: the filtration values at which
// it appears and disappears. Essential features have an infinite Death.
type PersistencePair struct {
	Birth float64 `json:"birth"`
	Death float64 `json:"death"`
}

// Persistence returns death minus birth.
func (p PersistencePair) Persistence() float64 {
	return p.Death - p.Birth
}

// Finite reports whether both ends of the pair are finite.
func (p PersistencePair) Finite() bool {
	return !math.IsInf(p.Death, 0) && !math.IsInf(p.Birth, 0)
}

// PersistenceDiagram is the multiset of pairs for one homology dimension.
// An empty diagram means no features of that dimension were found.
type PersistenceDiagram struct {
	Dimension int               `json:"dimension"`
	Pairs     []PersistencePair `json:"pairs"`
}

// Len returns the number of pairs.
func (d PersistenceDiagram) Len() int {
	return len(d.Pairs)
}

// Empty reports whether the diagram has no pairs.
func (d PersistenceDiagram) Empty() bool {
	return len(d.Pairs) == 0
}

// FinitePairs returns the pairs with a finite death.
func (d PersistenceDiagram) FinitePairs() []PersistencePair {
	out := make([]PersistencePair, 0, len(d.Pairs))
	for _, p := range d.Pairs {
		if p.Finite() {
			out = append(out, p)
		}
	}

	return out
}
