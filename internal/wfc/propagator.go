package wfc

import "fmt"

// Propagator holds, for each direction and variant, the variants allowed
// in the neighboring cell in that direction.
type Propagator [directionCount][][]int

// Compatible reports whether variant b may sit next to a in direction d.
func (p Propagator) Compatible(d Direction, a, b int) bool {
	for _, v := range p[d][a] {
		if v == b {
			return true
		}
	}
	return false
}

// denseRelation is a T x T boolean relation for one direction.
type denseRelation [][]bool

func newDenseRelation(t int) denseRelation {
	r := make(denseRelation, t)
	for i := range r {
		r[i] = make([]bool, t)
	}
	return r
}

// buildPropagator expands every rule into its symmetry-equivalent pairs.
// A rule places right east of left; West and South are filled from the
// rules and East and North are their transposes.
func buildPropagator(m *Model, rules []NeighborRule) (Propagator, error) {
	t := m.VariantCount()
	a := m.actions

	var dense [directionCount]denseRelation
	for d := range dense {
		dense[d] = newDenseRelation(t)
	}

	for i, rule := range rules {
		l, err := m.Variant(rule.Left)
		if err != nil {
			return Propagator{}, fmt.Errorf("neighbor rule %d left: %w", i, err)
		}
		r, err := m.Variant(rule.Right)
		if err != nil {
			return Propagator{}, fmt.Errorf("neighbor rule %d right: %w", i, err)
		}
		d := a.Apply(l, TransformRotate)
		u := a.Apply(r, TransformRotate)
		flipHalf := TransformReflect + TransformHalfTurn

		west := dense[West]
		west[r][l] = true
		west[a.Apply(r, flipHalf)][a.Apply(l, flipHalf)] = true
		west[a.Apply(l, TransformReflect)][a.Apply(r, TransformReflect)] = true
		west[a.Apply(l, TransformHalfTurn)][a.Apply(r, TransformHalfTurn)] = true

		south := dense[South]
		south[u][d] = true
		south[a.Apply(d, flipHalf)][a.Apply(u, flipHalf)] = true
		south[a.Apply(u, TransformReflect)][a.Apply(d, TransformReflect)] = true
		south[a.Apply(d, TransformHalfTurn)][a.Apply(u, TransformHalfTurn)] = true
	}

	for t1 := 0; t1 < t; t1++ {
		for t2 := 0; t2 < t; t2++ {
			dense[East][t1][t2] = dense[West][t2][t1]
			dense[North][t1][t2] = dense[South][t2][t1]
		}
	}

	var p Propagator
	for d := range dense {
		p[d] = make([][]int, t)
		for t1 := 0; t1 < t; t1++ {
			var row []int
			for t2 := 0; t2 < t; t2++ {
				if dense[d][t1][t2] {
					row = append(row, t2)
				}
			}
			p[d][t1] = row
		}
	}

	return p, nil
}
