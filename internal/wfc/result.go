package wfc

import "strings"

// Unresolved marks a cell that has no single variant in a Result.
const Unresolved = -1

// Result is the observed grid of a finished attempt.
type Result struct {
	Width, Height int
	Status        Status
	Steps         int
	Seed          Seed

	// Observed holds one variant id per cell, row-major, or Unresolved.
	Observed []int
}

// Result extracts the observed grid. A resolved run reports the lowest
// admissible variant of every cell. An incomplete run reports cells with a
// single candidate and leaves the rest Unresolved. After a contradiction
// every cell is Unresolved.
func (s *Solver) Result() *Result {
	res := &Result{
		Width:    s.grid.Width,
		Height:   s.grid.Height,
		Status:   s.status,
		Steps:    s.steps,
		Seed:     s.seed,
		Observed: make([]int, s.grid.Cells()),
	}

	for i := range res.Observed {
		switch {
		case s.status == StatusResolved:
			res.Observed[i] = s.wave.lowest(i)
		case s.status != StatusContradiction && s.wave.remaining[i] == 1:
			res.Observed[i] = s.wave.lowest(i)
		default:
			res.Observed[i] = Unresolved
		}
	}
	return res
}

// At returns the variant at (x, y).
func (r *Result) At(x, y int) int {
	return r.Observed[y*r.Width+x]
}

// ResolvedCount returns the number of cells holding a variant.
func (r *Result) ResolvedCount() int {
	n := 0
	for _, v := range r.Observed {
		if v != Unresolved {
			n++
		}
	}
	return n
}

// Text renders the grid one row per line, each cell followed by ", ".
// names maps variant ids to labels, usually Model.VariantNames.
func (r *Result) Text(names []string) string {
	var sb strings.Builder
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			v := r.At(x, y)
			if v == Unresolved || v >= len(names) {
				sb.WriteString("unobserved")
			} else {
				sb.WriteString(names[v])
			}
			sb.WriteString(", ")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
