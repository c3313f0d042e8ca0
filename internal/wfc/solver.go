package wfc

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Status is the state of a solve attempt.
type Status int

const (
	StatusRunning       Status = iota // cleared and still collapsing
	StatusResolved                    // every cell holds exactly one variant
	StatusContradiction               // some cell ran out of candidates
	StatusIncomplete                  // iteration limit reached first
)

// String returns the string representation of a Status
func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusResolved:
		return "resolved"
	case StatusContradiction:
		return "contradiction"
	case StatusIncomplete:
		return "incomplete"
	default:
		return "unknown"
	}
}

// banEvent is a pending propagation of one ban.
type banEvent struct {
	cell, variant int
}

// Solver runs the observe/propagate loop over one grid. A Solver is not
// safe for concurrent use; create one per goroutine from a shared Model.
type Solver struct {
	// OnBan, when set, is called after every ban in the order bans happen.
	OnBan func(cell, variant int)

	model *Model
	grid  Grid
	wave  *wave
	stack []banEvent
	rng   *rand.Rand
	seed  Seed

	distribution []float64

	status       Status
	steps        int
	cleared      bool
	contradicted bool
	err          error
}

// NewSolver creates a solver for the given grid. Call Clear or Run before
// stepping.
func NewSolver(model *Model, grid Grid) (*Solver, error) {
	if grid.Width <= 0 || grid.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, grid.Width, grid.Height)
	}
	// the wave holds directionCount counters per (cell, variant)
	t := model.VariantCount()
	if grid.Width > math.MaxInt/grid.Height || grid.Width*grid.Height > math.MaxInt/directionCount/max(t, 1) {
		return nil, fmt.Errorf("%w: %dx%d with %d variants", ErrInvalidSize, grid.Width, grid.Height, t)
	}
	return &Solver{
		model:        model,
		grid:         grid,
		wave:         newWave(grid.Cells(), t),
		distribution: make([]float64, t),
		status:       StatusContradiction,
	}, nil
}

// Model returns the model being solved.
func (s *Solver) Model() *Model { return s.model }

// Grid returns the grid geometry.
func (s *Solver) Grid() Grid { return s.grid }

// Status returns the status of the current attempt.
func (s *Solver) Status() Status { return s.status }

// Steps returns how many cells have been observed since the last Clear.
func (s *Solver) Steps() int { return s.steps }

// Seed returns the seed passed to the last Clear.
func (s *Solver) Seed() Seed { return s.seed }

// Remaining returns the number of admissible variants of cell i.
func (s *Solver) Remaining(i int) int { return s.wave.remaining[i] }

// CollapsedCount returns the number of cells with exactly one candidate.
func (s *Solver) CollapsedCount() int {
	n := 0
	for _, r := range s.wave.remaining {
		if r == 1 {
			n++
		}
	}
	return n
}

// Clear resets the wave and seeds the random stream. Variants that no
// neighbor could ever support are banned immediately, so the status may
// already be StatusContradiction when Clear returns.
func (s *Solver) Clear(seed Seed) error {
	s.wave.reset(s.model)
	s.stack = s.stack[:0]
	s.rng = rand.New(rand.NewChaCha8(seed))
	s.seed = seed
	s.steps = 0
	s.contradicted = false
	s.cleared = true
	s.err = nil
	s.status = StatusRunning

	if err := s.banUnsupported(); err != nil {
		_, err = s.fail(err)
		return err
	}
	if err := s.propagate(); err != nil {
		_, err = s.fail(err)
		return err
	}
	if s.contradicted {
		s.status = StatusContradiction
	}
	return nil
}

// Run clears the wave with seed and collapses cells until the grid is
// resolved, a contradiction occurs or limit observations have been made.
// A negative limit means no limit.
func (s *Solver) Run(limit int, seed Seed) (Status, error) {
	if err := s.Clear(seed); err != nil {
		return s.status, err
	}
	for l := 0; s.status == StatusRunning && (limit < 0 || l < limit); l++ {
		if _, err := s.Step(); err != nil {
			return s.status, err
		}
	}
	return s.Finish(), nil
}

// Finish ends a running solve whose caller stops stepping. The status
// becomes StatusResolved when every cell already holds one candidate and
// StatusIncomplete otherwise. Finished solves are left unchanged.
func (s *Solver) Finish() Status {
	if s.status == StatusRunning {
		s.status = StatusIncomplete
		if s.CollapsedCount() == s.grid.Cells() {
			s.status = StatusResolved
		}
	}
	return s.status
}

// Step performs one selection, observation and full propagation. Stepping
// a solver that was never cleared returns ErrNotCleared.
func (s *Solver) Step() (Status, error) {
	if !s.cleared {
		return s.status, ErrNotCleared
	}
	if s.status != StatusRunning {
		return s.status, s.err
	}

	node := s.nextUnobserved()
	if node < 0 {
		s.status = StatusResolved
		return s.status, nil
	}

	if err := s.observe(node); err != nil {
		return s.fail(err)
	}
	s.steps++

	if err := s.propagate(); err != nil {
		return s.fail(err)
	}
	if s.contradicted {
		s.status = StatusContradiction
	}
	return s.status, nil
}

// fail records an invariant violation. The wave is unusable afterwards.
func (s *Solver) fail(err error) (Status, error) {
	s.err = err
	s.status = StatusContradiction
	return s.status, err
}

// nextUnobserved returns the eligible cell with the lowest entropy among
// cells that still have a choice, or -1. Ties are broken by a small noise
// term drawn from the seeded stream.
func (s *Solver) nextUnobserved() int {
	min := math.MaxFloat64
	argmin := -1
	n := s.model.footprint

	for i := range s.wave.remaining {
		if !s.grid.Eligible(i, n) {
			continue
		}
		entropy := s.wave.entropies[i]
		if s.wave.remaining[i] > 1 && entropy <= min {
			noise := 1e-6 * s.rng.Float64()
			if entropy+noise < min {
				min = entropy + noise
				argmin = i
			}
		}
	}
	return argmin
}

// observe collapses cell node to one variant chosen by weight.
func (s *Solver) observe(node int) error {
	for v := range s.distribution {
		if s.wave.admissible(node, v) {
			s.distribution[v] = s.model.weights[v]
		} else {
			s.distribution[v] = 0
		}
	}

	r := weightedRandom(s.distribution, s.rng.Float64())
	if r < 0 {
		return fmt.Errorf("%w: cell %d has no weighted candidates", ErrInvariant, node)
	}

	for v := range s.distribution {
		if v != r && s.wave.admissible(node, v) {
			if err := s.ban(node, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// ban removes variant from cell and queues the removal for propagation.
func (s *Solver) ban(cell, variant int) error {
	if err := s.wave.ban(cell, variant, s.model); err != nil {
		return err
	}
	s.stack = append(s.stack, banEvent{cell: cell, variant: variant})
	if s.wave.remaining[cell] == 0 {
		s.contradicted = true
	}
	if s.OnBan != nil {
		s.OnBan(cell, variant)
	}
	return nil
}

// propagate drains the ban stack. Every variant that a banned variant
// supported in a neighbor loses one unit of support; at zero it is banned.
func (s *Solver) propagate() error {
	n := s.model.footprint
	for len(s.stack) > 0 {
		e := s.stack[len(s.stack)-1]
		s.stack = s.stack[:len(s.stack)-1]

		for d := Direction(0); d < directionCount; d++ {
			j, ok := s.grid.Neighbor(e.cell, d, n)
			if !ok {
				continue
			}
			for _, v := range s.model.propagator[d][e.variant] {
				if s.wave.decrement(j, v, d) == 0 {
					if err := s.ban(j, v); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// banUnsupported bans every variant whose support counter towards an
// existing neighbor starts at zero.
func (s *Solver) banUnsupported() error {
	n := s.model.footprint
	for i := range s.wave.remaining {
		for d := Direction(0); d < directionCount; d++ {
			if _, ok := s.grid.Neighbor(i, d.Opposite(), n); !ok {
				continue
			}
			for v := 0; v < s.wave.t; v++ {
				if s.wave.admissible(i, v) && s.wave.support(i, v, d) == 0 {
					if err := s.ban(i, v); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}
