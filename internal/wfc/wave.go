package wfc

import (
	"fmt"
	"math"
)

// wave is the per-cell solver state: the admissible variants of every cell,
// their directional support counters and the incremental entropy sums.
// Cell-variant pairs are flattened as cell*t + variant.
type wave struct {
	t int

	domain     []bool
	compatible []int // (cell*t + variant)*4 + direction

	remaining        []int
	sumsOfWeights    []float64
	sumsOfWeightLogs []float64
	entropies        []float64
}

func newWave(cells, t int) *wave {
	return &wave{
		t:                t,
		domain:           make([]bool, cells*t),
		compatible:       make([]int, cells*t*directionCount),
		remaining:        make([]int, cells),
		sumsOfWeights:    make([]float64, cells),
		sumsOfWeightLogs: make([]float64, cells),
		entropies:        make([]float64, cells),
	}
}

func (w *wave) key(cell, variant int) int {
	return cell*w.t + variant
}

// reset makes every variant admissible everywhere. The support counter for
// direction d starts at the number of variants that can support this one
// from the opposite side.
func (w *wave) reset(m *Model) {
	var initial [directionCount][]int
	for d := Direction(0); d < directionCount; d++ {
		initial[d] = make([]int, w.t)
		for v := 0; v < w.t; v++ {
			initial[d][v] = len(m.propagator[d.Opposite()][v])
		}
	}

	for i := range w.remaining {
		for v := 0; v < w.t; v++ {
			k := w.key(i, v)
			w.domain[k] = true
			for d := 0; d < directionCount; d++ {
				w.compatible[k*directionCount+d] = initial[d][v]
			}
		}
		w.remaining[i] = w.t
		w.sumsOfWeights[i] = m.sumOfWeights
		w.sumsOfWeightLogs[i] = m.sumOfWeightLogs
		w.entropies[i] = m.startingEntropy
	}
}

func (w *wave) admissible(cell, variant int) bool {
	return w.domain[w.key(cell, variant)]
}

func (w *wave) support(cell, variant int, d Direction) int {
	return w.compatible[w.key(cell, variant)*directionCount+int(d)]
}

// decrement lowers one support counter and returns its new value.
func (w *wave) decrement(cell, variant int, d Direction) int {
	k := w.key(cell, variant)*directionCount + int(d)
	w.compatible[k]--
	return w.compatible[k]
}

// ban removes variant from cell and updates the cell's aggregates.
func (w *wave) ban(cell, variant int, m *Model) error {
	k := w.key(cell, variant)
	if !w.domain[k] {
		return fmt.Errorf("%w: variant %d banned twice in cell %d", ErrInvariant, variant, cell)
	}

	w.domain[k] = false
	clear(w.compatible[k*directionCount : (k+1)*directionCount])

	w.remaining[cell]--
	w.sumsOfWeights[cell] -= m.weights[variant]
	w.sumsOfWeightLogs[cell] -= m.weightLogWeights[variant]

	sum := w.sumsOfWeights[cell]
	if w.remaining[cell] > 0 && sum > 0 {
		w.entropies[cell] = math.Log(sum) - w.sumsOfWeightLogs[cell]/sum
	} else {
		w.sumsOfWeights[cell] = 0
		w.sumsOfWeightLogs[cell] = 0
		w.entropies[cell] = math.Inf(-1)
	}
	return nil
}

// lowest returns the smallest admissible variant of cell, or Unresolved.
func (w *wave) lowest(cell int) int {
	for v := 0; v < w.t; v++ {
		if w.admissible(cell, v) {
			return v
		}
	}
	return Unresolved
}
