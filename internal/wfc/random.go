package wfc

// weightedRandom picks an index with probability proportional to its
// weight. r is a uniform sample in [0, 1). The result is the first index
// with a positive weight whose running sum reaches r times the total.
// When r*total is never reached the last positive index is returned, and
// -1 when no weight is positive.
func weightedRandom(weights []float64, r float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	threshold := r * total

	last := -1
	var partial float64
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		partial += w
		last = i
		if partial >= threshold {
			return i
		}
	}
	return last
}
