package curve

import "sort"

// segment finds the interval index k with xs[k-1] < x <= xs[k].
// Points at or before xs[0] map to the first interval and points past the
// end map to the last one, so callers always get a usable pair.
//
// Binary search keeps lookups O(log n) for long curves.
func segment(xs []float64, x float64) int {
	idx := sort.SearchFloat64s(xs, x)
	if idx <= 0 {
		return 1
	}
	if idx >= len(xs) {
		return len(xs) - 1
	}
	return idx
}
