// Package reduce turns a pair of partition sums into a fitness score.
//
// Two orders are provided. SquaredDistance sums the per-dimension terms in
// ascending order with Neumaier compensation and is the reference order for the
// software method. GroupedSquaredDistance32 reproduces the accelerator: float32
// terms are spread over a fixed number of groups by d % groups and the groups are
// then added in index order. Both are deterministic; they differ only by rounding.
package reduce

import "math"

// SquaredDistance returns sum((a[d]-b[d])^2) over the shorter of the two slices.
func SquaredDistance(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var sum, comp float64
	for d := 0; d < n; d++ {
		diff := a[d] - b[d]
		term := diff * diff
		t := sum + term
		if math.Abs(sum) >= math.Abs(term) {
			comp += (sum - t) + term
		} else {
			comp += (term - t) + sum
		}
		sum = t
	}
	return sum + comp
}

// GroupedSquaredDistance32 computes the squared distance the way the kernel does.
// groups < 1 is treated as 1.
func GroupedSquaredDistance32(a, b []float32, groups int) float32 {
	if groups < 1 {
		groups = 1
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	partial := make([]float32, groups)
	for d := 0; d < n; d++ {
		diff := a[d] - b[d]
		partial[d%groups] += diff * diff
	}

	var total float32
	for g := 0; g < groups; g++ {
		total += partial[g]
	}
	return total
}

// NaiveSquaredDistance32 is the plain left-to-right float32 sum used by the
// original CPU reference.
func NaiveSquaredDistance32(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var total float32
	for d := 0; d < n; d++ {
		diff := a[d] - b[d]
		total += diff * diff
	}
	return total
}

// WithinTolerance reports whether got is within abs + rel*max(|got|,|want|) of want.
func WithinTolerance(got, want, abs, rel float64) bool {
	if math.IsNaN(got) || math.IsNaN(want) {
		return false
	}
	scale := math.Max(math.Abs(got), math.Abs(want))
	return math.Abs(got-want) <= abs+rel*scale
}
