package stats

import (
	"math"
	"slices"
	"time"
)

// rankTolerance is relative to p*n/100. It absorbs the few ulps of rounding in that
// product so exact integer ranks stay put. Ranks that exceed an integer by less than this
// fraction of their magnitude still round down.
const rankTolerance = 1e-13

// NearestRank returns the 1-based nearest rank ⌈p/100 × n⌉ clamped to [1, n].
// n must be positive.
func NearestRank(p float64, n int) int {
	x := p * float64(n) / 100
	rank := int(math.Ceil(x - math.Abs(x)*rankTolerance))
	if rank < 1 {
		rank = 1
	}
	if rank > n {
		rank = n
	}
	return rank
}

// Percentile picks the nearest-rank percentile from latencies sorted ascending.
// It returns false for an empty slice.
func Percentile(sorted []time.Duration, p float64) (time.Duration, bool) {
	if len(sorted) == 0 {
		return 0, false
	}
	return sorted[NearestRank(p, len(sorted))-1], true
}

// sortLatencies sorts in place, ascending by value. The sort is stable so equal latencies
// keep their ingest order.
func sortLatencies(d []time.Duration) {
	slices.SortStableFunc(d, func(a, b time.Duration) int {
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	})
}
