package breadth

import (
	"math"
	"sort"
)

// percentileCont computes the p-th percentile with linear
// interpolation between closest ranks, matching Postgres
// PERCENTILE_CONT. Returns nil for an empty sample.
func percentileCont(values []float64, p float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		v := sorted[0]
		return &v
	}

	rank := p * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		v := sorted[lo]
		return &v
	}
	frac := rank - float64(lo)
	v := sorted[lo] + (sorted[hi]-sorted[lo])*frac
	return &v
}

// StdDevPop is the population standard deviation. Returns nil for an
// empty sample (matching SQL STDDEV_POP over zero rows) and zero for a
// single observation.
func StdDevPop(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))

	sd := math.Sqrt(variance)
	return &sd
}
