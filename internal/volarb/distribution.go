package volarb

import (
	"math"
	"sort"

	apperrors "volarb/internal/errors"
)

// Summary condenses the distribution. An empty distribution is EMPTY_RESULT.
func (d Distribution) Summary() (DistributionSummary, error) {
	values := finiteValues(d)
	if len(values) == 0 {
		return DistributionSummary{}, apperrors.NewEmptyResultError("distribution has no finite level")
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	return DistributionSummary{
		Count:  len(sorted),
		Median: Median(sorted),
		Mean:   Mean(sorted),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		P10:    percentile(sorted, 0.10),
		P90:    percentile(sorted, 0.90),
	}, nil
}

// Median returns the median level, NaN when empty
func (d Distribution) Median() float64 {
	return nanMedian(d)
}

// percentile interpolates linearly between closest ranks of sorted values
func percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
