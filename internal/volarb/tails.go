package volarb

import (
	"context"
	"fmt"
	"math"
	"sort"

	apperrors "volarb/internal/errors"
)

// TailAsymmetry compares the k smallest and k largest levels of dist, where
// k = round(len*fraction) with ties to even. It returns |sum small|/|sum large|,
// or -1/ratio when that is below one.
func TailAsymmetry(dist Distribution, fraction float64) (float64, error) {
	if err := checkTailFraction(fraction); err != nil {
		return 0, err
	}
	if !allFinite(dist) {
		return 0, apperrors.NewDegenerateInputError("distribution holds a non-finite level")
	}

	n := len(dist)
	k := tailSize(n, fraction)
	if k == 0 {
		return 0, apperrors.NewDegenerateInputError("tail of %d levels at fraction %v is empty", n, fraction).
			WithContext("count", n)
	}
	if n < 2*k {
		return 0, apperrors.NewDegenerateInputError("tails of %d levels overlap in a distribution of %d", k, n)
	}

	sorted := append([]float64(nil), dist...)
	sort.Float64s(sorted)

	var small, large float64
	for i := 0; i < k; i++ {
		small += sorted[i]
		large += sorted[n-1-i]
	}

	if large == 0 {
		return 0, apperrors.NewDegenerateInputError("sum of the largest %d levels is zero", k)
	}
	if small == 0 {
		return 0, apperrors.NewDegenerateInputError("sum of the smallest %d levels is zero", k)
	}

	return signedRatio(math.Abs(small) / math.Abs(large)), nil
}

// TailsComparison runs PolyPointArb over a and b and returns the tail
// asymmetry of the resulting distribution.
func TailsComparison(ctx context.Context, a, b []float64, reducer Reducer, fraction float64) (float64, error) {
	if err := checkTailFraction(fraction); err != nil {
		return 0, err
	}
	dist, err := PolyPointArb(ctx, a, b, reducer)
	if err != nil {
		return 0, err
	}
	level, err := TailAsymmetry(dist, fraction)
	if err != nil {
		return 0, fmt.Errorf("tail asymmetry of %d levels: %w", len(dist), err)
	}
	return level, nil
}

// tailSize rounds n*fraction half to even
func tailSize(n int, fraction float64) int {
	return int(math.RoundToEven(float64(n) * fraction))
}

func checkTailFraction(fraction float64) error {
	if !(fraction > 0 && fraction <= 0.5) {
		return apperrors.NewInvalidConfigurationError("tail fraction must be in (0, 0.5], got %v", fraction)
	}
	return nil
}
