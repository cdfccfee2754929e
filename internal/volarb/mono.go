package volarb

import (
	"fmt"
	"math"

	apperrors "volarb/internal/errors"
)

// MonoPointArb returns the arbitrage level at the last observation of a and b.
//
// The raw-level and normalized-level dispersion differences are blended by a
// per-row median. The level compares the blend's last value with its
// historical median: |current|/|median|, or -1/ratio when that is below one.
// An undefined ratio (zero or missing median, missing or zero current value)
// is a DEGENERATE_INPUT error.
func MonoPointArb(a, b []float64, reducer Reducer, window int) (float64, error) {
	return monoPoint(a, b, reducer, window, UnitBounds)
}

func monoPoint(a, b []float64, reducer Reducer, window int, bounds Bounds) (float64, error) {
	raw, err := dispersionDiff(a, b, reducer, window, RawLevel, bounds)
	if err != nil {
		return 0, err
	}
	normalized, err := dispersionDiff(a, b, reducer, window, NormalizedLevel, bounds)
	if err != nil {
		return 0, err
	}

	blend := make([]float64, len(raw))
	for i := range raw {
		blend[i] = nanMedian([]float64{raw[i], normalized[i]})
	}

	historical := nanMedian(blend)
	current := blend[len(blend)-1]

	switch {
	case math.IsNaN(historical):
		return 0, apperrors.NewDegenerateInputError("historical median of the blended difference is undefined")
	case historical == 0:
		return 0, apperrors.NewDegenerateInputError("historical median of the blended difference is zero")
	case math.IsNaN(current):
		return 0, apperrors.NewDegenerateInputError("current blended difference is undefined")
	case current == 0:
		return 0, apperrors.NewDegenerateInputError("current blended difference is zero")
	}

	return signedRatio(math.Abs(current) / math.Abs(historical)), nil
}

// signedRatio maps a positive ratio below one to -1/ratio
func signedRatio(ratio float64) float64 {
	if ratio < 1 {
		return -1 / ratio
	}
	return ratio
}

// checkPair validates two close series for a sweep
func checkPair(a, b []float64, minLen int) error {
	if len(a) != len(b) {
		return apperrors.NewInvalidConfigurationError("series lengths differ: %d vs %d", len(a), len(b)).
			WithContext("len_a", len(a)).
			WithContext("len_b", len(b))
	}
	if len(a) < minLen {
		return apperrors.NewInvalidConfigurationError("series need at least %d observations, got %d", minLen, len(a))
	}
	for i := range a {
		if !isFinite(a[i]) {
			return apperrors.NewInvalidConfigurationError("asset 1 value at index %d is not finite", i)
		}
		if !isFinite(b[i]) {
			return apperrors.NewInvalidConfigurationError("asset 2 value at index %d is not finite", i)
		}
	}
	return nil
}

func describePair(p Pair) string {
	return fmt.Sprintf("%s/%s", p.A.Symbol, p.B.Symbol)
}
