package volarb

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "volarb/internal/errors"
)

// With a window of one and the mean reducer both conventions reduce to
// scaled(a) - scaled(b), which makes the level easy to compute by hand.
func TestMonoPointArb_HandComputed(t *testing.T) {
	a := []float64{0, 2, 4, 6, 8} // scaled: 0, .25, .5, .75, 1

	tests := []struct {
		name string
		b    []float64
		want float64
	}{
		// diff: -1, .25, .25, .25, .25 -> median .25, current .25
		{"parity", []float64{4, 0, 1, 2, 3}, 1.0},
		// diff: -1, .25, 0, .5, .5 -> median .25, current .5
		{"current twice the median", []float64{1, 0, 0.5, 0.25, 0.5}, 2.0},
		// diff: -1, .25, .25, .25, .1 -> median .25, current .1, ratio .4
		{"current below the median", []float64{1, 0, 0.25, 0.5, 0.9}, -2.5},
		// diff: -1, .25, .25, .25, .125 -> current is half the median
		{"current half the median", []float64{1, 0, 0.25, 0.5, 0.875}, -2.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MonoPointArb(a, tt.b, Mean, 1)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestMonoPointArb_Degenerate(t *testing.T) {
	a := randomWalk(5, 50, 100, 0.02)

	tests := []struct {
		name    string
		a, b    []float64
		window  int
		errType apperrors.ErrorType
	}{
		{"identical assets", a, a, 10, apperrors.ErrTypeDegenerateInput},
		// diff: 0, -.25, .25, -.25, 0 -> current is zero
		{"zero current value", []float64{0, 2, 4, 6, 8}, []float64{0, 2, 1, 4, 4}, 1, apperrors.ErrTypeDegenerateInput},
		{"too short for the window", a[:5], a[5:10], 10, apperrors.ErrTypeEmptyResult},
		{"constant asset", []float64{1, 1, 1, 1, 1}, a[:5], 2, apperrors.ErrTypeDegenerateInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MonoPointArb(tt.a, tt.b, Mean, tt.window)
			assertErrorType(t, err, tt.errType)
		})
	}
}

func TestMonoPointArb_Properties(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		base := randomWalk(seed, 120, 100, 0.015)
		lev := leveraged(base, 3)

		level, err := MonoPointArb(lev, base, Std, DefaultMonoWindow)
		if apperrors.IsType(err, apperrors.ErrTypeDegenerateInput) {
			continue
		}
		require.NoError(t, err)

		assert.False(t, level > -1 && level < 1, "seed %d: level %v inside (-1, 1)", seed, level)
		assert.False(t, math.IsNaN(level))

		swapped, err := MonoPointArb(base, lev, Std, DefaultMonoWindow)
		require.NoError(t, err)
		assert.InDelta(t, level, swapped, 1e-9, "seed %d: asset order", seed)

		shifted := make([]float64, len(lev))
		for i, v := range lev {
			shifted[i] = 2.5*v + 10
		}
		again, err := MonoPointArb(shifted, base, Std, DefaultMonoWindow)
		require.NoError(t, err)
		assert.InDelta(t, level, again, 1e-9, "seed %d: affine rescale", seed)
	}
}

func TestMonoPointArb_Deterministic(t *testing.T) {
	a := randomWalk(8, 80, 100, 0.02)
	b := randomWalk(9, 80, 100, 0.01)
	aCopy := append([]float64(nil), a...)

	first, err := MonoPointArb(a, b, Kurt, 12)
	require.NoError(t, err)
	second, err := MonoPointArb(a, b, Kurt, 12)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, aCopy, a)
}

func TestSignedRatio(t *testing.T) {
	assert.Equal(t, 1.0, signedRatio(1))
	assert.Equal(t, 3.0, signedRatio(3))
	assert.Equal(t, -4.0, signedRatio(0.25))
}

// A linear ramp has a constant rolling dispersion, so the raw-level
// convention cannot be normalized and the level is undefined even though
// the normalized-level convention alone would produce one.
func TestMonoPointArb_RampFailsBothConventions(t *testing.T) {
	ramp := make([]float64, 20)
	for i := range ramp {
		ramp[i] = float64(i)
	}
	b := randomWalk(7, 20, 100, 0.02)

	_, err := DispersionDiff(ramp, b, Std, 3, NormalizedLevel)
	require.NoError(t, err)

	_, err = DispersionDiff(ramp, b, Std, 3, RawLevel)
	assertErrorType(t, err, apperrors.ErrTypeDegenerateInput)

	_, err = MonoPointArb(ramp, b, Std, 3)
	assertErrorType(t, err, apperrors.ErrTypeDegenerateInput)
}
