package volarb

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "volarb/internal/errors"
)

// randomWalk returns a positive price path from a fixed seed
func randomWalk(seed int64, n int, start, vol float64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	price := start
	for i := range out {
		price *= 1 + vol*rng.NormFloat64()
		out[i] = price
	}
	return out
}

// leveraged applies factor times the daily return of base
func leveraged(base []float64, factor float64) []float64 {
	out := make([]float64, len(base))
	out[0] = base[0]
	for i := 1; i < len(base); i++ {
		out[i] = out[i-1] * (1 + factor*(base[i]/base[i-1]-1))
	}
	return out
}

func assertErrorType(t *testing.T, err error, errType apperrors.ErrorType) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, errType), "want %s, got %v", errType, err)
}

func assertFloatsEqual(t *testing.T, want, got []float64, delta float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		if math.IsNaN(want[i]) {
			assert.True(t, math.IsNaN(got[i]), "index %d: want NaN, got %v", i, got[i])
			continue
		}
		assert.InDelta(t, want[i], got[i], delta, "index %d", i)
	}
}
