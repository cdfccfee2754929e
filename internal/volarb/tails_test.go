package volarb

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "volarb/internal/errors"
)

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func withTails(low, high float64, middle int) Distribution {
	dist := Distribution{low}
	dist = append(dist, repeat(1, middle)...)
	return append(dist, high)
}

func TestTailAsymmetry(t *testing.T) {
	tests := []struct {
		name     string
		dist     Distribution
		fraction float64
		want     float64
	}{
		{"uniform distribution is at parity", Distribution(repeat(2, 10)), 0.12, 1.0},
		{"heavier lower tail", withTails(-3, 2, 8), 0.12, 1.5},
		{"heavier upper tail", withTails(-1, 4, 8), 0.12, -4},
		{"order does not matter", Distribution{1, 2, 1, -3, 1, 1, 1, 1, 1, 1}, 0.12, 1.5},
		{"half of the distribution per tail", Distribution{-2, -1, 1, 3}, 0.5, -1 / 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TailAsymmetry(tt.dist, tt.fraction)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestTailAsymmetry_Errors(t *testing.T) {
	tests := []struct {
		name     string
		dist     Distribution
		fraction float64
		errType  apperrors.ErrorType
	}{
		{"zero fraction", Distribution(repeat(2, 10)), 0, apperrors.ErrTypeInvalidConfiguration},
		{"fraction above half", Distribution(repeat(2, 10)), 0.7, apperrors.ErrTypeInvalidConfiguration},
		{"NaN fraction", Distribution(repeat(2, 10)), math.NaN(), apperrors.ErrTypeInvalidConfiguration},
		{"empty tail", Distribution(repeat(2, 4)), 0.12, apperrors.ErrTypeDegenerateInput},
		{"empty distribution", Distribution{}, 0.12, apperrors.ErrTypeDegenerateInput},
		{"overlapping tails", Distribution{1, 2, 3}, 0.5, apperrors.ErrTypeDegenerateInput},
		{"zero upper tail", Distribution{-1, 0, 0, 0, 0, 0, 0, 0, 0, 0}, 0.12, apperrors.ErrTypeDegenerateInput},
		{"zero lower tail", Distribution{0, 1, 1, 1, 1, 1, 1, 1, 1, 1}, 0.12, apperrors.ErrTypeDegenerateInput},
		{"non-finite level", Distribution{1, math.Inf(1), 2, 3, 4, 5, 6, 7, 8, 9}, 0.12, apperrors.ErrTypeDegenerateInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TailAsymmetry(tt.dist, tt.fraction)
			assertErrorType(t, err, tt.errType)
		})
	}
}

func TestTailSize(t *testing.T) {
	tests := []struct {
		n        int
		fraction float64
		want     int
	}{
		{10, 0.12, 1},
		{4, 0.12, 0},
		{25, 0.1, 2},
		{15, 0.1, 2},
		{100, 0.12, 12},
		{3, 0.5, 2},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tailSize(tt.n, tt.fraction), "tailSize(%d, %v)", tt.n, tt.fraction)
	}
}

func TestTailsComparison(t *testing.T) {
	pair := testPair(80)
	ctx := context.Background()

	got, err := TailsComparison(ctx, pair.A.Close, pair.B.Close, Std, DefaultTailFraction)
	require.NoError(t, err)
	assert.False(t, got > -1 && got < 1, "level %v inside (-1, 1)", got)

	dist, err := PolyPointArb(ctx, pair.A.Close, pair.B.Close, Std)
	require.NoError(t, err)
	want, err := TailAsymmetry(dist, DefaultTailFraction)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestTailsComparison_InvalidFractionSkipsSweep(t *testing.T) {
	_, err := TailsComparison(context.Background(), nil, nil, Std, 0.9)
	assertErrorType(t, err, apperrors.ErrTypeInvalidConfiguration)
}
