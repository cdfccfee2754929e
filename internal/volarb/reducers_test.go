package volarb

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "volarb/internal/errors"
)

func TestReducers(t *testing.T) {
	nan := math.NaN()
	sample := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	tests := []struct {
		name    string
		reducer Reducer
		input   []float64
		want    float64
	}{
		{"mean", Mean, sample, 5},
		{"mean empty", Mean, nil, nan},
		{"sample variance", Var, sample, 32.0 / 7.0},
		{"sample std", Std, sample, math.Sqrt(32.0 / 7.0)},
		{"std of one value", Std, []float64{3}, nan},
		{"kurtosis", Kurt, []float64{1, 2, 3, 4}, -1.2},
		{"kurtosis constant window", Kurt, []float64{5, 5, 5, 5}, 0},
		{"kurtosis too short", Kurt, []float64{1, 2, 3}, nan},
		{"median odd", Median, []float64{3, 1, 2}, 2},
		{"median even", Median, []float64{4, 1, 3, 2}, 2.5},
		{"median empty", Median, nil, nan},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.reducer(tt.input)
			if math.IsNaN(tt.want) {
				assert.True(t, math.IsNaN(got), "want NaN, got %v", got)
				return
			}
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestMedian_DoesNotMutateInput(t *testing.T) {
	input := []float64{3, 1, 2}
	Median(input)
	assert.Equal(t, []float64{3, 1, 2}, input)
}

func TestReducerByName(t *testing.T) {
	for _, name := range []string{"std", "var", "kurt", "median", "mean", " STD "} {
		t.Run(name, func(t *testing.T) {
			r, err := ReducerByName(name)
			require.NoError(t, err)
			assert.NotNil(t, r)
		})
	}

	_, err := ReducerByName("skew")
	assertErrorType(t, err, apperrors.ErrTypeInvalidConfiguration)
	assert.Contains(t, err.Error(), "kurt, mean, median, std, var")
}

func TestRolling(t *testing.T) {
	nan := math.NaN()

	tests := []struct {
		name   string
		series []float64
		window int
		want   []float64
	}{
		{"warm-up is NaN", []float64{1, 2, 3, 4, 5}, 3, []float64{nan, nan, 2, 3, 4}},
		{"window of one", []float64{1, 2, 3}, 1, []float64{1, 2, 3}},
		{"NaN poisons its windows", []float64{1, nan, 3, 4, 5}, 2, []float64{nan, nan, nan, 3.5, 4.5}},
		{"window longer than series", []float64{1, 2}, 5, []float64{nan, nan}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Rolling(tt.series, tt.window, Mean)
			require.NoError(t, err)
			assertFloatsEqual(t, tt.want, got, 1e-12)
		})
	}

	_, err := Rolling([]float64{1, 2}, 0, Mean)
	assertErrorType(t, err, apperrors.ErrTypeInvalidConfiguration)

	_, err = Rolling([]float64{1, 2}, 1, nil)
	assertErrorType(t, err, apperrors.ErrTypeInvalidConfiguration)
}

func TestPctChange(t *testing.T) {
	got := PctChange([]float64{100, 110, 99})
	assertFloatsEqual(t, []float64{math.NaN(), 0.1, -0.1}, got, 1e-12)
	assert.Empty(t, PctChange(nil))
}
