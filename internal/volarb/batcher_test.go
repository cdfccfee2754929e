package volarb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "volarb/internal/errors"
)

func TestBatch(t *testing.T) {
	tests := []struct {
		name   string
		series []float64
		length int
		stride int
		want   [][]float64
	}{
		{
			name:   "consecutive pairs",
			series: []float64{1, 2, 3, 4, 5},
			length: 2,
			stride: 1,
			want:   [][]float64{{1}, {1, 2}, {2, 3}, {3, 4}, {4, 5}},
		},
		{
			name:   "strided",
			series: []float64{1, 2, 3, 4, 5, 6},
			length: 5,
			stride: 2,
			want:   [][]float64{{1}, {2}, {1, 3}, {2, 4}, {1, 3, 5}, {2, 4, 6}},
		},
		{
			name:   "stride longer than length",
			series: []float64{1, 2, 3},
			length: 2,
			stride: 5,
			want:   [][]float64{{1}, {2}, {3}},
		},
		{
			name:   "empty series",
			series: nil,
			length: 3,
			stride: 1,
			want:   [][]float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Batch(tt.series, tt.length, tt.stride)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBatch_Properties(t *testing.T) {
	series := randomWalk(3, 60, 10, 0.01)

	for _, length := range []int{1, 4, 30} {
		for _, stride := range []int{1, 2, 3, 7} {
			batches, err := Batch(series, length, stride)
			require.NoError(t, err)
			require.Len(t, batches, len(series))

			maxLen := (length + stride - 1) / stride
			for t0, batch := range batches {
				require.NotEmpty(t, batch)
				assert.LessOrEqual(t, len(batch), maxLen)
				assert.Equal(t, series[t0], batch[len(batch)-1], "newest value closes the batch")
				for i := 1; i < len(batch); i++ {
					idx := t0 - (len(batch)-1-i)*stride
					assert.Equal(t, series[idx], batch[i])
				}
			}
		}
	}
}

func TestBatch_InvalidConfiguration(t *testing.T) {
	_, err := Batch([]float64{1, 2}, 2, 0)
	assertErrorType(t, err, apperrors.ErrTypeInvalidConfiguration)

	_, err = Batch([]float64{1, 2}, 0, 1)
	assertErrorType(t, err, apperrors.ErrTypeInvalidConfiguration)
}
