package volarb

import (
	apperrors "volarb/internal/errors"
)

// Batch builds one batch per index t holding series[t], series[t-stride], ...
// for offsets below length, oldest first. Batches near the start are shorter;
// they are never padded.
func Batch(series []float64, length, stride int) ([][]float64, error) {
	if length < 1 {
		return nil, apperrors.NewInvalidConfigurationError("subframe length must be >= 1, got %d", length)
	}
	if stride < 1 {
		return nil, apperrors.NewInvalidConfigurationError("gap to next frame must be >= 1, got %d", stride)
	}

	capacity := (length + stride - 1) / stride
	batches := make([][]float64, len(series))
	for t := range series {
		batch := make([]float64, 0, capacity)
		for offset := 0; offset < length && t-offset >= 0; offset += stride {
			batch = append(batch, series[t-offset])
		}
		for i, j := 0, len(batch)-1; i < j; i, j = i+1, j-1 {
			batch[i], batch[j] = batch[j], batch[i]
		}
		batches[t] = batch
	}
	return batches, nil
}
