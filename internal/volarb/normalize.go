package volarb

import (
	"math"

	apperrors "volarb/internal/errors"
)

// MinMaxScale maps values linearly onto [b.Lower, b.Upper].
// Non-finite entries are ignored when finding the range and come out as NaN.
func MinMaxScale(values []float64, b Bounds) ([]float64, error) {
	if !(b.Lower < b.Upper) {
		return nil, apperrors.NewInvalidConfigurationError("normalization bounds must satisfy lower < upper, got [%v, %v]", b.Lower, b.Upper)
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if !isFinite(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		return nil, apperrors.NewDegenerateInputError("cannot normalize a series with no finite value")
	}
	if hi == lo {
		return nil, apperrors.NewDegenerateInputError("cannot normalize a constant series (value %v)", lo).
			WithContext("value", lo)
	}

	span := hi - lo
	width := b.Upper - b.Lower
	out := make([]float64, len(values))
	for i, v := range values {
		if !isFinite(v) {
			out[i] = math.NaN()
			continue
		}
		out[i] = (v-lo)/span*width + b.Lower
	}
	return out, nil
}

// MinMaxScaleTable scales every column independently
func MinMaxScaleTable(columns [][]float64, b Bounds) ([][]float64, error) {
	out := make([][]float64, len(columns))
	for i, col := range columns {
		scaled, err := MinMaxScale(col, b)
		if err != nil {
			if appErr, ok := err.(*apperrors.AppError); ok {
				appErr.WithContext("column", i)
			}
			return nil, err
		}
		out[i] = scaled
	}
	return out, nil
}
