package volarb

import (
	"math"
	"sort"
	"strings"

	apperrors "volarb/internal/errors"
)

// reducers maps the names accepted by ReducerByName
var reducers = map[string]Reducer{
	"std":    Std,
	"var":    Var,
	"kurt":   Kurt,
	"median": Median,
	"mean":   Mean,
}

// ReducerNames lists the named reducers in sorted order
func ReducerNames() []string {
	names := make([]string, 0, len(reducers))
	for name := range reducers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ReducerByName resolves a reducer name such as "std" or "kurt"
func ReducerByName(name string) (Reducer, error) {
	r, ok := reducers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, apperrors.NewInvalidConfigurationError("unknown reducer %q (want one of %s)",
			name, strings.Join(ReducerNames(), ", "))
	}
	return r, nil
}

// Mean returns the arithmetic mean, NaN for an empty window
func Mean(window []float64) float64 {
	if len(window) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range window {
		sum += v
	}
	return sum / float64(len(window))
}

// Var returns the sample variance (n-1 denominator), NaN for fewer than two values
func Var(window []float64) float64 {
	n := len(window)
	if n < 2 {
		return math.NaN()
	}
	mean := Mean(window)
	ss := 0.0
	for _, v := range window {
		d := v - mean
		ss += d * d
	}
	return ss / float64(n-1)
}

// Std returns the sample standard deviation
func Std(window []float64) float64 {
	return math.Sqrt(Var(window))
}

// Kurt returns the bias-corrected excess kurtosis (Fisher), matching pandas.
// Fewer than four values give NaN; a window with zero variance gives 0.
func Kurt(window []float64) float64 {
	n := float64(len(window))
	if n < 4 {
		return math.NaN()
	}
	mean := Mean(window)
	var m2, m4 float64
	for _, v := range window {
		d := v - mean
		d2 := d * d
		m2 += d2
		m4 += d2 * d2
	}
	denominator := (n - 2) * (n - 3) * m2 * m2
	if denominator == 0 {
		return 0
	}
	adj := 3 * (n - 1) * (n - 1) / ((n - 2) * (n - 3))
	return n*(n+1)*(n-1)*m4/denominator - adj
}

// Median returns the middle value, averaging the two middle values for even lengths
func Median(window []float64) float64 {
	n := len(window)
	if n == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), window...)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// nanMedian is Median over the finite values only
func nanMedian(values []float64) float64 {
	return Median(finiteValues(values))
}

// Rolling applies reducer over a trailing window, like pandas
// rolling(window).apply(reducer). The first window-1 positions and any window
// holding a non-finite value are NaN.
func Rolling(series []float64, window int, reducer Reducer) ([]float64, error) {
	if window < 1 {
		return nil, apperrors.NewInvalidConfigurationError("rolling window must be >= 1, got %d", window)
	}
	if reducer == nil {
		return nil, apperrors.NewInvalidConfigurationError("reducer is required")
	}

	out := make([]float64, len(series))
	for i := range series {
		out[i] = math.NaN()
		if i+1 < window {
			continue
		}
		w := series[i+1-window : i+1]
		if !allFinite(w) {
			continue
		}
		out[i] = reducer(w)
	}
	return out, nil
}

// PctChange returns x[i]/x[i-1]-1 with a leading NaN
func PctChange(series []float64) []float64 {
	out := make([]float64, len(series))
	for i := range series {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = series[i]/series[i-1] - 1
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func allFinite(values []float64) bool {
	for _, v := range values {
		if !isFinite(v) {
			return false
		}
	}
	return true
}

func finiteValues(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if isFinite(v) {
			out = append(out, v)
		}
	}
	return out
}
