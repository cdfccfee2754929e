package volarb

import (
	"time"
)

const (
	// DefaultMonoWindow is the rolling window used by MonoPointArb
	DefaultMonoWindow = 10
	// DefaultTailFraction is the share of the distribution summed at each tail
	DefaultTailFraction = 0.12
	// ParityLevel is the arbitrage level meaning "no relative mispricing"
	ParityLevel = 1.0
	// MinSweepLength is the shortest series PolyPointArb accepts
	MinSweepLength = 6
)

// PriceSeries holds ordered close prices for one asset
type PriceSeries struct {
	Symbol string      `json:"symbol"`
	Dates  []time.Time `json:"dates,omitempty"`
	Close  []float64   `json:"close"`
}

// Len returns the number of observations
func (s PriceSeries) Len() int {
	return len(s.Close)
}

// Pair is two aligned price series. A is the leveraged or first asset.
type Pair struct {
	A PriceSeries `json:"a"`
	B PriceSeries `json:"b"`
}

// Reducer collapses a window of finite values to one statistic
type Reducer func(window []float64) float64

// Convention selects how dispersion series are normalized before differencing
type Convention string

const (
	// RawLevel applies the reducer to raw prices, then normalizes the dispersion
	RawLevel Convention = "raw-level"
	// NormalizedLevel normalizes raw prices, then applies the reducer
	NormalizedLevel Convention = "normalized-level"
	// ChangeLevel applies the reducer to percentage changes, then normalizes
	ChangeLevel Convention = "change-level"
	// LeverageAdjusted divides percentage changes by the asset's leverage factor
	LeverageAdjusted Convention = "leverage-adjusted"
)

// Bounds is the target range of min-max scaling
type Bounds struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// UnitBounds scales into [0, 1]
var UnitBounds = Bounds{Lower: 0, Upper: 1}

// Distribution is the ordered list of arbitrage levels produced by a sweep
type Distribution []float64

// DistributionSummary condenses a distribution
type DistributionSummary struct {
	Count  int     `json:"count"`
	Median float64 `json:"median"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	P10    float64 `json:"p10"`
	P90    float64 `json:"p90"`
}

// SweepProgress is reported after each window of a PolyPointArb sweep
type SweepProgress struct {
	RunID        string `json:"run_id"`
	Window       int    `json:"window"`
	WindowsDone  int    `json:"windows_done"`
	WindowsTotal int    `json:"windows_total"`
	Values       int    `json:"values"`
	Skipped      int    `json:"skipped"`
}

// ProgressFunc receives sweep progress. It may be called from several goroutines
// when the sweep runs concurrently, but never concurrently with itself, and
// always in window order.
type ProgressFunc func(SweepProgress)

// RenderedSeries is the series a dispersion plot would draw for one asset
type RenderedSeries struct {
	Symbol string    `json:"symbol"`
	Values []float64 `json:"values"`
}

// SweepStats counts what a sweep evaluated
type SweepStats struct {
	Windows     int           `json:"windows"`
	Evaluations int           `json:"evaluations"`
	Skipped     int           `json:"skipped"`
	EarlyStops  int           `json:"early_stops"`
	Duration    time.Duration `json:"duration"`
}
