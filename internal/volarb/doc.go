// Package volarb measures relative-volatility "arbitrage" between two
// time-aligned price series, typically a leveraged ETP and its underlying.
//
// Rolling dispersion statistics (standard deviation, variance, kurtosis, ...)
// of each series are min-max normalized, differenced and condensed into a
// signed arbitrage level. A level of +1.0 is parity. Levels below one are
// reported as -1/ratio, so values in (0, 1) never appear and the magnitude
// always reads as "how many times larger".
//
// # Core Components
//
//   - normalize.go: min-max scaling of a series or a table of series
//   - batcher.go: strided, chronological sub-sampling of a series
//   - reducers.go: named window reducers and pandas-style rolling application
//   - dispersion.go: normalized dispersion differences (raw-level, normalized-level)
//     and the rendering pipelines (change-level, leverage-adjusted)
//   - mono.go: the single-point arbitrage level
//   - poly.go: the sweep over batching strides producing a distribution
//   - tails.go: tail asymmetry of a distribution
//   - series.go: CSV/XLSX price loading and date alignment
//   - persist.go: CSV, XLSX and text report output
//
// # Usage Example
//
//	a, err := volarb.LoadPriceSeries("data/SPXL.csv", "SPXL")
//	if err != nil {
//	    return err
//	}
//	b, err := volarb.LoadPriceSeries("data/SPY.csv", "SPY")
//	if err != nil {
//	    return err
//	}
//	a, b, err = volarb.AlignSeries(a, b)
//	if err != nil {
//	    return err
//	}
//
//	analyzer, err := volarb.NewAnalyzer(volarb.DefaultParams(), slog.Default())
//	if err != nil {
//	    return err
//	}
//	levels, err := analyzer.PolyPoint(ctx, volarb.Pair{A: a, B: b})
//
// # Errors
//
// Failures are *errors.AppError values. INVALID_CONFIGURATION marks bad
// parameters, DEGENERATE_INPUT an undefined ratio or constant column, and
// EMPTY_RESULT a computation that produced no finite value. Use
// errors.IsType to classify them through wrapping.
package volarb
