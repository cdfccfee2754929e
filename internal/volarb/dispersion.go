package volarb

import (
	"fmt"
	"math"

	apperrors "volarb/internal/errors"
)

// DispersionDiff returns asset1 minus asset2 of the normalized rolling
// dispersion under convention (RawLevel or NormalizedLevel), scaled into [0, 1].
func DispersionDiff(a, b []float64, reducer Reducer, window int, convention Convention) ([]float64, error) {
	return dispersionDiff(a, b, reducer, window, convention, UnitBounds)
}

func dispersionDiff(a, b []float64, reducer Reducer, window int, convention Convention, bounds Bounds) ([]float64, error) {
	if len(a) != len(b) {
		return nil, apperrors.NewInvalidConfigurationError("series lengths differ: %d vs %d", len(a), len(b))
	}

	var pipeline func([]float64) ([]float64, error)
	switch convention {
	case RawLevel:
		pipeline = func(close []float64) ([]float64, error) {
			rolled, err := Rolling(close, window, reducer)
			if err != nil {
				return nil, err
			}
			if len(finiteValues(rolled)) == 0 {
				return nil, apperrors.NewEmptyResultError("rolling %d-window dispersion of %d values has no finite value", window, len(close))
			}
			return MinMaxScale(rolled, bounds)
		}
	case NormalizedLevel:
		pipeline = func(close []float64) ([]float64, error) {
			scaled, err := MinMaxScale(close, bounds)
			if err != nil {
				return nil, err
			}
			return Rolling(scaled, window, reducer)
		}
	default:
		return nil, apperrors.NewInvalidConfigurationError("unknown dispersion convention %q", convention)
	}

	first, err := pipeline(a)
	if err != nil {
		return nil, fmt.Errorf("asset 1 %s dispersion: %w", convention, err)
	}
	second, err := pipeline(b)
	if err != nil {
		return nil, fmt.Errorf("asset 2 %s dispersion: %w", convention, err)
	}

	diff := make([]float64, len(first))
	finite := 0
	for i := range first {
		diff[i] = first[i] - second[i]
		if isFinite(diff[i]) {
			finite++
		}
	}
	if finite == 0 {
		return nil, apperrors.NewEmptyResultError("%s dispersion difference has no finite value", convention)
	}
	return diff, nil
}

// RenderDispersion returns, per asset, the series a dispersion plot draws
// under convention. Supported conventions are RawLevel, ChangeLevel and
// LeverageAdjusted. Assets missing from leverage use a factor of 1, but
// LeverageAdjusted needs at least one asset with a configured factor.
func RenderDispersion(assets []PriceSeries, convention Convention, reducer Reducer, window int, leverage map[string]float64) ([]RenderedSeries, error) {
	return renderDispersion(assets, convention, reducer, window, leverage, UnitBounds)
}

func renderDispersion(assets []PriceSeries, convention Convention, reducer Reducer, window int, leverage map[string]float64, bounds Bounds) ([]RenderedSeries, error) {
	if len(assets) == 0 {
		return nil, apperrors.NewInvalidConfigurationError("at least one asset is required")
	}

	switch convention {
	case RawLevel, ChangeLevel:
	case LeverageAdjusted:
		configured := 0
		for _, asset := range assets {
			factor, ok := leverage[asset.Symbol]
			if !ok {
				continue
			}
			if !(factor > 0) || math.IsInf(factor, 0) {
				return nil, apperrors.NewInvalidConfigurationError("leverage factor for %s must be positive, got %v", asset.Symbol, factor)
			}
			configured++
		}
		if configured == 0 {
			return nil, apperrors.NewInvalidConfigurationError("leverage-adjusted rendering needs a leverage factor for at least one asset")
		}
	default:
		return nil, apperrors.NewInvalidConfigurationError("unknown rendering convention %q", convention)
	}

	out := make([]RenderedSeries, 0, len(assets))
	for _, asset := range assets {
		var (
			values []float64
			err    error
		)
		switch convention {
		case RawLevel:
			values, err = Rolling(asset.Close, window, reducer)
			if err == nil {
				values, err = MinMaxScale(values, bounds)
			}
		case ChangeLevel:
			values, err = Rolling(PctChange(asset.Close), window, reducer)
			if err == nil {
				values, err = MinMaxScale(values, bounds)
			}
		case LeverageAdjusted:
			factor, ok := leverage[asset.Symbol]
			if !ok {
				factor = 1
			}
			changes := PctChange(asset.Close)
			for i := range changes {
				changes[i] /= factor
			}
			values, err = Rolling(changes, window, reducer)
		}
		if err != nil {
			return nil, fmt.Errorf("render %s for %s: %w", convention, asset.Symbol, err)
		}
		out = append(out, RenderedSeries{Symbol: asset.Symbol, Values: values})
	}
	return out, nil
}
