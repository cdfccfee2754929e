package http

import (
	"volarb/internal/services"
	"volarb/internal/volarb"
)

// SeriesInput is one asset's close prices, oldest first
type SeriesInput struct {
	Symbol string    `json:"symbol" validate:"required,symbol"`
	Close  []float64 `json:"close" validate:"required,min=2"`
}

func (s SeriesInput) series() volarb.PriceSeries {
	return volarb.PriceSeries{Symbol: s.Symbol, Close: s.Close}
}

// OptionsInput overrides the server's analysis defaults
type OptionsInput struct {
	Reducer         string   `json:"reducer,omitempty" validate:"omitempty,oneof=std var kurt median mean"`
	Window          int      `json:"window,omitempty" validate:"omitempty,gte=1,lte=1000"`
	TailFraction    float64  `json:"tail_fraction,omitempty" validate:"omitempty,gt=0,lte=0.5"`
	Workers         int      `json:"workers,omitempty" validate:"omitempty,gte=1,lte=64"`
	ParityTolerance *float64 `json:"parity_tolerance,omitempty" validate:"omitempty,gte=0,lt=1"`
}

func (o *OptionsInput) analysis(runID string) services.AnalysisOptions {
	if o == nil {
		return services.AnalysisOptions{RunID: runID}
	}
	return services.AnalysisOptions{
		Reducer:         o.Reducer,
		Window:          o.Window,
		TailFraction:    o.TailFraction,
		Workers:         o.Workers,
		ParityTolerance: o.ParityTolerance,
		RunID:           runID,
	}
}

// PairRequest is the body of the mono, poly and tails endpoints.
// A is the leveraged or first asset.
type PairRequest struct {
	A       SeriesInput   `json:"a" validate:"required"`
	B       SeriesInput   `json:"b" validate:"required"`
	RunID   string        `json:"run_id,omitempty" validate:"omitempty,max=64,printascii"`
	Options *OptionsInput `json:"options,omitempty"`
}

func (p PairRequest) pair() volarb.Pair {
	return volarb.Pair{A: p.A.series(), B: p.B.series()}
}

// DispersionRequest is the body of POST /arb/dispersion
type DispersionRequest struct {
	A          SeriesInput   `json:"a" validate:"required"`
	B          SeriesInput   `json:"b" validate:"required"`
	Convention string        `json:"convention" validate:"required,oneof=raw-level normalized-level"`
	Options    *OptionsInput `json:"options,omitempty"`
}

// RenderRequest is the body of POST /arb/render
type RenderRequest struct {
	Assets     []SeriesInput `json:"assets" validate:"required,min=1,max=16,dive"`
	Convention string        `json:"convention" validate:"required,oneof=raw-level change-level leverage-adjusted"`
	Options    *OptionsInput `json:"options,omitempty"`
}
