package volarb

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"volarb/internal/config"
	apperrors "volarb/internal/errors"
)

// Params configures an Analyzer
type Params struct {
	Reducer         string             `json:"reducer"`
	Window          int                `json:"window"`
	TailFraction    float64            `json:"tail_fraction"`
	Workers         int                `json:"workers"`
	ParityTolerance float64            `json:"parity_tolerance"`
	Bounds          Bounds             `json:"bounds"`
	Leverage        map[string]float64 `json:"leverage,omitempty"`
}

// DefaultParams returns the standard-deviation reducer with a 10-period window,
// exact parity matching and a sequential sweep.
func DefaultParams() Params {
	return Params{
		Reducer:         "std",
		Window:          DefaultMonoWindow,
		TailFraction:    DefaultTailFraction,
		Workers:         1,
		ParityTolerance: 0,
		Bounds:          UnitBounds,
	}
}

// ParamsFromConfig maps the analysis section of the application config
func ParamsFromConfig(cfg config.AnalysisConfig) Params {
	return Params{
		Reducer:         cfg.Reducer,
		Window:          cfg.Window,
		TailFraction:    cfg.TailFraction,
		Workers:         cfg.Workers,
		ParityTolerance: cfg.ParityTolerance,
		Bounds:          Bounds{Lower: cfg.NormalizeLower, Upper: cfg.NormalizeUpper},
		Leverage:        cfg.Leverage,
	}
}

// Validate reports the first invalid parameter as INVALID_CONFIGURATION
func (p Params) Validate() error {
	if _, err := ReducerByName(p.Reducer); err != nil {
		return err
	}
	if p.Window < 1 {
		return apperrors.NewInvalidConfigurationError("window must be >= 1, got %d", p.Window)
	}
	if err := checkTailFraction(p.TailFraction); err != nil {
		return err
	}
	if p.Workers < 1 {
		return apperrors.NewInvalidConfigurationError("workers must be >= 1, got %d", p.Workers)
	}
	if p.ParityTolerance < 0 || math.IsNaN(p.ParityTolerance) {
		return apperrors.NewInvalidConfigurationError("parity tolerance must be >= 0, got %v", p.ParityTolerance)
	}
	if !(p.Bounds.Lower < p.Bounds.Upper) {
		return apperrors.NewInvalidConfigurationError("normalization bounds must satisfy lower < upper, got [%v, %v]", p.Bounds.Lower, p.Bounds.Upper)
	}
	for symbol, factor := range p.Leverage {
		if !(factor > 0) || math.IsInf(factor, 0) {
			return apperrors.NewInvalidConfigurationError("leverage factor for %s must be positive, got %v", symbol, factor)
		}
	}
	return nil
}

// Analyzer runs the arbitrage analyses with fixed parameters.
// SetReducer and SetTelemetry configure it and must be called before its
// first use. After that it holds no per-run state and is safe for concurrent use.
type Analyzer struct {
	params      Params
	reducer     Reducer
	logger      *slog.Logger
	tracer      trace.Tracer
	instruments *sweepInstruments
}

// NewAnalyzer validates params and builds an Analyzer with no-op telemetry
func NewAnalyzer(params Params, logger *slog.Logger) (*Analyzer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	reducer, _ := ReducerByName(params.Reducer)

	instruments, err := newSweepInstruments(metricnoop.NewMeterProvider().Meter("volarb"))
	if err != nil {
		return nil, err
	}

	return &Analyzer{
		params:      params,
		reducer:     reducer,
		logger:      logger.With(slog.String("component", "analyzer")),
		tracer:      tracenoop.NewTracerProvider().Tracer("volarb"),
		instruments: instruments,
	}, nil
}

// SetReducer replaces the named reducer with a caller supplied function.
// It must not be called once analyses are running.
func (a *Analyzer) SetReducer(name string, fn Reducer) error {
	if fn == nil {
		return apperrors.NewInvalidConfigurationError("reducer %q has no function", name)
	}
	a.params.Reducer = name
	a.reducer = fn
	return nil
}

// SetTelemetry records spans on tracer and sweep counters on meter.
// It must not be called once analyses are running.
func (a *Analyzer) SetTelemetry(tracer trace.Tracer, meter metric.Meter) error {
	if tracer != nil {
		a.tracer = tracer
	}
	if meter != nil {
		instruments, err := newSweepInstruments(meter)
		if err != nil {
			return fmt.Errorf("create sweep instruments: %w", err)
		}
		a.instruments = instruments
	}
	return nil
}

// Params returns a copy of the analyzer parameters
func (a *Analyzer) Params() Params {
	return a.params
}

// Mono computes MonoPointArb for the pair
func (a *Analyzer) Mono(ctx context.Context, pair Pair) (float64, error) {
	ctx, span := a.tracer.Start(ctx, "volarb.MonoPointArb", trace.WithAttributes(
		attribute.String("pair", describePair(pair)),
		attribute.String("reducer", a.params.Reducer),
		attribute.Int("window", a.params.Window),
		attribute.Int("observations", pair.A.Len()),
	))
	defer span.End()

	if err := checkPair(pair.A.Close, pair.B.Close, 1); err != nil {
		return 0, a.fail(span, err)
	}

	level, err := monoPoint(pair.A.Close, pair.B.Close, a.reducer, a.params.Window, a.params.Bounds)
	if err != nil {
		a.logger.WarnContext(ctx, "mono point arbitrage undefined",
			"pair", describePair(pair),
			"error", err,
		)
		return 0, a.fail(span, err)
	}

	span.SetAttributes(attribute.Float64("level", level))
	a.logger.DebugContext(ctx, "mono point arbitrage",
		"pair", describePair(pair),
		"level", level,
	)
	return level, nil
}

// Dispersion computes the dispersion difference of the pair under convention
func (a *Analyzer) Dispersion(ctx context.Context, pair Pair, convention Convention) ([]float64, error) {
	_, span := a.tracer.Start(ctx, "volarb.DispersionDiff", trace.WithAttributes(
		attribute.String("pair", describePair(pair)),
		attribute.String("convention", string(convention)),
	))
	defer span.End()

	diff, err := dispersionDiff(pair.A.Close, pair.B.Close, a.reducer, a.params.Window, convention, a.params.Bounds)
	if err != nil {
		return nil, a.fail(span, err)
	}
	return diff, nil
}

// Render computes the plotted series for assets under convention
func (a *Analyzer) Render(ctx context.Context, assets []PriceSeries, convention Convention) ([]RenderedSeries, error) {
	_, span := a.tracer.Start(ctx, "volarb.RenderDispersion", trace.WithAttributes(
		attribute.Int("assets", len(assets)),
		attribute.String("convention", string(convention)),
	))
	defer span.End()

	rendered, err := renderDispersion(assets, convention, a.reducer, a.params.Window, a.params.Leverage, a.params.Bounds)
	if err != nil {
		return nil, a.fail(span, err)
	}
	return rendered, nil
}

// PolyPoint runs the PolyPointArb sweep without progress reporting
func (a *Analyzer) PolyPoint(ctx context.Context, pair Pair) (Distribution, error) {
	dist, _, err := a.Sweep(ctx, pair, SweepOptions{})
	return dist, err
}

// TailsComparison runs the sweep and returns the tail asymmetry of its distribution
func (a *Analyzer) TailsComparison(ctx context.Context, pair Pair, opts SweepOptions) (float64, Distribution, error) {
	dist, _, err := a.Sweep(ctx, pair, opts)
	if err != nil {
		return 0, nil, err
	}
	level, err := TailAsymmetry(dist, a.params.TailFraction)
	if err != nil {
		return 0, dist, fmt.Errorf("tail asymmetry of %d levels: %w", len(dist), err)
	}
	a.logger.InfoContext(ctx, "tails comparison complete",
		"pair", describePair(pair),
		"levels", len(dist),
		"tail_fraction", a.params.TailFraction,
		"level", level,
	)
	return level, dist, nil
}

func (a *Analyzer) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String("error.type", string(apperrors.TypeOf(err))))
	return err
}

// sweepInstruments are the sweep counters exported through the meter
type sweepInstruments struct {
	runs        metric.Int64Counter
	evaluations metric.Int64Counter
	skipped     metric.Int64Counter
	duration    metric.Float64Histogram
}

func newSweepInstruments(meter metric.Meter) (*sweepInstruments, error) {
	runs, err := meter.Int64Counter(
		"volarb_sweep_runs_total",
		metric.WithDescription("PolyPointArb sweeps started"),
	)
	if err != nil {
		return nil, err
	}

	evaluations, err := meter.Int64Counter(
		"volarb_mono_evaluations_total",
		metric.WithDescription("MonoPointArb evaluations performed by sweeps"),
	)
	if err != nil {
		return nil, err
	}

	skipped, err := meter.Int64Counter(
		"volarb_mono_skipped_total",
		metric.WithDescription("MonoPointArb evaluations skipped as degenerate or empty"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"volarb_sweep_duration_seconds",
		metric.WithDescription("PolyPointArb sweep duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &sweepInstruments{
		runs:        runs,
		evaluations: evaluations,
		skipped:     skipped,
		duration:    duration,
	}, nil
}

func (s *sweepInstruments) record(ctx context.Context, reducer string, stats SweepStats, err error) {
	attrs := metric.WithAttributes(
		attribute.String("reducer", reducer),
		attribute.Bool("success", err == nil),
	)
	s.runs.Add(ctx, 1, attrs)
	s.evaluations.Add(ctx, int64(stats.Evaluations), attrs)
	s.skipped.Add(ctx, int64(stats.Skipped), attrs)
	s.duration.Record(ctx, stats.Duration.Seconds(), attrs)
}
