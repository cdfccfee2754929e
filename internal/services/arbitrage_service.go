package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"volarb/internal/volarb"
)

// ProgressPublisher streams sweep lifecycle events to subscribers
type ProgressPublisher interface {
	PublishProgress(ctx context.Context, progress volarb.SweepProgress)
	PublishComplete(ctx context.Context, runID, pair string, dist volarb.Distribution, stats volarb.SweepStats)
	PublishFailure(ctx context.Context, runID, pair string, err error)
}

// AnalysisOptions overrides the service defaults for one request.
// Zero values keep the default.
type AnalysisOptions struct {
	Reducer         string
	Window          int
	TailFraction    float64
	Workers         int
	ParityTolerance *float64
	RunID           string
}

// MonoResult is the outcome of a single-point comparison
type MonoResult struct {
	Pair         string  `json:"pair"`
	Level        float64 `json:"level"`
	Reducer      string  `json:"reducer"`
	Window       int     `json:"window"`
	Observations int     `json:"observations"`
}

// PolyResult is the outcome of a sweep
type PolyResult struct {
	RunID   string                      `json:"run_id"`
	Pair    string                      `json:"pair"`
	Reducer string                      `json:"reducer"`
	Levels  volarb.Distribution         `json:"levels"`
	Summary *volarb.DistributionSummary `json:"summary"`
	Stats   volarb.SweepStats           `json:"stats"`
}

// TailsResult is the outcome of a tails comparison
type TailsResult struct {
	RunID        string                      `json:"run_id"`
	Pair         string                      `json:"pair"`
	Level        float64                     `json:"level"`
	TailFraction float64                     `json:"tail_fraction"`
	Summary      *volarb.DistributionSummary `json:"summary"`
	Stats        volarb.SweepStats           `json:"stats"`
}

// DispersionResult carries a dispersion difference series.
// Undefined points are null.
type DispersionResult struct {
	Pair       string            `json:"pair"`
	Convention volarb.Convention `json:"convention"`
	Values     []*float64        `json:"values"`
}

// RenderResult carries the plotted series for each asset
type RenderResult struct {
	Convention volarb.Convention `json:"convention"`
	Series     []RenderedSeries  `json:"series"`
}

// RenderedSeries is volarb.RenderedSeries with undefined points as null
type RenderedSeries struct {
	Symbol string     `json:"symbol"`
	Values []*float64 `json:"values"`
}

// ArbitrageService runs arbitrage analyses on request
type ArbitrageService struct {
	defaults  volarb.Params
	publisher ProgressPublisher
	tracer    trace.Tracer
	meter     metric.Meter
	logger    *slog.Logger
}

// NewArbitrageService validates defaults and creates the service.
// A nil publisher discards sweep events.
func NewArbitrageService(defaults volarb.Params, publisher ProgressPublisher, logger *slog.Logger) (*ArbitrageService, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := defaults.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis defaults: %w", err)
	}
	if publisher == nil {
		publisher = discardPublisher{}
	}

	logger.Info("ArbitrageService initialized",
		slog.String("reducer", defaults.Reducer),
		slog.Int("window", defaults.Window),
		slog.Float64("tail_fraction", defaults.TailFraction),
		slog.Int("workers", defaults.Workers))

	return &ArbitrageService{
		defaults:  defaults,
		publisher: publisher,
		logger:    logger.With(slog.String("service", "arbitrage")),
	}, nil
}

// SetTelemetry routes analyzer spans and sweep metrics to tracer and meter
func (s *ArbitrageService) SetTelemetry(tracer trace.Tracer, meter metric.Meter) {
	s.tracer = tracer
	s.meter = meter
}

// Defaults returns the parameters applied when a request overrides nothing
func (s *ArbitrageService) Defaults() volarb.Params {
	return s.defaults
}

// Mono computes the single-point arbitrage level of the pair
func (s *ArbitrageService) Mono(ctx context.Context, pair volarb.Pair, opts AnalysisOptions) (*MonoResult, error) {
	analyzer, err := s.analyzer(opts)
	if err != nil {
		return nil, err
	}

	level, err := analyzer.Mono(ctx, pair)
	if err != nil {
		return nil, err
	}

	params := analyzer.Params()
	return &MonoResult{
		Pair:         pairName(pair),
		Level:        level,
		Reducer:      params.Reducer,
		Window:       params.Window,
		Observations: pair.A.Len(),
	}, nil
}

// Poly sweeps every window over the pair, publishing progress as it goes
func (s *ArbitrageService) Poly(ctx context.Context, pair volarb.Pair, opts AnalysisOptions) (*PolyResult, error) {
	analyzer, err := s.analyzer(opts)
	if err != nil {
		return nil, err
	}

	runID, dist, stats, err := s.sweep(ctx, analyzer, pair, opts.RunID)
	if err != nil {
		return nil, err
	}

	summary, _ := dist.Summary()
	return &PolyResult{
		RunID:   runID,
		Pair:    pairName(pair),
		Reducer: analyzer.Params().Reducer,
		Levels:  dist,
		Summary: &summary,
		Stats:   stats,
	}, nil
}

// Tails sweeps the pair and compares the tails of the resulting distribution
func (s *ArbitrageService) Tails(ctx context.Context, pair volarb.Pair, opts AnalysisOptions) (*TailsResult, error) {
	analyzer, err := s.analyzer(opts)
	if err != nil {
		return nil, err
	}

	runID, dist, stats, err := s.sweep(ctx, analyzer, pair, opts.RunID)
	if err != nil {
		return nil, err
	}

	fraction := analyzer.Params().TailFraction
	level, err := volarb.TailAsymmetry(dist, fraction)
	if err != nil {
		return nil, fmt.Errorf("tail asymmetry of %d levels: %w", len(dist), err)
	}

	summary, _ := dist.Summary()
	return &TailsResult{
		RunID:        runID,
		Pair:         pairName(pair),
		Level:        level,
		TailFraction: fraction,
		Summary:      &summary,
		Stats:        stats,
	}, nil
}

// Dispersion computes the dispersion difference of the pair under convention
func (s *ArbitrageService) Dispersion(ctx context.Context, pair volarb.Pair, convention volarb.Convention, opts AnalysisOptions) (*DispersionResult, error) {
	analyzer, err := s.analyzer(opts)
	if err != nil {
		return nil, err
	}

	diff, err := analyzer.Dispersion(ctx, pair, convention)
	if err != nil {
		return nil, err
	}

	return &DispersionResult{
		Pair:       pairName(pair),
		Convention: convention,
		Values:     nullable(diff),
	}, nil
}

// Render computes the dispersion series a chart would plot for each asset
func (s *ArbitrageService) Render(ctx context.Context, assets []volarb.PriceSeries, convention volarb.Convention, opts AnalysisOptions) (*RenderResult, error) {
	analyzer, err := s.analyzer(opts)
	if err != nil {
		return nil, err
	}

	rendered, err := analyzer.Render(ctx, assets, convention)
	if err != nil {
		return nil, err
	}

	result := &RenderResult{Convention: convention, Series: make([]RenderedSeries, len(rendered))}
	for i, r := range rendered {
		result.Series[i] = RenderedSeries{Symbol: r.Symbol, Values: nullable(r.Values)}
	}
	return result, nil
}

func (s *ArbitrageService) sweep(ctx context.Context, analyzer *volarb.Analyzer, pair volarb.Pair, runID string) (string, volarb.Distribution, volarb.SweepStats, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	name := pairName(pair)

	dist, stats, err := analyzer.Sweep(ctx, pair, volarb.SweepOptions{
		RunID: runID,
		Progress: func(p volarb.SweepProgress) {
			s.publisher.PublishProgress(ctx, p)
		},
	})
	if err != nil {
		s.logger.WarnContext(ctx, "sweep failed",
			slog.String("run_id", runID),
			slog.String("pair", name),
			slog.String("error", err.Error()))
		s.publisher.PublishFailure(ctx, runID, name, err)
		return runID, nil, stats, err
	}

	s.publisher.PublishComplete(ctx, runID, name, dist, stats)
	return runID, dist, stats, nil
}

// analyzer builds an Analyzer from the defaults overlaid with opts
func (s *ArbitrageService) analyzer(opts AnalysisOptions) (*volarb.Analyzer, error) {
	params := s.defaults
	if opts.Reducer != "" {
		params.Reducer = opts.Reducer
	}
	if opts.Window != 0 {
		params.Window = opts.Window
	}
	if opts.TailFraction != 0 {
		params.TailFraction = opts.TailFraction
	}
	if opts.Workers != 0 {
		params.Workers = opts.Workers
	}
	if opts.ParityTolerance != nil {
		params.ParityTolerance = *opts.ParityTolerance
	}

	analyzer, err := volarb.NewAnalyzer(params, s.logger)
	if err != nil {
		return nil, err
	}
	if err := analyzer.SetTelemetry(s.tracer, s.meter); err != nil {
		return nil, err
	}
	return analyzer, nil
}

func pairName(p volarb.Pair) string {
	return p.A.Symbol + "/" + p.B.Symbol
}

// nullable maps non-finite values to nil so the series can be JSON encoded
func nullable(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i := range values {
		if math.IsNaN(values[i]) || math.IsInf(values[i], 0) {
			continue
		}
		v := values[i]
		out[i] = &v
	}
	return out
}

type discardPublisher struct{}

func (discardPublisher) PublishProgress(context.Context, volarb.SweepProgress) {}

func (discardPublisher) PublishComplete(context.Context, string, string, volarb.Distribution, volarb.SweepStats) {
}

func (discardPublisher) PublishFailure(context.Context, string, string, error) {}
