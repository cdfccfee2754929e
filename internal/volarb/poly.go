package volarb

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	apperrors "volarb/internal/errors"
)

// SweepOptions carries per-run settings of a sweep
type SweepOptions struct {
	// RunID tags progress reports and logs; empty generates one.
	RunID    string
	Progress ProgressFunc
}

// sweep holds everything one PolyPointArb run needs
type sweep struct {
	a, b      []float64
	reducer   Reducer
	window    int
	bounds    Bounds
	tolerance float64
	workers   int
	runID     string
	progress  ProgressFunc
	logger    *slog.Logger
}

// windowResult is the outcome of evaluating one batching stride
type windowResult struct {
	window      int
	values      []float64
	evaluations int
	skipped     int
	earlyStop   bool

	// evaluations and skips up to and including the first collected level
	leadEvaluations int
	leadSkipped     int
}

// PolyPointArb sweeps batching strides over a and b and returns every defined
// MonoPointArb level, in window order, minus the final one.
func PolyPointArb(ctx context.Context, a, b []float64, reducer Reducer) (Distribution, error) {
	s := &sweep{
		a:       a,
		b:       b,
		reducer: reducer,
		window:  DefaultMonoWindow,
		bounds:  UnitBounds,
		workers: 1,
		runID:   uuid.NewString(),
		logger:  slog.Default(),
	}
	dist, _, err := s.run(ctx)
	return dist, err
}

// Sweep runs PolyPointArb for pair and returns the distribution with run statistics
func (a *Analyzer) Sweep(ctx context.Context, pair Pair, opts SweepOptions) (Distribution, SweepStats, error) {
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	ctx, span := a.tracer.Start(ctx, "volarb.PolyPointArb", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.String("pair", describePair(pair)),
		attribute.String("reducer", a.params.Reducer),
		attribute.Int("observations", pair.A.Len()),
		attribute.Int("workers", a.params.Workers),
	))
	defer span.End()

	logger := a.logger.With(slog.String("run_id", runID), slog.String("pair", describePair(pair)))

	s := &sweep{
		a:         pair.A.Close,
		b:         pair.B.Close,
		reducer:   a.reducer,
		window:    a.params.Window,
		bounds:    a.params.Bounds,
		tolerance: a.params.ParityTolerance,
		workers:   a.params.Workers,
		runID:     runID,
		progress:  opts.Progress,
		logger:    logger,
	}

	logger.InfoContext(ctx, "starting poly point sweep",
		"observations", pair.A.Len(),
		"reducer", a.params.Reducer,
		"workers", a.params.Workers,
	)

	dist, stats, err := s.run(ctx)
	a.instruments.record(ctx, a.params.Reducer, stats, err)
	span.SetAttributes(
		attribute.Int("windows", stats.Windows),
		attribute.Int("evaluations", stats.Evaluations),
		attribute.Int("skipped", stats.Skipped),
		attribute.Int("levels", len(dist)),
	)
	if err != nil {
		logger.WarnContext(ctx, "poly point sweep failed", "error", err)
		return nil, stats, a.fail(span, err)
	}

	logger.InfoContext(ctx, "poly point sweep complete",
		"levels", len(dist),
		"evaluations", stats.Evaluations,
		"skipped", stats.Skipped,
		"early_stops", stats.EarlyStops,
		"duration", stats.Duration,
	)
	return dist, stats, nil
}

// sweepWindows returns the batching strides [2, floor(n/2))
func sweepWindows(n int) []int {
	half := n / 2
	var out []int
	for w := 2; w < half; w++ {
		out = append(out, w)
	}
	return out
}

func (s *sweep) run(ctx context.Context) (Distribution, SweepStats, error) {
	start := time.Now()
	stats := SweepStats{}

	if s.reducer == nil {
		return nil, stats, apperrors.NewInvalidConfigurationError("reducer is required")
	}
	if err := checkPair(s.a, s.b, MinSweepLength); err != nil {
		return nil, stats, err
	}

	windows := sweepWindows(len(s.a))
	stats.Windows = len(windows)

	var (
		levels []float64
		err    error
	)
	if s.workers > 1 && len(windows) > 1 {
		levels, err = s.runConcurrent(ctx, windows, &stats)
	} else {
		levels, err = s.runSequential(ctx, windows, &stats)
	}
	stats.Duration = time.Since(start)
	if err != nil {
		return nil, stats, err
	}

	if len(levels) > 0 {
		levels = levels[:len(levels)-1]
	}
	if len(levels) == 0 {
		return nil, stats, apperrors.NewEmptyResultError("sweep over %d windows produced no arbitrage level", len(windows)).
			WithContext("evaluations", stats.Evaluations).
			WithContext("skipped", stats.Skipped)
	}
	return Distribution(levels), stats, nil
}

func (s *sweep) runSequential(ctx context.Context, windows []int, stats *SweepStats) ([]float64, error) {
	var levels []float64
	for i, w := range windows {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("sweep cancelled before window %d: %w", w, err)
		}

		prev, hasPrev := lastValue(levels)
		res, err := s.evaluateWindow(w, prev, hasPrev)
		if err != nil {
			return nil, err
		}
		levels = append(levels, res.values...)
		stats.add(res)

		s.logger.DebugContext(ctx, "window evaluated",
			"window", w,
			"levels", len(res.values),
			"skipped", res.skipped,
			"early_stop", res.earlyStop,
		)
		s.report(SweepProgress{
			RunID:        s.runID,
			Window:       w,
			WindowsDone:  i + 1,
			WindowsTotal: len(windows),
			Values:       len(levels),
			Skipped:      stats.Skipped,
		})
	}
	return levels, nil
}

// runConcurrent evaluates windows on a bounded errgroup and merges them in
// window order as soon as every earlier window is in. Only a window's first
// level depends on earlier windows, so the merge re-applies the parity stop to
// it and yields the sequential levels, stats and progress reports.
func (s *sweep) runConcurrent(ctx context.Context, windows []int, stats *SweepStats) ([]float64, error) {
	results := make([]windowResult, len(windows))
	ready := make([]bool, len(windows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	var (
		mu     sync.Mutex
		next   int
		levels []float64
	)

	for i, w := range windows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("sweep cancelled before window %d: %w", w, err)
			}
			res, err := s.evaluateWindow(w, 0, false)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			results[i], ready[i] = res, true
			for next < len(windows) && ready[next] {
				levels = s.mergeWindow(levels, results[next], stats)
				s.report(SweepProgress{
					RunID:        s.runID,
					Window:       windows[next],
					WindowsDone:  next + 1,
					WindowsTotal: len(windows),
					Values:       len(levels),
					Skipped:      stats.Skipped,
				})
				next++
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("sweep cancelled: %w", err)
	}
	return levels, nil
}

// mergeWindow appends one independently evaluated window to levels. A window
// whose first level is at parity right after a parity level contributes
// nothing, and only the evaluations up to that level are counted.
func (s *sweep) mergeWindow(levels []float64, res windowResult, stats *SweepStats) []float64 {
	prev, hasPrev := lastValue(levels)
	if len(res.values) > 0 && hasPrev && s.isParity(prev) && s.isParity(res.values[0]) {
		res.values = nil
		res.earlyStop = true
		res.evaluations, res.skipped = res.leadEvaluations, res.leadSkipped
	}
	stats.add(res)
	return append(levels, res.values...)
}

// evaluateWindow batches both assets with stride w and evaluates every pair
// of batches past the first w. prev is the last level collected before this
// window, used by the parity stop on the window's first level.
func (s *sweep) evaluateWindow(w int, prev float64, hasPrev bool) (windowResult, error) {
	res := windowResult{window: w}
	half := len(s.a) / 2

	batchesA, err := Batch(s.a, half, w)
	if err != nil {
		return res, err
	}
	batchesB, err := Batch(s.b, half, w)
	if err != nil {
		return res, err
	}
	if w >= len(batchesA) {
		return res, nil
	}
	batchesA, batchesB = batchesA[w:], batchesB[w:]

	for i := range batchesA {
		res.evaluations++
		level, err := monoPoint(batchesA[i], batchesB[i], s.reducer, s.window, s.bounds)
		if err != nil {
			if apperrors.IsType(err, apperrors.ErrTypeDegenerateInput) || apperrors.IsType(err, apperrors.ErrTypeEmptyResult) {
				res.skipped++
				continue
			}
			return res, fmt.Errorf("window %d batch %d: %w", w, i, err)
		}

		if hasPrev && s.isParity(level) && s.isParity(prev) {
			res.earlyStop = true
			break
		}
		if len(res.values) == 0 {
			res.leadEvaluations, res.leadSkipped = res.evaluations, res.skipped
		}
		res.values = append(res.values, level)
		prev, hasPrev = level, true
	}
	return res, nil
}

func (s *sweep) isParity(v float64) bool {
	return math.Abs(v-ParityLevel) <= s.tolerance
}

func (s *sweep) report(p SweepProgress) {
	if s.progress != nil {
		s.progress(p)
	}
}

func (st *SweepStats) add(res windowResult) {
	st.Evaluations += res.evaluations
	st.Skipped += res.skipped
	if res.earlyStop {
		st.EarlyStops++
	}
}

func lastValue(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	return values[len(values)-1], true
}
