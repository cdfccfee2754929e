package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"volarb/internal/config"
	apperrors "volarb/internal/errors"
	"volarb/internal/infrastructure"
	"volarb/internal/volarb"
)

type options struct {
	pathA        string
	pathB        string
	symbolA      string
	symbolB      string
	reducer      string
	window       int
	tailFraction float64
	workers      int
	outputDir    string
	configPath   string
}

// outputs lists the files one run writes
type outputs struct {
	Levels     string
	Workbook   string
	Dispersion string
	Summary    string
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		slog.Error("Report failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("volarb-report", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.pathA, "a", "", "CSV or XLSX price file of the leveraged (first) asset")
	fs.StringVar(&opts.pathB, "b", "", "CSV or XLSX price file of the second asset")
	fs.StringVar(&opts.symbolA, "sym-a", "", "symbol of the first asset (defaults to its file name)")
	fs.StringVar(&opts.symbolB, "sym-b", "", "symbol of the second asset (defaults to its file name)")
	fs.StringVar(&opts.reducer, "reducer", "", "dispersion reducer: std, var, kurt, median or mean")
	fs.IntVar(&opts.window, "window", 0, "rolling window for the mono point and dispersion series")
	fs.Float64Var(&opts.tailFraction, "tail-fraction", 0, "share of the distribution summed at each tail")
	fs.IntVar(&opts.workers, "workers", 0, "concurrent sweep workers")
	fs.StringVar(&opts.outputDir, "out", "", "output directory for reports")
	fs.StringVar(&opts.configPath, "config", "", "path to a YAML config file")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.pathA == "" || opts.pathB == "" {
		fmt.Fprintln(stderr, "both -a and -b are required")
		fs.Usage()
		return opts, errors.New("missing price files")
	}
	return opts, nil
}

// loadConfig applies command line overrides on top of the loaded config
func loadConfig(opts options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	if opts.reducer != "" {
		cfg.Analysis.Reducer = opts.reducer
	}
	if opts.window != 0 {
		cfg.Analysis.Window = opts.window
	}
	if opts.tailFraction != 0 {
		cfg.Analysis.TailFraction = opts.tailFraction
	}
	if opts.workers != 0 {
		cfg.Analysis.Workers = opts.workers
	}
	if opts.outputDir != "" {
		cfg.Output.Dir = opts.outputDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, apperrors.NewInvalidConfigurationError("invalid command line options: %v", err)
	}
	return cfg, nil
}

func run(ctx context.Context, opts options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer infrastructure.CloseLogFile()

	_, err = generate(ctx, cfg, opts, logger)
	return err
}

// generate loads both series, runs every analysis and writes the reports
func generate(ctx context.Context, cfg *config.Config, opts options, logger *slog.Logger) (*outputs, error) {
	otelCfg := infrastructure.OTelConfigFrom(cfg.Telemetry)
	otelCfg.MetricExporter = "none"
	providers, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize telemetry: %w", err)
	}
	defer providers.Shutdown(context.WithoutCancel(ctx))

	params := volarb.ParamsFromConfig(cfg.Analysis)
	analyzer, err := volarb.NewAnalyzer(params, logger)
	if err != nil {
		return nil, err
	}
	if err := analyzer.SetTelemetry(providers.Tracer, nil); err != nil {
		return nil, err
	}

	var seriesA, seriesB volarb.PriceSeries
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		seriesA, err = volarb.LoadPriceSeries(opts.pathA, opts.symbolA)
		return err
	})
	g.Go(func() error {
		var err error
		seriesB, err = volarb.LoadPriceSeries(opts.pathB, opts.symbolB)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seriesA, seriesB, err = volarb.AlignSeries(seriesA, seriesB)
	if err != nil {
		return nil, err
	}
	pair := volarb.Pair{A: seriesA, B: seriesB}

	logger.InfoContext(ctx, "Loaded price series",
		slog.String("a", seriesA.Symbol),
		slog.String("b", seriesB.Symbol),
		slog.Int("observations", seriesA.Len()))

	out := reportPaths(cfg.Output.Dir, seriesA.Symbol, seriesB.Symbol, cfg.Output.XLSX, time.Now())
	if !cfg.Output.Force {
		if err := out.ensureAbsent(); err != nil {
			return nil, err
		}
	}

	report := volarb.Report{
		SymbolA:      seriesA.Symbol,
		SymbolB:      seriesB.Symbol,
		Reducer:      params.Reducer,
		Window:       params.Window,
		TailFraction: params.TailFraction,
		Observations: seriesA.Len(),
		GeneratedAt:  time.Now(),
	}

	report.Mono, report.MonoErr = analyzer.Mono(ctx, pair)
	if report.MonoErr != nil && !isUndefinedLevel(report.MonoErr) {
		return nil, report.MonoErr
	}

	dist, stats, err := analyzer.Sweep(ctx, pair, volarb.SweepOptions{
		Progress: func(p volarb.SweepProgress) {
			logger.DebugContext(ctx, "Sweep progress",
				slog.Int("window", p.Window),
				slog.Int("done", p.WindowsDone),
				slog.Int("total", p.WindowsTotal),
				slog.Int("values", p.Values))
		},
	})
	report.Stats = stats
	switch {
	case err == nil:
		summary, _ := dist.Summary()
		report.Summary = &summary
		report.Tails, report.TailsErr = volarb.TailAsymmetry(dist, params.TailFraction)

		if err := volarb.SaveDistributionCSV(dist, out.Levels); err != nil {
			return nil, err
		}
		if out.Workbook != "" {
			if err := volarb.SaveDistributionXLSX(dist, out.Workbook); err != nil {
				return nil, err
			}
		}
	case isUndefinedLevel(err):
		logger.WarnContext(ctx, "Sweep produced no distribution", slog.String("error", err.Error()))
		report.TailsErr = err
		out.Levels, out.Workbook = "", ""
	default:
		return nil, err
	}

	rendered, err := analyzer.Render(ctx, []volarb.PriceSeries{seriesA, seriesB}, renderConvention(params, pair))
	if err == nil {
		err = volarb.SaveSeriesCSV(rendered, out.Dispersion)
	}
	if err != nil {
		if !isUndefinedLevel(err) {
			return nil, err
		}
		logger.WarnContext(ctx, "Skipping dispersion series", slog.String("error", err.Error()))
		out.Dispersion = ""
	}

	if err := volarb.SaveSummaryReport(report, out.Summary); err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Report generated successfully",
		slog.String("summary", out.Summary),
		slog.String("levels", out.Levels),
		slog.String("workbook", out.Workbook),
		slog.String("dispersion", out.Dispersion),
		slog.Float64("mono", report.Mono),
		slog.Float64("tails", report.Tails))

	return &out, nil
}

func reportPaths(dir, symbolA, symbolB string, xlsx bool, now time.Time) outputs {
	base := filepath.Join(dir, fmt.Sprintf("%s_%s_%s", sanitize(symbolA), sanitize(symbolB), now.Format("20060102")))
	out := outputs{
		Levels:     base + "_levels.csv",
		Dispersion: base + "_dispersion.csv",
		Summary:    base + "_summary.txt",
	}
	if xlsx {
		out.Workbook = base + "_levels.xlsx"
	}
	return out
}

func (o outputs) ensureAbsent() error {
	for _, path := range []string{o.Levels, o.Workbook, o.Dispersion, o.Summary} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			return apperrors.NewStorageError(fmt.Sprintf("%s already exists (set output.force to overwrite)", path), nil)
		}
	}
	return nil
}

// renderConvention leverage-adjusts when either asset has a configured factor
func renderConvention(params volarb.Params, pair volarb.Pair) volarb.Convention {
	if _, ok := params.Leverage[pair.A.Symbol]; ok {
		return volarb.LeverageAdjusted
	}
	if _, ok := params.Leverage[pair.B.Symbol]; ok {
		return volarb.LeverageAdjusted
	}
	return volarb.ChangeLevel
}

// isUndefinedLevel reports errors that leave a level undefined without
// invalidating the rest of the report
func isUndefinedLevel(err error) bool {
	return apperrors.IsType(err, apperrors.ErrTypeDegenerateInput) || apperrors.IsType(err, apperrors.ErrTypeEmptyResult)
}

func sanitize(symbol string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ', '^':
			return '_'
		}
		return r
	}, symbol)
}
