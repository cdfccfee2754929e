package volarb

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	apperrors "volarb/internal/errors"
)

const (
	// DistributionSheet holds the arbLevels column in XLSX reports
	DistributionSheet = "arbLevels"
	// SummarySheet holds the distribution summary in XLSX reports
	SummarySheet = "summary"
)

// Report is the content of a plain-text summary report
type Report struct {
	SymbolA      string
	SymbolB      string
	Reducer      string
	Window       int
	TailFraction float64
	Observations int
	Mono         float64
	MonoErr      error
	Tails        float64
	TailsErr     error
	Summary      *DistributionSummary
	Stats        SweepStats
	GeneratedAt  time.Time
}

// SaveDistributionCSV writes the levels as index,arbLevel rows
func SaveDistributionCSV(dist Distribution, outputPath string) error {
	if len(dist) == 0 {
		return apperrors.NewEmptyResultError("no levels to save")
	}

	return writeCSV(outputPath, func(writer *csv.Writer) error {
		if err := writer.Write([]string{"index", "arbLevel"}); err != nil {
			return fmt.Errorf("write CSV header: %w", err)
		}
		for i, level := range dist {
			if err := writer.Write([]string{strconv.Itoa(i), formatFloat(level, 8)}); err != nil {
				return fmt.Errorf("write CSV record %d: %w", i, err)
			}
		}
		return nil
	})
}

// SaveSeriesCSV writes an index column followed by one column per series.
// Shorter series leave their trailing cells empty; NaN is written as an empty cell.
func SaveSeriesCSV(series []RenderedSeries, outputPath string) error {
	if len(series) == 0 {
		return apperrors.NewEmptyResultError("no series to save")
	}

	rows := 0
	header := []string{"index"}
	for _, s := range series {
		header = append(header, s.Symbol)
		if len(s.Values) > rows {
			rows = len(s.Values)
		}
	}

	return writeCSV(outputPath, func(writer *csv.Writer) error {
		if err := writer.Write(header); err != nil {
			return fmt.Errorf("write CSV header: %w", err)
		}
		for i := 0; i < rows; i++ {
			record := make([]string, 0, len(header))
			record = append(record, strconv.Itoa(i))
			for _, s := range series {
				cell := ""
				if i < len(s.Values) && !math.IsNaN(s.Values[i]) {
					cell = formatFloat(s.Values[i], 8)
				}
				record = append(record, cell)
			}
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("write CSV record %d: %w", i, err)
			}
		}
		return nil
	})
}

// SaveDistributionXLSX writes the levels to an "arbLevels" sheet and their
// summary to a "summary" sheet
func SaveDistributionXLSX(dist Distribution, outputPath string) error {
	summary, err := dist.Summary()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return apperrors.NewStorageError("create output directory", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", DistributionSheet); err != nil {
		return apperrors.NewStorageError("rename sheet", err)
	}
	if err := f.SetSheetRow(DistributionSheet, "A1", &[]interface{}{"index", "arbLevel"}); err != nil {
		return apperrors.NewStorageError("write sheet header", err)
	}
	for i, level := range dist {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return apperrors.NewStorageError("cell name", err)
		}
		if err := f.SetSheetRow(DistributionSheet, cell, &[]interface{}{i, level}); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("write level %d", i), err)
		}
	}

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return apperrors.NewStorageError("create summary sheet", err)
	}
	rows := [][]interface{}{
		{"statistic", "value"},
		{"count", summary.Count},
		{"median", summary.Median},
		{"mean", summary.Mean},
		{"min", summary.Min},
		{"max", summary.Max},
		{"p10", summary.P10},
		{"p90", summary.P90},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return apperrors.NewStorageError("write summary row", err)
		}
	}

	if err := f.SaveAs(outputPath); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("save workbook %s", outputPath), err)
	}
	return nil
}

// SaveSummaryReport writes a human readable summary of one analysis run
func SaveSummaryReport(report Report, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return apperrors.NewStorageError("create output directory", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Volatility Arbitrage Report\n")
	fmt.Fprintf(&b, "===========================\n")
	fmt.Fprintf(&b, "Generated:     %s\n", report.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Assets:        %s vs %s\n", report.SymbolA, report.SymbolB)
	fmt.Fprintf(&b, "Observations:  %d\n", report.Observations)
	fmt.Fprintf(&b, "Reducer:       %s (window %d)\n", report.Reducer, report.Window)
	fmt.Fprintf(&b, "\n")
	fmt.Fprintf(&b, "Mono point:    %s\n", levelOrError(report.Mono, report.MonoErr))
	fmt.Fprintf(&b, "Tails (f=%.2f): %s\n", report.TailFraction, levelOrError(report.Tails, report.TailsErr))

	if s := report.Summary; s != nil {
		fmt.Fprintf(&b, "\nDistribution (%d levels)\n", s.Count)
		fmt.Fprintf(&b, "  median: %s\n", formatFloat(s.Median, 4))
		fmt.Fprintf(&b, "  mean:   %s\n", formatFloat(s.Mean, 4))
		fmt.Fprintf(&b, "  min:    %s\n", formatFloat(s.Min, 4))
		fmt.Fprintf(&b, "  max:    %s\n", formatFloat(s.Max, 4))
		fmt.Fprintf(&b, "  p10:    %s\n", formatFloat(s.P10, 4))
		fmt.Fprintf(&b, "  p90:    %s\n", formatFloat(s.P90, 4))
	}
	if report.Stats.Windows > 0 {
		fmt.Fprintf(&b, "\nSweep: %d windows, %d evaluations, %d skipped, %d early stops in %s\n",
			report.Stats.Windows, report.Stats.Evaluations, report.Stats.Skipped,
			report.Stats.EarlyStops, report.Stats.Duration.Round(time.Millisecond))
	}

	if err := os.WriteFile(outputPath, []byte(b.String()), 0644); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("write report %s", outputPath), err)
	}
	return nil
}

func writeCSV(outputPath string, write func(*csv.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return apperrors.NewStorageError("create output directory", err)
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return apperrors.NewStorageError("create CSV file", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := write(writer); err != nil {
		return apperrors.NewStorageError(outputPath, err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return apperrors.NewStorageError("flush CSV", err)
	}
	return nil
}

func levelOrError(level float64, err error) string {
	if err != nil {
		return "undefined (" + err.Error() + ")"
	}
	return formatFloat(level, 4)
}

// formatFloat formats a float64 value for output with specified precision
func formatFloat(value float64, precision int) string {
	return strconv.FormatFloat(value, 'f', precision, 64)
}
