package volarb

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	apperrors "volarb/internal/errors"
)

var (
	dateColumns  = []string{"date", "datetime", "timestamp"}
	closeColumns = []string{"close", "closeprice", "adj close", "adj_close"}
)

// LoadPriceSeries reads a price history from a .csv or .xlsx file. The header
// must name a date column (Date, Datetime or Timestamp) and a close column
// (Close, ClosePrice or Adj Close). Rows are returned in ascending date
// order and a repeated date keeps its last row.
func LoadPriceSeries(path, symbol string) (PriceSeries, error) {
	if symbol == "" {
		symbol = strings.ToUpper(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return loadXLSX(path, symbol)
	default:
		file, err := os.Open(path)
		if err != nil {
			return PriceSeries{}, apperrors.NewNotFoundError(path).WithContext("error", err.Error())
		}
		defer file.Close()

		series, err := ReadPriceSeries(file, symbol)
		if err != nil {
			return PriceSeries{}, fmt.Errorf("load %s: %w", filepath.Base(path), err)
		}
		return series, nil
	}
}

// ReadPriceSeries parses CSV price rows from r
func ReadPriceSeries(r io.Reader, symbol string) (PriceSeries, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return PriceSeries{}, apperrors.NewParsingError("read CSV records", err)
	}
	return parseRows(records, symbol)
}

func loadXLSX(path, symbol string) (PriceSeries, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return PriceSeries{}, apperrors.NewParsingError(fmt.Sprintf("open workbook %s", filepath.Base(path)), err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return PriceSeries{}, apperrors.NewParsingError(fmt.Sprintf("workbook %s has no sheets", filepath.Base(path)), nil)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return PriceSeries{}, apperrors.NewParsingError(fmt.Sprintf("read sheet %s", sheets[0]), err)
	}

	series, err := parseRows(rows, symbol)
	if err != nil {
		return PriceSeries{}, fmt.Errorf("load %s: %w", filepath.Base(path), err)
	}
	return series, nil
}

type priceRow struct {
	date  time.Time
	close float64
}

// parseRows turns a header plus data rows into a sorted, de-duplicated series
func parseRows(records [][]string, symbol string) (PriceSeries, error) {
	if len(records) == 0 {
		return PriceSeries{}, apperrors.NewParsingError("empty price file", nil)
	}

	dateIdx, closeIdx := -1, -1
	for i, name := range records[0] {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if dateIdx < 0 && contains(dateColumns, name) {
			dateIdx = i
		}
		if closeIdx < 0 && contains(closeColumns, name) {
			closeIdx = i
		}
	}
	if dateIdx < 0 || closeIdx < 0 {
		return PriceSeries{}, apperrors.NewParsingError(
			fmt.Sprintf("header must contain a date column (%s) and a close column (%s)",
				strings.Join(dateColumns, "/"), strings.Join(closeColumns, "/")), nil)
	}

	byDate := make(map[time.Time]int)
	var rows []priceRow
	for i := 1; i < len(records); i++ {
		record := records[i]
		line := i + 1
		if isBlank(record) {
			continue
		}
		if len(record) <= dateIdx || len(record) <= closeIdx {
			return PriceSeries{}, apperrors.NewParsingError(fmt.Sprintf("line %d: missing columns", line), nil).
				WithContext("line", line)
		}

		date, err := parseDate(strings.TrimSpace(record[dateIdx]))
		if err != nil {
			return PriceSeries{}, apperrors.NewParsingError(fmt.Sprintf("line %d: date", line), err).
				WithContext("line", line)
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(record[closeIdx]), 64)
		if err != nil {
			return PriceSeries{}, apperrors.NewParsingError(fmt.Sprintf("line %d: close", line), err).
				WithContext("line", line)
		}

		date = date.UTC()
		if idx, seen := byDate[date]; seen {
			rows[idx].close = value
			continue
		}
		byDate[date] = len(rows)
		rows = append(rows, priceRow{date: date, close: value})
	}

	if len(rows) == 0 {
		return PriceSeries{}, apperrors.NewParsingError("price file contains only a header", nil)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].date.Before(rows[j].date)
	})

	series := PriceSeries{
		Symbol: symbol,
		Dates:  make([]time.Time, len(rows)),
		Close:  make([]float64, len(rows)),
	}
	for i, row := range rows {
		series.Dates[i] = row.date
		series.Close[i] = row.close
	}
	return series, nil
}

// AlignSeries keeps only the dates present in both series, in ascending order.
// Series without dates must already have equal lengths.
func AlignSeries(a, b PriceSeries) (PriceSeries, PriceSeries, error) {
	if len(a.Dates) == 0 || len(b.Dates) == 0 {
		if a.Len() != b.Len() {
			return PriceSeries{}, PriceSeries{}, apperrors.NewInvalidConfigurationError(
				"undated series must have equal lengths: %d vs %d", a.Len(), b.Len())
		}
		return a, b, nil
	}

	inB := make(map[time.Time]float64, len(b.Dates))
	for i, d := range b.Dates {
		inB[d] = b.Close[i]
	}

	outA := PriceSeries{Symbol: a.Symbol}
	outB := PriceSeries{Symbol: b.Symbol}
	for i, d := range a.Dates {
		closeB, ok := inB[d]
		if !ok {
			continue
		}
		outA.Dates = append(outA.Dates, d)
		outA.Close = append(outA.Close, a.Close[i])
		outB.Dates = append(outB.Dates, d)
		outB.Close = append(outB.Close, closeB)
	}

	if outA.Len() == 0 {
		return PriceSeries{}, PriceSeries{}, apperrors.NewEmptyResultError("%s and %s share no dates", a.Symbol, b.Symbol)
	}
	return outA, outB, nil
}

// parseDate attempts to parse date strings in multiple formats
func parseDate(dateStr string) (time.Time, error) {
	dateFormats := []string{
		"2006-01-02",
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05-07:00",
		"01/02/2006",
		"2006/01/02",
	}

	for _, format := range dateFormats {
		if date, err := time.Parse(format, dateStr); err == nil {
			return date, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %q", dateStr)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func isBlank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
