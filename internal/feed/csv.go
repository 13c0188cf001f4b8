package feed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/quantbench/internal/models"
)

// CSVSource loads bars from a local CSV file. The file needs a header row
// with at least timestamp, open, high, low, close and volume columns;
// column order is taken from the header. Timestamps parse as RFC3339 or as
// a plain 2006-01-02 date.
type CSVSource struct {
	path   string
	logger *logrus.Logger
}

// NewCSVSource creates a CSV-backed bar source
func NewCSVSource(path string, logger *logrus.Logger) (*CSVSource, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: csv path is required", models.ErrInvalidConfig)
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &CSVSource{path: path, logger: logger}, nil
}

// Name returns the name of the data source
func (s *CSVSource) Name() string {
	return "csv"
}

// FetchBars reads, validates and normalizes the file's bars. Rows that fail
// validation are logged and dropped rather than aborting the load. Bars
// outside [start, end) are filtered out; zero times disable that bound.
func (s *CSVSource) FetchBars(ctx context.Context, symbol string, start, end time.Time) ([]*models.PriceBar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	cols, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	var bars []*models.PriceBar
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read csv line %d: %w", line, err)
		}

		bar, err := parseBar(record, cols, symbol)
		if err != nil {
			s.logger.WithField("line", line).Warnf("Dropping csv row: %v", err)
			continue
		}
		if err := bar.Validate(); err != nil {
			s.logger.WithField("line", line).Warnf("Dropping invalid bar: %v", err)
			continue
		}
		if !start.IsZero() && bar.Timestamp.Before(start) {
			continue
		}
		if !end.IsZero() && !bar.Timestamp.Before(end) {
			continue
		}
		bars = append(bars, bar)
	}

	return normalizeBars(bars), nil
}

type columnIndex struct {
	timestamp int
	open      int
	high      int
	low       int
	close     int
	volume    int
	symbol    int
}

func mapColumns(header []string) (columnIndex, error) {
	cols := columnIndex{timestamp: -1, open: -1, high: -1, low: -1, close: -1, volume: -1, symbol: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "timestamp", "time", "date":
			cols.timestamp = i
		case "open":
			cols.open = i
		case "high":
			cols.high = i
		case "low":
			cols.low = i
		case "close":
			cols.close = i
		case "volume":
			cols.volume = i
		case "symbol":
			cols.symbol = i
		}
	}
	if cols.timestamp < 0 || cols.open < 0 || cols.high < 0 || cols.low < 0 || cols.close < 0 || cols.volume < 0 {
		return cols, fmt.Errorf("%w: csv header must include timestamp, open, high, low, close, volume", models.ErrInvalidConfig)
	}
	return cols, nil
}

func parseBar(record []string, cols columnIndex, symbol string) (*models.PriceBar, error) {
	ts, err := parseTimestamp(record[cols.timestamp])
	if err != nil {
		return nil, err
	}

	open, err := decimal.NewFromString(record[cols.open])
	if err != nil {
		return nil, fmt.Errorf("bad open %q: %w", record[cols.open], err)
	}
	high, err := decimal.NewFromString(record[cols.high])
	if err != nil {
		return nil, fmt.Errorf("bad high %q: %w", record[cols.high], err)
	}
	low, err := decimal.NewFromString(record[cols.low])
	if err != nil {
		return nil, fmt.Errorf("bad low %q: %w", record[cols.low], err)
	}
	close, err := decimal.NewFromString(record[cols.close])
	if err != nil {
		return nil, fmt.Errorf("bad close %q: %w", record[cols.close], err)
	}
	volume, err := decimal.NewFromString(record[cols.volume])
	if err != nil {
		return nil, fmt.Errorf("bad volume %q: %w", record[cols.volume], err)
	}

	if cols.symbol >= 0 && record[cols.symbol] != "" {
		symbol = record[cols.symbol]
	}

	return &models.PriceBar{
		Symbol:    symbol,
		Timestamp: ts,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    volume,
	}, nil
}

func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("bad timestamp %q", value)
}
