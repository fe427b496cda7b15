package datafeed

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"equity-backtest-lab/internal/domain"
)

// CSVFeed implements Feed over local CSV files, one file per symbol named
// <SYMBOL>.csv with header: timestamp,open,high,low,close,volume. Timestamps
// are RFC 3339 or unix milliseconds. Rows must be ordered by timestamp ASC.
type CSVFeed struct {
	dir string
}

// NewCSVFeed creates a feed reading from the given directory.
func NewCSVFeed(dir string) *CSVFeed {
	return &CSVFeed{dir: dir}
}

// Compile-time interface check.
var _ Feed = (*CSVFeed)(nil)

// History reads the symbol file and returns bars within [start, end].
// The interval argument is ignored: a CSV file carries a single interval.
func (f *CSVFeed) History(ctx context.Context, symbol, _ string, start, end time.Time) ([]*domain.Bar, error) {
	all, err := f.readAll(ctx, symbol)
	if err != nil {
		return nil, err
	}

	var bars []*domain.Bar
	for _, b := range all {
		if b.Timestamp.Before(start) || b.Timestamp.After(end) {
			continue
		}
		bars = append(bars, b)
	}

	if len(bars) == 0 {
		return nil, ErrNoData
	}
	return bars, nil
}

// LastPrice returns a quote built from the close of the last bar on file.
func (f *CSVFeed) LastPrice(ctx context.Context, symbol string) (*domain.Quote, error) {
	all, err := f.readAll(ctx, symbol)
	if err != nil {
		return nil, err
	}

	last := all[len(all)-1]
	return &domain.Quote{
		Symbol: symbol,
		Time:   last.Timestamp,
		Price:  last.Close,
	}, nil
}

func (f *CSVFeed) readAll(ctx context.Context, symbol string) ([]*domain.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(f.dir, symbol+".csv")
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoData
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if len(records) < 2 {
		return nil, ErrNoData
	}

	// Skip header row
	bars := make([]*domain.Bar, 0, len(records)-1)
	for i, rec := range records[1:] {
		b, err := parseBarRecord(symbol, rec)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		bars = append(bars, b)
	}

	return bars, nil
}

func parseBarRecord(symbol string, rec []string) (*domain.Bar, error) {
	if len(rec) != 6 {
		return nil, fmt.Errorf("expected 6 fields, got %d", len(rec))
	}

	ts, err := parseTimestamp(rec[0])
	if err != nil {
		return nil, fmt.Errorf("parse timestamp %q: %w", rec[0], err)
	}

	vals := make([]float64, 5)
	for i, s := range rec[1:] {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("parse field %q: %w", s, err)
		}
		vals[i] = v
	}

	return &domain.Bar{
		Symbol:    symbol,
		Timestamp: ts,
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    vals[4],
	}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
