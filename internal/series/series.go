// Package series turns raw OHLCV bars into a validated, immutable
// in-memory series. Validation happens once here, at the pipeline
// boundary; downstream stages assume a well-formed series.
package series

import (
	"fmt"
	"math"
	"time"

	"equity-backtest-lab/internal/domain"
)

// BarSeries is a validated, timestamp-ordered sequence of bars for one
// symbol. Immutable after construction.
type BarSeries struct {
	symbol string
	bars   []domain.Bar
}

// New validates raw bars and builds a BarSeries. It checks, in one pass:
//   - series is non-empty
//   - timestamps are strictly increasing (sorted, no duplicates)
//   - all numeric fields are finite, High >= Low, Volume >= 0
//   - every bar carries the expected symbol (empty bar symbol is filled in)
//
// Violations wrap domain.ErrSchema. The input slice is copied, never
// retained.
func New(symbol string, bars []domain.Bar) (*BarSeries, error) {
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", domain.ErrSchema)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: empty bar series for %s", domain.ErrSchema, symbol)
	}

	owned := make([]domain.Bar, len(bars))
	copy(owned, bars)

	var prev time.Time
	for i := range owned {
		b := &owned[i]
		if b.Symbol == "" {
			b.Symbol = symbol
		} else if b.Symbol != symbol {
			return nil, fmt.Errorf("%w: bar %d has symbol %q, want %q",
				domain.ErrSchema, i, b.Symbol, symbol)
		}
		if b.Timestamp.IsZero() {
			return nil, fmt.Errorf("%w: bar %d has zero timestamp", domain.ErrSchema, i)
		}
		if i > 0 && !b.Timestamp.After(prev) {
			return nil, fmt.Errorf("%w: index not sorted/unique at bar %d (%s after %s)",
				domain.ErrSchema, i, b.Timestamp, prev)
		}
		prev = b.Timestamp

		for _, v := range []float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: bar %d (%s) has non-finite value",
					domain.ErrSchema, i, b.Timestamp)
			}
		}
		if b.High < b.Low {
			return nil, fmt.Errorf("%w: bar %d (%s) has High %.6f < Low %.6f",
				domain.ErrSchema, i, b.Timestamp, b.High, b.Low)
		}
		if b.Volume < 0 {
			return nil, fmt.Errorf("%w: bar %d (%s) has negative volume",
				domain.ErrSchema, i, b.Timestamp)
		}
	}

	return &BarSeries{symbol: symbol, bars: owned}, nil
}

// Symbol returns the series symbol.
func (s *BarSeries) Symbol() string { return s.symbol }

// Len returns the number of bars.
func (s *BarSeries) Len() int { return len(s.bars) }

// Bars returns a copy of the underlying bars.
func (s *BarSeries) Bars() []domain.Bar {
	out := make([]domain.Bar, len(s.bars))
	copy(out, s.bars)
	return out
}

// At returns the bar at index i.
func (s *BarSeries) At(i int) domain.Bar { return s.bars[i] }

// Range returns the first and last bar timestamps.
func (s *BarSeries) Range() (first, last time.Time) {
	return s.bars[0].Timestamp, s.bars[len(s.bars)-1].Timestamp
}

// LastClose returns the last known close price and its timestamp. This is
// the mark-to-market price for unsold inventory.
func (s *BarSeries) LastClose() (float64, time.Time) {
	last := s.bars[len(s.bars)-1]
	return last.Close, last.Timestamp
}

// SessionDates returns the unique calendar days present in the series,
// ascending. Each returned time is midnight of the session day.
func (s *BarSeries) SessionDates() []time.Time {
	var dates []time.Time
	for _, b := range s.bars {
		d := DayOf(b.Timestamp)
		if len(dates) == 0 || dates[len(dates)-1].Before(d) {
			dates = append(dates, d)
		}
	}
	return dates
}

// BarsOn returns the bars whose timestamp falls on the given calendar day,
// in series order. Returns nil when the day has no bars.
func (s *BarSeries) BarsOn(day time.Time) []domain.Bar {
	d := DayOf(day)
	var out []domain.Bar
	for _, b := range s.bars {
		if DayOf(b.Timestamp).Equal(d) {
			out = append(out, b)
		}
	}
	return out
}

// DayOf truncates a timestamp to midnight of its calendar day, preserving
// the location.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
