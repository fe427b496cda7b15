// Package stub provides an in-memory datafeed.Feed for testing.
package stub

import (
	"context"
	"time"

	"equity-backtest-lab/internal/datafeed"
	"equity-backtest-lab/internal/domain"
)

// Feed implements datafeed.Feed for testing.
type Feed struct {
	Bars   map[string][]*domain.Bar
	Quotes map[string]*domain.Quote
}

// NewFeed creates a new stub feed.
func NewFeed() *Feed {
	return &Feed{
		Bars:   make(map[string][]*domain.Bar),
		Quotes: make(map[string]*domain.Quote),
	}
}

// Compile-time interface check.
var _ datafeed.Feed = (*Feed)(nil)

// History returns stored bars for the symbol within [start, end].
// The interval argument is ignored.
func (f *Feed) History(_ context.Context, symbol, _ string, start, end time.Time) ([]*domain.Bar, error) {
	all, ok := f.Bars[symbol]
	if !ok {
		return nil, datafeed.ErrNoData
	}

	var bars []*domain.Bar
	for _, b := range all {
		if b.Timestamp.Before(start) || b.Timestamp.After(end) {
			continue
		}
		bars = append(bars, b)
	}

	if len(bars) == 0 {
		return nil, datafeed.ErrNoData
	}
	return bars, nil
}

// LastPrice returns the stored quote for the symbol.
func (f *Feed) LastPrice(_ context.Context, symbol string) (*domain.Quote, error) {
	q, ok := f.Quotes[symbol]
	if !ok {
		return nil, datafeed.ErrNoData
	}
	return q, nil
}

// AddBars adds bars for a symbol to the stub store.
func (f *Feed) AddBars(symbol string, bars []*domain.Bar) {
	f.Bars[symbol] = append(f.Bars[symbol], bars...)
}

// SetQuote sets the last quote for a symbol.
func (f *Feed) SetQuote(q *domain.Quote) {
	f.Quotes[q.Symbol] = q
}
