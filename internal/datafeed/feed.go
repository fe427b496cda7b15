// Package datafeed provides market data access: historical OHLCV bars and
// last trade prices. Implementations cover an HTTP JSON provider, local CSV
// files, and a WebSocket quote stream.
package datafeed

import (
	"context"
	"errors"
	"time"

	"equity-backtest-lab/internal/domain"
)

// ErrNoData indicates the provider returned no bars for the request.
var ErrNoData = errors.New("no market data for request")

// Feed is the capability surface the pipeline needs from a market data
// provider. History returns OHLCV bars for [start, end] at the given
// interval, ordered by timestamp ASC. LastPrice returns the most recent
// trade quote for a symbol.
type Feed interface {
	History(ctx context.Context, symbol, interval string, start, end time.Time) ([]*domain.Bar, error)
	LastPrice(ctx context.Context, symbol string) (*domain.Quote, error)
}
