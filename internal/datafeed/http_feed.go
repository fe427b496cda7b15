package datafeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"equity-backtest-lab/internal/domain"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPFeed implements Feed against a JSON HTTP market data provider.
type HTTPFeed struct {
	endpoint    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// FeedOption configures HTTPFeed.
type FeedOption func(*HTTPFeed)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) FeedOption {
	return func(f *HTTPFeed) {
		f.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) FeedOption {
	return func(f *HTTPFeed) {
		f.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) FeedOption {
	return func(f *HTTPFeed) {
		f.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) FeedOption {
	return func(f *HTTPFeed) {
		f.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) FeedOption {
	return func(f *HTTPFeed) {
		f.client = client
	}
}

// NewHTTPFeed creates a new HTTP market data feed.
func NewHTTPFeed(endpoint string, opts ...FeedOption) *HTTPFeed {
	f := &HTTPFeed{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Compile-time interface check.
var _ Feed = (*HTTPFeed)(nil)

// get performs a GET request with retries and exponential backoff,
// decoding the JSON body into result.
func (f *HTTPFeed) get(ctx context.Context, path string, query url.Values, result interface{}) error {
	u := f.endpoint + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	delay := f.retryDelay
	var lastErr error

	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * f.backoffMult)
			if delay > f.maxDelay {
				delay = f.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := f.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		// Handle rate limiting
		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode == http.StatusNotFound {
			// Not found is not retried
			return ErrNoData
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
			continue
		}

		if err := json.Unmarshal(body, result); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// historyBar is the raw provider response item for the history endpoint.
type historyBar struct {
	Timestamp int64   `json:"t"` // unix milliseconds
	Open      float64 `json:"o"`
	High      float64 `json:"h"`
	Low       float64 `json:"l"`
	Close     float64 `json:"c"`
	Volume    float64 `json:"v"`
}

type historyResult struct {
	Symbol string       `json:"symbol"`
	Bars   []historyBar `json:"bars"`
}

// History retrieves OHLCV bars for [start, end] at the given interval.
func (f *HTTPFeed) History(ctx context.Context, symbol, interval string, start, end time.Time) ([]*domain.Bar, error) {
	query := url.Values{}
	query.Set("symbol", symbol)
	query.Set("interval", interval)
	query.Set("start", fmt.Sprintf("%d", start.UnixMilli()))
	query.Set("end", fmt.Sprintf("%d", end.UnixMilli()))

	var result historyResult
	if err := f.get(ctx, "/v1/history", query, &result); err != nil {
		return nil, err
	}

	if len(result.Bars) == 0 {
		return nil, ErrNoData
	}

	bars := make([]*domain.Bar, len(result.Bars))
	for i, b := range result.Bars {
		bars[i] = &domain.Bar{
			Symbol:    symbol,
			Timestamp: time.UnixMilli(b.Timestamp).UTC(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		}
	}

	return bars, nil
}

// quoteResult is the raw provider response for the quote endpoint.
type quoteResult struct {
	Symbol    string  `json:"symbol"`
	Timestamp int64   `json:"t"` // unix milliseconds
	Price     float64 `json:"p"`
}

// LastPrice retrieves the most recent trade quote for a symbol.
func (f *HTTPFeed) LastPrice(ctx context.Context, symbol string) (*domain.Quote, error) {
	query := url.Values{}
	query.Set("symbol", symbol)

	var result quoteResult
	if err := f.get(ctx, "/v1/quote", query, &result); err != nil {
		return nil, err
	}

	if result.Price <= 0 {
		return nil, ErrNoData
	}

	return &domain.Quote{
		Symbol: symbol,
		Time:   time.UnixMilli(result.Timestamp).UTC(),
		Price:  result.Price,
	}, nil
}
