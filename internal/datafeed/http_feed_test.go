package datafeed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPFeedHistory(t *testing.T) {
	ts := time.Date(2024, 12, 2, 0, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/history" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("symbol") != "AAPL" || q.Get("interval") != "1d" {
			t.Errorf("query = %v", q)
		}
		if q.Get("start") == "" || q.Get("end") == "" {
			t.Error("missing start/end")
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"symbol": "AAPL",
			"bars": [
				{"t": 1733097600000, "o": 99, "h": 102, "l": 97, "c": 100, "v": 1500000},
				{"t": 1733184000000, "o": 100, "h": 103, "l": 98, "c": 101.5, "v": 1600000}
			]
		}`))
	}))
	defer srv.Close()

	feed := NewHTTPFeed(srv.URL)
	bars, err := feed.History(context.Background(), "AAPL", "1d", ts, ts.AddDate(0, 0, 5))
	if err != nil {
		t.Fatalf("History: %v", err)
	}

	if len(bars) != 2 {
		t.Fatalf("bars = %d, want 2", len(bars))
	}
	if bars[0].Symbol != "AAPL" {
		t.Errorf("Symbol = %q", bars[0].Symbol)
	}
	if !bars[0].Timestamp.Equal(time.UnixMilli(1733097600000).UTC()) {
		t.Errorf("Timestamp = %s", bars[0].Timestamp)
	}
	if bars[0].Close != 100 || bars[1].Close != 101.5 {
		t.Errorf("closes = %v, %v", bars[0].Close, bars[1].Close)
	}
}

func TestHTTPFeedHistoryEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol": "AAPL", "bars": []}`))
	}))
	defer srv.Close()

	feed := NewHTTPFeed(srv.URL)
	_, err := feed.History(context.Background(), "AAPL", "1d", time.Now().Add(-time.Hour), time.Now())
	if !errors.Is(err, ErrNoData) {
		t.Errorf("History = %v, want ErrNoData", err)
	}
}

func TestHTTPFeedNotFoundNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	feed := NewHTTPFeed(srv.URL, WithMaxRetries(3), WithRetryDelay(time.Millisecond))
	_, err := feed.LastPrice(context.Background(), "NOPE")
	if !errors.Is(err, ErrNoData) {
		t.Errorf("LastPrice = %v, want ErrNoData", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (404 is not retried)", calls.Load())
	}
}

func TestHTTPFeedRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"symbol": "AAPL", "t": 1733097600000, "p": 150.25}`))
	}))
	defer srv.Close()

	feed := NewHTTPFeed(srv.URL, WithMaxRetries(3), WithRetryDelay(time.Millisecond), WithMaxDelay(5*time.Millisecond))
	quote, err := feed.LastPrice(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("LastPrice: %v", err)
	}
	if quote.Price != 150.25 {
		t.Errorf("Price = %v, want 150.25", quote.Price)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3 (two 429s then success)", calls.Load())
	}
}

func TestHTTPFeedExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	feed := NewHTTPFeed(srv.URL, WithMaxRetries(2), WithRetryDelay(time.Millisecond))
	_, err := feed.LastPrice(context.Background(), "AAPL")
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3 (initial + 2 retries)", calls.Load())
	}
}

func TestHTTPFeedInvalidQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol": "AAPL", "t": 1733097600000, "p": 0}`))
	}))
	defer srv.Close()

	feed := NewHTTPFeed(srv.URL)
	_, err := feed.LastPrice(context.Background(), "AAPL")
	if !errors.Is(err, ErrNoData) {
		t.Errorf("LastPrice = %v, want ErrNoData for non-positive price", err)
	}
}

func TestHTTPFeedContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	feed := NewHTTPFeed(srv.URL, WithMaxRetries(5), WithRetryDelay(time.Second))
	_, err := feed.LastPrice(ctx, "AAPL")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("LastPrice = %v, want context.Canceled", err)
	}
}
