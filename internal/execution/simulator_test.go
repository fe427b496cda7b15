package execution

import (
	"errors"
	"math"
	"testing"
	"time"

	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/series"
)

func mustSeries(t *testing.T, bars []domain.Bar) *series.BarSeries {
	t.Helper()
	s, err := series.New("AAPL", bars)
	if err != nil {
		t.Fatalf("series.New: %v", err)
	}
	return s
}

func dailySeries(t *testing.T, days int) *series.BarSeries {
	t.Helper()
	base := time.Date(2024, 12, 2, 0, 0, 0, 0, time.UTC)
	var bars []domain.Bar
	for i := 0; i < days; i++ {
		bars = append(bars, domain.Bar{
			Timestamp: base.AddDate(0, 0, i),
			Open:      99, High: 105, Low: 95, Close: 100,
			Volume: 1_000_000,
		})
	}
	return mustSeries(t, bars)
}

func buyIntent(at time.Time, qty int64, price float64) *domain.OrderIntent {
	return &domain.OrderIntent{
		Time: at, Side: domain.SideBuy, Qty: qty, Price: price,
		Value: domain.IntentValue(domain.SideBuy, qty, price),
	}
}

func sellIntent(at time.Time, qty int64, price float64) *domain.OrderIntent {
	return &domain.OrderIntent{
		Time: at, Side: domain.SideSell, Qty: qty, Price: price,
		Value: domain.IntentValue(domain.SideSell, qty, price),
	}
}

func TestSimulateFrictionless(t *testing.T) {
	s := dailySeries(t, 3)
	at := time.Date(2024, 12, 3, 0, 0, 0, 0, time.UTC)

	res, err := Simulate([]*domain.OrderIntent{buyIntent(at, 10, 100)}, s, domain.ExecutionConfigFrictionless)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if len(res.Rejections) != 0 {
		t.Fatalf("rejections = %v, want none", res.Rejections)
	}
	if len(res.Fills) != 1 {
		t.Fatalf("fills = %d, want 1", len(res.Fills))
	}

	f := res.Fills[0]
	if f.ExecutedPrice != 100 {
		t.Errorf("ExecutedPrice = %v, want 100 (no slippage)", f.ExecutedPrice)
	}
	if f.SlippageBps != 0 {
		t.Errorf("SlippageBps = %v, want 0", f.SlippageBps)
	}
	if !f.ExecutedTime.Equal(at) {
		t.Errorf("ExecutedTime = %s, want %s", f.ExecutedTime, at)
	}
}

func TestSimulateSlippageDirection(t *testing.T) {
	s := dailySeries(t, 3)
	at := time.Date(2024, 12, 3, 0, 0, 0, 0, time.UTC)
	cfg := domain.ExecutionConfig{
		ScenarioID:       "custom",
		SlippageBps:      10,
		MarginMultiplier: 1.0,
	}

	res, err := Simulate([]*domain.OrderIntent{
		buyIntent(at, 10, 100),
		sellIntent(at, 10, 100),
	}, s, cfg)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if len(res.Fills) != 2 {
		t.Fatalf("fills = %d, want 2", len(res.Fills))
	}

	// Slippage always moves against the trader.
	buy, sell := res.Fills[0], res.Fills[1]
	if math.Abs(buy.ExecutedPrice-100.1) > 1e-9 {
		t.Errorf("buy ExecutedPrice = %v, want 100.1", buy.ExecutedPrice)
	}
	if math.Abs(sell.ExecutedPrice-99.9) > 1e-9 {
		t.Errorf("sell ExecutedPrice = %v, want 99.9", sell.ExecutedPrice)
	}
	if buy.SlippageBps < 9.99 || buy.SlippageBps > 10.01 {
		t.Errorf("buy SlippageBps = %v, want ~10", buy.SlippageBps)
	}
	if sell.SlippageBps > -9.99 || sell.SlippageBps < -10.01 {
		t.Errorf("sell SlippageBps = %v, want ~-10", sell.SlippageBps)
	}
}

func TestSimulateSlippageCappedToBarRange(t *testing.T) {
	at := time.Date(2024, 12, 2, 0, 0, 0, 0, time.UTC)
	s := mustSeries(t, []domain.Bar{{
		Timestamp: at,
		Open:      100, High: 100.05, Low: 99.95, Close: 100,
		Volume: 1_000_000,
	}})
	cfg := domain.ExecutionConfig{
		ScenarioID:       "custom",
		SlippageBps:      25, // would push the price well past the bar range
		MarginMultiplier: 1.0,
	}

	res, err := Simulate([]*domain.OrderIntent{
		buyIntent(at, 10, 100),
		sellIntent(at, 10, 100),
	}, s, cfg)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}

	if got := res.Fills[0].ExecutedPrice; got != 100.05 {
		t.Errorf("buy capped at High: got %v, want 100.05", got)
	}
	if got := res.Fills[1].ExecutedPrice; got != 99.95 {
		t.Errorf("sell floored at Low: got %v, want 99.95", got)
	}
}

func TestSimulateNoMarketData(t *testing.T) {
	s := dailySeries(t, 3)
	// A Saturday with no bars.
	at := time.Date(2024, 12, 7, 0, 0, 0, 0, time.UTC)

	res, err := Simulate([]*domain.OrderIntent{buyIntent(at, 10, 100)}, s, domain.ExecutionConfigFrictionless)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if len(res.Fills) != 0 {
		t.Fatalf("fills = %d, want 0", len(res.Fills))
	}
	if len(res.Rejections) != 1 {
		t.Fatalf("rejections = %d, want 1", len(res.Rejections))
	}
	if res.Rejections[0].Reason != domain.RejectNoMarketData {
		t.Errorf("reason = %s, want NO_MARKET_DATA", res.Rejections[0].Reason)
	}
}

func TestSimulateLiquidityRejection(t *testing.T) {
	s := dailySeries(t, 3) // volume 1,000,000 per bar
	at := time.Date(2024, 12, 3, 0, 0, 0, 0, time.UTC)
	cfg := domain.ExecutionConfig{
		ScenarioID:           "custom",
		EnforceLiquidity:     true,
		MaxLiquidityFraction: 0.01,
		MarginMultiplier:     1.0,
	}

	res, err := Simulate([]*domain.OrderIntent{
		buyIntent(at, 10_000, 100), // exactly 1% of volume, passes
		buyIntent(at, 10_001, 100), // just over, rejected
	}, s, cfg)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if len(res.Fills) != 1 || res.Fills[0].Qty != 10_000 {
		t.Fatalf("fills = %v, want single fill of 10000", res.Fills)
	}
	if len(res.Rejections) != 1 || res.Rejections[0].Reason != domain.RejectInsufficientLiquidity {
		t.Fatalf("rejections = %v, want single INSUFFICIENT_LIQUIDITY", res.Rejections)
	}
	// No partial fill of the rejected intent.
	if res.Rejections[0].Intent.Qty != 10_001 {
		t.Errorf("rejected intent qty = %d, want 10001", res.Rejections[0].Intent.Qty)
	}
}

func TestSimulateZeroVolumeNeverPassesLiquidity(t *testing.T) {
	at := time.Date(2024, 12, 2, 0, 0, 0, 0, time.UTC)
	s := mustSeries(t, []domain.Bar{{
		Timestamp: at,
		Open:      100, High: 101, Low: 99, Close: 100,
		Volume: 0,
	}})
	cfg := domain.ExecutionConfig{
		ScenarioID:           "custom",
		EnforceLiquidity:     true,
		MaxLiquidityFraction: 1.0,
		MarginMultiplier:     1.0,
	}

	res, err := Simulate([]*domain.OrderIntent{buyIntent(at, 1, 100)}, s, cfg)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if len(res.Rejections) != 1 || res.Rejections[0].Reason != domain.RejectInsufficientLiquidity {
		t.Fatalf("rejections = %v, want INSUFFICIENT_LIQUIDITY", res.Rejections)
	}
}

func TestSimulateMarketHours(t *testing.T) {
	day := time.Date(2024, 12, 2, 0, 0, 0, 0, time.UTC)
	// Intraday bars: pre-market, in-session, post-market.
	s := mustSeries(t, []domain.Bar{
		{Timestamp: day.Add(8 * time.Hour), Open: 100, High: 101, Low: 99, Close: 100, Volume: 1_000_000},
		{Timestamp: day.Add(10 * time.Hour), Open: 100, High: 101, Low: 99, Close: 100, Volume: 1_000_000},
		{Timestamp: day.Add(17 * time.Hour), Open: 100, High: 101, Low: 99, Close: 100, Volume: 1_000_000},
	})
	cfg := domain.ExecutionConfig{
		ScenarioID:         "custom",
		EnforceMarketHours: true,
		MarginMultiplier:   1.0,
	}

	res, err := Simulate([]*domain.OrderIntent{
		buyIntent(day.Add(7*time.Hour), 10, 100),  // resolves to 08:00 bar, pre-market
		buyIntent(day.Add(10*time.Hour), 10, 100), // 10:00 bar, in session
		buyIntent(day.Add(17*time.Hour), 10, 100), // 17:00 bar, post-market
	}, s, cfg)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if len(res.Fills) != 1 {
		t.Fatalf("fills = %d, want 1", len(res.Fills))
	}
	if !res.Fills[0].ExecutedTime.Equal(day.Add(10 * time.Hour)) {
		t.Errorf("ExecutedTime = %s, want 10:00 bar", res.Fills[0].ExecutedTime)
	}
	if len(res.Rejections) != 2 {
		t.Fatalf("rejections = %d, want 2", len(res.Rejections))
	}
	for _, r := range res.Rejections {
		if r.Reason != domain.RejectOutsideMarketHours {
			t.Errorf("reason = %s, want OUTSIDE_MARKET_HOURS", r.Reason)
		}
	}
}

func TestSimulateFillsOrderedByExecutedTime(t *testing.T) {
	s := dailySeries(t, 5)
	d := func(day int) time.Time {
		return time.Date(2024, 12, day, 0, 0, 0, 0, time.UTC)
	}

	res, err := Simulate([]*domain.OrderIntent{
		buyIntent(d(5), 10, 100),
		buyIntent(d(2), 10, 100),
		buyIntent(d(4), 10, 100),
	}, s, domain.ExecutionConfigFrictionless)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if len(res.Fills) != 3 {
		t.Fatalf("fills = %d, want 3", len(res.Fills))
	}
	for i := 1; i < len(res.Fills); i++ {
		if res.Fills[i].ExecutedTime.Before(res.Fills[i-1].ExecutedTime) {
			t.Fatalf("fills out of executed-time order at %d", i)
		}
	}
}

func TestSimulateRejectsInvalidIntent(t *testing.T) {
	s := dailySeries(t, 3)
	at := time.Date(2024, 12, 3, 0, 0, 0, 0, time.UTC)

	bad := buyIntent(at, 10, 100)
	bad.Value = 42 // breaks the value/notional identity

	_, err := Simulate([]*domain.OrderIntent{bad}, s, domain.ExecutionConfigFrictionless)
	if !errors.Is(err, domain.ErrSchema) {
		t.Errorf("Simulate = %v, want ErrSchema", err)
	}
}

func TestSimulateRejectsInvalidConfig(t *testing.T) {
	s := dailySeries(t, 3)
	cfg := domain.ExecutionConfig{
		ScenarioID:       "custom",
		SlippageBps:      -1,
		MarginMultiplier: 1.0,
	}

	_, err := Simulate(nil, s, cfg)
	if !errors.Is(err, domain.ErrSchema) {
		t.Errorf("Simulate = %v, want ErrSchema", err)
	}
}

func TestSimulateDeterministic(t *testing.T) {
	s := dailySeries(t, 5)
	at := time.Date(2024, 12, 3, 0, 0, 0, 0, time.UTC)
	intents := []*domain.OrderIntent{
		buyIntent(at, 10, 100),
		sellIntent(at.AddDate(0, 0, 1), 5, 101),
	}

	r1, err := Simulate(intents, s, domain.ExecutionConfigRealistic)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	r2, err := Simulate(intents, s, domain.ExecutionConfigRealistic)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}

	if len(r1.Fills) != len(r2.Fills) || len(r1.Rejections) != len(r2.Rejections) {
		t.Fatal("result shapes differ across identical runs")
	}
	for i := range r1.Fills {
		if *r1.Fills[i] != *r2.Fills[i] {
			t.Fatalf("fill %d differs across identical runs", i)
		}
	}
}
