package backtest

import (
	"context"
	"testing"
	"time"

	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/series"
	"equity-backtest-lab/internal/strategy"
)

func ladderSeries(t *testing.T) *series.BarSeries {
	t.Helper()

	start := time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)

	var bars []domain.Bar
	price := 100.0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		bars = append(bars, domain.Bar{
			Timestamp: d,
			Open:      price, High: price + 2, Low: price - 2, Close: price,
			Volume: 5_000_000,
		})
		price += 0.25
	}

	s, err := series.New("AAPL", bars)
	if err != nil {
		t.Fatalf("series.New: %v", err)
	}
	return s
}

func TestRunnerEndToEnd(t *testing.T) {
	s := ladderSeries(t)
	strat := strategy.NewChristmasLadderStrategy(2024, 3, 2, "10:30", 1.0)
	runner := NewRunner(domain.ExecutionConfigFrictionless)

	report, err := runner.Run(context.Background(), strat, s, 10_000)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Symbol != "AAPL" {
		t.Errorf("Symbol = %q", report.Symbol)
	}
	if report.StrategyID != strat.ID() {
		t.Errorf("StrategyID = %q, want %q", report.StrategyID, strat.ID())
	}
	if report.ScenarioID != domain.ScenarioFrictionless {
		t.Errorf("ScenarioID = %q", report.ScenarioID)
	}
	if len(report.RunID) != 64 {
		t.Errorf("RunID = %q, want 64-char hash", report.RunID)
	}

	// Frictionless: every intent fills, nothing is rejected.
	if len(report.Intents) != 5 {
		t.Errorf("intents = %d, want 3 buys + 2 sells", len(report.Intents))
	}
	if len(report.Fills) != len(report.Intents) {
		t.Errorf("fills = %d, want %d", len(report.Fills), len(report.Intents))
	}
	if len(report.Rejections) != 0 {
		t.Errorf("rejections = %v, want none", report.Rejections)
	}

	// The ladder fully distributes its position.
	if report.Result.RemainingShares != 0 {
		t.Errorf("RemainingShares = %d, want 0", report.Result.RemainingShares)
	}
	if report.Summary == nil || report.Summary.TotalTrades != 2 {
		t.Errorf("Summary = %+v, want 2 sells", report.Summary)
	}
}

func TestRunnerDeterministic(t *testing.T) {
	s := ladderSeries(t)
	strat := strategy.NewChristmasLadderStrategy(2024, 3, 2, "10:30", 1.0)
	runner := NewRunner(domain.ExecutionConfigRealistic)

	r1, err := runner.Run(context.Background(), strat, s, 10_000)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	r2, err := runner.Run(context.Background(), strat, s, 10_000)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if r1.RunID != r2.RunID {
		t.Error("run IDs differ across identical runs")
	}
	if *r1.Result != *r2.Result {
		t.Errorf("results differ: %+v vs %+v", r1.Result, r2.Result)
	}
	if len(r1.Fills) != len(r2.Fills) {
		t.Fatalf("fill counts differ: %d vs %d", len(r1.Fills), len(r2.Fills))
	}
	for i := range r1.Fills {
		if *r1.Fills[i] != *r2.Fills[i] {
			t.Fatalf("fill %d differs across identical runs", i)
		}
	}
}

func TestRunnerScenarioChangesRunID(t *testing.T) {
	s := ladderSeries(t)
	strat := strategy.NewChristmasLadderStrategy(2024, 3, 2, "10:30", 1.0)

	r1, err := NewRunner(domain.ExecutionConfigFrictionless).Run(context.Background(), strat, s, 10_000)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	r2, err := NewRunner(domain.ExecutionConfigPessimistic).Run(context.Background(), strat, s, 10_000)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if r1.RunID == r2.RunID {
		t.Error("different scenarios produced the same run ID")
	}
}

func TestRunReportRecord(t *testing.T) {
	s := ladderSeries(t)
	strat := strategy.NewChristmasLadderStrategy(2024, 3, 2, "10:30", 1.0)

	report, err := NewRunner(domain.ExecutionConfigFrictionless).Run(context.Background(), strat, s, 10_000)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.FixedZone("EST", -5*3600))
	rec := report.Record(now)

	if rec.RunID != report.RunID || rec.Symbol != "AAPL" {
		t.Errorf("record identity fields wrong: %+v", rec)
	}
	if rec.FillCount != len(report.Fills) {
		t.Errorf("FillCount = %d, want %d", rec.FillCount, len(report.Fills))
	}
	if rec.RejectionCount != 0 {
		t.Errorf("RejectionCount = %d, want 0", rec.RejectionCount)
	}
	if rec.PnL != report.Result.PnL || rec.ReturnPct != report.Result.ReturnPct {
		t.Errorf("record result fields wrong: %+v", rec)
	}
	if rec.CreatedAt.Location() != time.UTC {
		t.Errorf("CreatedAt not normalized to UTC: %s", rec.CreatedAt)
	}
}
