package backtest

import (
	"context"
	"time"

	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/execution"
	"equity-backtest-lab/internal/idhash"
	"equity-backtest-lab/internal/metrics"
	"equity-backtest-lab/internal/series"
	"equity-backtest-lab/internal/strategy"
)

// RunReport holds everything one backtest run produced: the final result,
// the fills applied, the rejection log, and derived performance metrics.
type RunReport struct {
	RunID      string
	Symbol     string
	StrategyID string
	ScenarioID string

	Result     *domain.BacktestResult
	Intents    []*domain.OrderIntent
	Fills      []*domain.Fill
	Rejections []*domain.RejectedIntent
	Summary    *metrics.Summary
}

// Record converts the report into a persistable BacktestRecord.
func (r *RunReport) Record(now time.Time) *domain.BacktestRecord {
	return &domain.BacktestRecord{
		RunID:              r.RunID,
		Symbol:             r.Symbol,
		StrategyID:         r.StrategyID,
		ScenarioID:         r.ScenarioID,
		InitialCash:        r.Result.InitialCash,
		EndingCash:         r.Result.EndingCash,
		RemainingShares:    r.Result.RemainingShares,
		RemainingValueMark: r.Result.RemainingValueMark,
		PnL:                r.Result.PnL,
		ReturnPct:          r.Result.ReturnPct,
		FillCount:          len(r.Fills),
		RejectionCount:     len(r.Rejections),
		CreatedAt:          now.UTC(),
	}
}

// Runner wires a strategy through the execution simulator into the engine.
// Each Run owns its position state exclusively; concurrent Runs on one
// Runner are independent.
type Runner struct {
	cfg domain.ExecutionConfig
}

// NewRunner creates a backtest runner for an execution scenario.
func NewRunner(cfg domain.ExecutionConfig) *Runner {
	return &Runner{cfg: cfg}
}

// Run executes one backtest:
//  1. The strategy generates order intents from the validated series.
//  2. The simulator resolves intents into fills and rejections.
//  3. The engine folds fills into the final result.
//  4. Performance metrics are derived from fills and result.
func (r *Runner) Run(ctx context.Context, strat strategy.Strategy, bars *series.BarSeries, initialCash float64) (*RunReport, error) {
	intents, err := strat.GenerateIntents(ctx, bars, initialCash)
	if err != nil {
		return nil, err
	}

	simResult, err := execution.Simulate(intents, bars, r.cfg)
	if err != nil {
		return nil, err
	}

	result, err := NewEngine(r.cfg).Run(simResult.Fills, bars, initialCash)
	if err != nil {
		return nil, err
	}

	return &RunReport{
		RunID:      idhash.ComputeRunID(bars.Symbol(), strat.ID(), r.cfg.ScenarioID, initialCash),
		Symbol:     bars.Symbol(),
		StrategyID: strat.ID(),
		ScenarioID: r.cfg.ScenarioID,
		Result:     result,
		Intents:    intents,
		Fills:      simResult.Fills,
		Rejections: simResult.Rejections,
		Summary:    metrics.Summarize(simResult.Fills, result),
	}, nil
}
