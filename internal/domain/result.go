package domain

import "time"

// PositionState tracks cash and share inventory during one backtest run.
// SharesHeld never goes negative; Cash goes negative only in
// margin-tolerant runs (MarginMultiplier > 1).
type PositionState struct {
	Cash       float64 // available cash
	SharesHeld int64   // current inventory, >= 0
}

// BacktestResult holds the final performance figures of one run.
// Identity: PnL = EndingCash + RemainingValueMark - InitialCash.
type BacktestResult struct {
	InitialCash        float64 // starting cash
	EndingCash         float64 // cash after all fills applied
	RemainingShares    int64   // unsold inventory
	RemainingValueMark float64 // RemainingShares * last known close
	PnL                float64 // total profit and loss
	ReturnPct          float64 // PnL / InitialCash
}

// BacktestRecord is the persistable row for one completed run.
// Corresponds to the backtest_runs table.
type BacktestRecord struct {
	RunID      string // deterministic hash
	Symbol     string // instrument symbol
	StrategyID string // strategy identifier (includes parameters)
	ScenarioID string // execution scenario

	InitialCash        float64
	EndingCash         float64
	RemainingShares    int64
	RemainingValueMark float64
	PnL                float64
	ReturnPct          float64

	FillCount      int // fills applied
	RejectionCount int // intents dropped by the simulator

	CreatedAt time.Time // record creation time (UTC)
}
