package domain

import "time"

// IntentRecord is the persistable row for one order intent of a run.
// Corresponds to the order_intents table.
type IntentRecord struct {
	IntentID string // deterministic hash
	RunID    string // owning backtest run
	Symbol   string // instrument symbol

	Time  time.Time
	Side  Side
	Qty   int64
	Price float64
	Value float64
}

// FillRecord is the persistable row for one realized fill of a run.
// Corresponds to the fills table.
type FillRecord struct {
	FillID string // deterministic hash
	RunID  string // owning backtest run
	Symbol string // instrument symbol

	Time          time.Time // requested time
	Side          Side
	Qty           int64
	Price         float64   // intended price
	ExecutedTime  time.Time // resolved bar timestamp
	ExecutedPrice float64   // price after slippage
	SlippageBps   float64   // realized slippage, signed
}
