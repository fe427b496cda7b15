package reporting

import "time"

// Report summarizes stored backtest runs.
type Report struct {
	// Metadata
	GeneratedAt   time.Time
	SymbolCount   int
	StrategyCount int
	ScenarioCount int

	// Run results (sorted by symbol, strategy_id, scenario_id)
	Runs []RunRow

	// Scenario sensitivity (frictionless vs realistic vs pessimistic vs stressed)
	ScenarioSensitivity []ScenarioSensitivityRow

	// Fill activity per run
	FillActivity []FillActivityRow
}

// RunRow represents one row in the run results table.
type RunRow struct {
	RunID          string
	Symbol         string
	StrategyID     string
	ScenarioID     string
	InitialCash    float64
	EndingCash     float64
	PnL            float64
	ReturnPct      float64
	FillCount      int
	RejectionCount int
}

// ScenarioSensitivityRow compares the return of one (symbol, strategy)
// pair across execution scenarios.
type ScenarioSensitivityRow struct {
	Symbol             string
	StrategyID         string
	FrictionlessReturn float64
	RealisticReturn    float64
	PessimisticReturn  float64
	StressedReturn     float64
	FrictionDragPct    float64 // frictionless return minus pessimistic return, in percentage points
}

// FillActivityRow summarizes fills for one run.
type FillActivityRow struct {
	RunID         string
	Symbol        string
	BuyCount      int
	SellCount     int
	TotalNotional float64
	AvgSlippage   float64 // mean absolute realized slippage in bps
}
