// Package backtest replays realized fills into cash/inventory state and
// reports final performance figures.
package backtest

import (
	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/series"
)

// Engine folds fills in chronological order over a position state. It is a
// pure reduction: no hidden state between runs, identical inputs yield
// identical results.
type Engine struct {
	cfg domain.ExecutionConfig
}

// NewEngine creates an engine using the given execution configuration.
// Only MarginMultiplier is consulted here; the microstructure knobs belong
// to the simulator.
func NewEngine(cfg domain.ExecutionConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Run replays fills against an initial cash balance and marks remaining
// inventory at the series' last known close.
//
// Fills must already be ordered by ExecutedTime; out-of-order input fails
// with ErrUnorderedFills. A BUY that would drive cash below the account
// floor fails the whole run with *InsufficientCashError; a SELL exceeding
// held shares fails with *InsufficientInventoryError. On failure the
// partially applied state is discarded, never returned.
func (e *Engine) Run(fills []*domain.Fill, bars *series.BarSeries, initialCash float64) (*domain.BacktestResult, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}

	for i := 1; i < len(fills); i++ {
		if fills[i].ExecutedTime.Before(fills[i-1].ExecutedTime) {
			return nil, ErrUnorderedFills
		}
	}

	// Cash account (multiplier 1) floors at zero; a margin-tolerant run may
	// draw down to the borrowed fraction of initial cash.
	floor := -(e.cfg.MarginMultiplier - 1) * initialCash

	state := domain.PositionState{Cash: initialCash}
	for _, f := range fills {
		cost := float64(f.Qty) * f.ExecutedPrice
		switch f.Side {
		case domain.SideBuy:
			if state.Cash-cost < floor {
				return nil, &InsufficientCashError{Fill: *f, State: state, Required: cost - floor}
			}
			state.Cash -= cost
			state.SharesHeld += f.Qty
		case domain.SideSell:
			if state.SharesHeld < f.Qty {
				return nil, &InsufficientInventoryError{Fill: *f, State: state}
			}
			state.Cash += cost
			state.SharesHeld -= f.Qty
		}
	}

	// Mark unsold inventory at the last available close in the bar series,
	// not the last fill price: "close the books today" valuation.
	lastClose, _ := bars.LastClose()
	mark := float64(state.SharesHeld) * lastClose

	pnl := state.Cash + mark - initialCash
	returnPct := 0.0
	if initialCash > 0 {
		returnPct = pnl / initialCash
	}

	return &domain.BacktestResult{
		InitialCash:        initialCash,
		EndingCash:         state.Cash,
		RemainingShares:    state.SharesHeld,
		RemainingValueMark: mark,
		PnL:                pnl,
		ReturnPct:          returnPct,
	}, nil
}
