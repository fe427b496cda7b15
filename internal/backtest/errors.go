package backtest

import (
	"errors"
	"fmt"

	"equity-backtest-lab/internal/domain"
)

// ErrUnorderedFills is returned when fills are not ordered by executed
// time. The engine asserts ordering rather than re-sorting, to surface
// upstream sequencing bugs.
var ErrUnorderedFills = errors.New("fills are not ordered by executed time")

// InsufficientCashError is fatal to a run: a BUY fill would drive cash
// below the account's floor. It carries the failing fill and the position
// state at the moment of failure so the run can be reproduced.
type InsufficientCashError struct {
	Fill     domain.Fill
	State    domain.PositionState
	Required float64 // cash needed to apply the fill
}

func (e *InsufficientCashError) Error() string {
	return fmt.Sprintf("insufficient cash: BUY %d @ %.4f at %s requires %.2f, have %.2f (held %d)",
		e.Fill.Qty, e.Fill.ExecutedPrice, e.Fill.ExecutedTime.Format("2006-01-02 15:04"),
		e.Required, e.State.Cash, e.State.SharesHeld)
}

// InsufficientInventoryError is fatal to a run: a SELL fill requests more
// shares than held. Short inventory cannot be serviced in this design.
type InsufficientInventoryError struct {
	Fill  domain.Fill
	State domain.PositionState
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory: SELL %d at %s with only %d held",
		e.Fill.Qty, e.Fill.ExecutedTime.Format("2006-01-02 15:04"), e.State.SharesHeld)
}
