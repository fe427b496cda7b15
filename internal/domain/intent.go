package domain

import (
	"fmt"
	"math"
	"time"
)

// Side represents the direction of an order.
type Side string

// Side constants.
const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// valueEpsilon is the tolerance for the intent value/notional identity.
// Intents arrive from strategy collaborators as decimal data; exact float
// equality would reject values that round-tripped through serialization.
const valueEpsilon = 1e-6

// OrderIntent represents a strategy's desired trade before
// execution-reality adjustments (timing, slippage, liquidity).
type OrderIntent struct {
	Time  time.Time // requested execution time
	Side  Side      // BUY or SELL
	Qty   int64     // whole shares, > 0 (fractional shares are not representable)
	Price float64   // intended price, > 0
	Value float64   // cash-flow: -Qty*Price for BUY, +Qty*Price for SELL
}

// Validate checks the intent against the order-intent contract.
// Violations wrap ErrSchema.
func (i *OrderIntent) Validate() error {
	if i == nil {
		return fmt.Errorf("%w: nil intent", ErrSchema)
	}
	if i.Side != SideBuy && i.Side != SideSell {
		return fmt.Errorf("%w: unknown side %q", ErrSchema, i.Side)
	}
	if i.Time.IsZero() {
		return fmt.Errorf("%w: intent has zero time", ErrSchema)
	}
	if i.Qty <= 0 {
		return fmt.Errorf("%w: quantity must be a positive share count, got %d", ErrSchema, i.Qty)
	}
	if i.Price <= 0 || math.IsNaN(i.Price) || math.IsInf(i.Price, 0) {
		return fmt.Errorf("%w: price must be a positive real, got %v", ErrSchema, i.Price)
	}
	want := i.Notional()
	if i.Side == SideBuy {
		want = -want
	}
	if math.Abs(i.Value-want) > valueEpsilon {
		return fmt.Errorf("%w: value %.6f does not match %s convention (want %.6f)",
			ErrSchema, i.Value, i.Side, want)
	}
	return nil
}

// Notional returns the unsigned cash amount of the intent.
func (i *OrderIntent) Notional() float64 {
	return float64(i.Qty) * i.Price
}

// IntentValue returns the signed cash-flow value for a side/qty/price
// triple: negative for BUY (cash out), positive for SELL (cash in).
func IntentValue(side Side, qty int64, price float64) float64 {
	v := float64(qty) * price
	if side == SideBuy {
		return -v
	}
	return v
}
