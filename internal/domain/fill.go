package domain

import "time"

// Fill represents the realized outcome of an order intent after timing,
// slippage, and liquidity resolution. A fill that fails validation is
// dropped and recorded as a RejectedIntent, never silently clamped.
type Fill struct {
	Time  time.Time // original requested time
	Side  Side      // BUY or SELL
	Qty   int64     // filled share count (always the full intent quantity)
	Price float64   // intended price before slippage

	ExecutedTime  time.Time // timestamp of the resolved bar
	ExecutedPrice float64   // price after slippage, capped to the bar range
	SlippageBps   float64   // realized slippage in basis points, signed
}

// Value returns the signed cash-flow of the fill at the executed price.
func (f *Fill) Value() float64 {
	return IntentValue(f.Side, f.Qty, f.ExecutedPrice)
}

// RejectReason identifies why an intent produced no fill.
type RejectReason string

// Rejection reason codes. Rejections are per-intent and non-fatal: the run
// records them and continues with the remaining intents.
const (
	RejectOutsideMarketHours    RejectReason = "OUTSIDE_MARKET_HOURS"
	RejectInsufficientLiquidity RejectReason = "INSUFFICIENT_LIQUIDITY"
	RejectNoMarketData          RejectReason = "NO_MARKET_DATA"
)

// RejectedIntent pairs a dropped intent with its reason code.
type RejectedIntent struct {
	Intent OrderIntent
	Reason RejectReason
}
