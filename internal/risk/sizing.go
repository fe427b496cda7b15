// Package risk provides pure pre-trade sizing and buying-power checks.
// Order generators call these before emitting intents; the core pipeline
// consumes the results without re-validating them.
package risk

import (
	"math"

	"equity-backtest-lab/internal/domain"
)

// DefaultMaxPositionPct is the default per-position cap as a fraction of
// available cash.
const DefaultMaxPositionPct = 0.10

// MaxShares returns the number of whole shares purchasable with the given
// constraints: the notional never exceeds min(targetAllocation,
// availableCash*maxPositionPct), rounded down to a whole share count.
// Returns 0 for non-positive price or cash.
func MaxShares(availableCash, targetAllocation, price, maxPositionPct float64) int64 {
	if price <= 0 || availableCash <= 0 || targetAllocation <= 0 {
		return 0
	}

	allocation := math.Min(targetAllocation, availableCash*maxPositionPct)
	shares := int64(math.Floor(allocation / price))
	if shares < 0 {
		return 0
	}
	return shares
}

// CheckBuyingPower reports whether the BUY intents in the batch fit within
// availableCash * marginMultiplier (1.0 = cash account, 2.0 = margin).
func CheckBuyingPower(intents []*domain.OrderIntent, availableCash, marginMultiplier float64) bool {
	var needed float64
	for _, i := range intents {
		if i.Side == domain.SideBuy {
			needed += i.Notional()
		}
	}
	return needed <= availableCash*marginMultiplier
}

// KellyAllocation returns the capital to allocate to the next trade using
// the Kelly criterion f = (b*p - q) / b, where b = avgWin/avgLoss,
// p = winRate, q = 1-p. The fraction is clamped to [0, maxFraction].
// Returns 0 when the inputs cannot produce a meaningful edge.
func KellyAllocation(winRate, avgWin, avgLoss, capital, maxFraction float64) float64 {
	if avgLoss <= 0 || winRate <= 0 || winRate >= 1 {
		return 0
	}

	b := avgWin / avgLoss
	f := (b*winRate - (1 - winRate)) / b

	if f < 0 {
		f = 0
	}
	if f > maxFraction {
		f = maxFraction
	}
	return capital * f
}
