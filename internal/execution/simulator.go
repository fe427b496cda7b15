// Package execution converts order intents into realized fills under
// simplified market-microstructure assumptions: nearest-bar timing,
// basis-point slippage, and bar-volume liquidity limits.
package execution

import (
	"fmt"
	"sort"

	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/series"
)

// Result holds the outcome of one simulation pass: realized fills ordered
// by executed time, and the intents dropped on the way with their reasons.
type Result struct {
	Fills      []*domain.Fill
	Rejections []*domain.RejectedIntent
}

// Simulate maps each intent to a fill or a rejection. Steps per intent, in
// declared-time order (ties broken by original submission order):
//  1. Resolve the nearest available bar for the intent's date and
//     time-of-day; no bars on that date rejects with NO_MARKET_DATA.
//  2. If cfg.EnforceMarketHours, reject bars outside the regular session
//     with OUTSIDE_MARKET_HOURS.
//  3. Apply slippage: price * (1 + sign(side)*bps/10000), sign +1 for BUY
//     and -1 for SELL, then cap the result to the bar's [Low, High] range.
//  4. If cfg.EnforceLiquidity, reject intents whose quantity exceeds
//     cfg.MaxLiquidityFraction of the bar's volume with
//     INSUFFICIENT_LIQUIDITY. No partial fills: the fill/intent relation
//     is one-to-one-or-none.
//
// Inputs are never mutated. Identical inputs produce identical results.
func Simulate(intents []*domain.OrderIntent, bars *series.BarSeries, cfg domain.ExecutionConfig) (*Result, error) {
	if bars == nil {
		return nil, fmt.Errorf("%w: nil bar series", domain.ErrSchema)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Validate the intent schema once at the boundary.
	for i, intent := range intents {
		if err := intent.Validate(); err != nil {
			return nil, fmt.Errorf("intent %d: %w", i, err)
		}
	}

	// Process in declared order; stable sort keeps submission order on ties.
	ordered := make([]*domain.OrderIntent, len(intents))
	copy(ordered, intents)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Time.Before(ordered[j].Time)
	})

	res := &Result{}
	for _, intent := range ordered {
		bar, err := resolveBar(bars, intent.Time)
		if err != nil {
			res.reject(intent, domain.RejectNoMarketData)
			continue
		}

		if cfg.EnforceMarketHours && !withinMarketHours(bars, bar) {
			res.reject(intent, domain.RejectOutsideMarketHours)
			continue
		}

		executedPrice := applySlippage(intent.Price, bar, intent.Side, cfg.SlippageBps)

		if cfg.EnforceLiquidity && !passesLiquidity(intent.Qty, bar.Volume, cfg.MaxLiquidityFraction) {
			res.reject(intent, domain.RejectInsufficientLiquidity)
			continue
		}

		res.Fills = append(res.Fills, &domain.Fill{
			Time:          intent.Time,
			Side:          intent.Side,
			Qty:           intent.Qty,
			Price:         intent.Price,
			ExecutedTime:  bar.Timestamp,
			ExecutedPrice: executedPrice,
			SlippageBps:   realizedSlippageBps(intent.Price, executedPrice),
		})
	}

	// Intents were walked by declared time, but timing resolution can move
	// an execution later within its day; restore executed-time order for
	// the engine. Stable sort preserves submission order on equal bars.
	sort.SliceStable(res.Fills, func(i, j int) bool {
		return res.Fills[i].ExecutedTime.Before(res.Fills[j].ExecutedTime)
	})

	return res, nil
}

func (r *Result) reject(intent *domain.OrderIntent, reason domain.RejectReason) {
	r.Rejections = append(r.Rejections, &domain.RejectedIntent{
		Intent: *intent,
		Reason: reason,
	})
}

// applySlippage adjusts the intended price against the trader: up for
// buyers, down for sellers. The adjusted price is capped at the bar's High
// for buys and floored at the bar's Low for sells, since an execution
// cannot leave the bar's traded range.
func applySlippage(price float64, bar domain.Bar, side domain.Side, slippageBps float64) float64 {
	mult := slippageBps / 10000.0
	if side == domain.SideBuy {
		p := price * (1 + mult)
		if p > bar.High {
			return bar.High
		}
		return p
	}
	p := price * (1 - mult)
	if p < bar.Low {
		return bar.Low
	}
	return p
}

// passesLiquidity reports whether qty is within maxFraction of the bar's
// volume. Zero or negative volume never passes.
func passesLiquidity(qty int64, barVolume, maxFraction float64) bool {
	if barVolume <= 0 {
		return false
	}
	return float64(qty)/barVolume <= maxFraction
}

// realizedSlippageBps returns the signed realized slippage in basis points.
func realizedSlippageBps(intended, executed float64) float64 {
	if intended == 0 {
		return 0
	}
	return (executed - intended) / intended * 10000.0
}
