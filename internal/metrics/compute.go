// Package metrics derives performance statistics from a run's fills and
// result. Everything here is arithmetic on the engine's output; the hard
// numeric-correctness concerns live in the engine itself.
package metrics

import (
	"math"
	"sort"
	"time"

	"equity-backtest-lab/internal/domain"
)

// Trading days per year, used for annualization.
const tradingDaysPerYear = 252

// DefaultRiskFreeRate is the annual risk-free rate assumed by Summarize.
const DefaultRiskFreeRate = 0.02

// Summary holds derived performance metrics for one run.
type Summary struct {
	TotalReturn  float64 // (final - initial) / initial
	AnnualReturn float64 // geometric annualization over the trade span
	SharpeRatio  float64 // annualized, sample stddev
	MaxDrawdown  float64 // worst peak-to-trough on the equity curve, as a positive fraction
	DrawdownDays int     // longest drawdown length in curve points

	TotalTrades  int     // completed sells
	WinningSells int     // sells executed above the average entry price
	WinRate      float64 // winning / total sells
	AvgWin       float64 // mean positive sell P&L
	AvgLoss      float64 // mean negative sell P&L, as a positive number
	ProfitFactor float64 // gross profit / gross loss

	AnnualVolatility float64 // annualized stddev of curve returns
}

// EquityPoint is one point of the marked portfolio value over time.
type EquityPoint struct {
	Time  time.Time
	Value float64
}

// Summarize computes the full performance summary for a run. The equity
// curve is indexed by fill executed times (the only clock the engine
// sees), marking held shares at each fill's executed price.
func Summarize(fills []*domain.Fill, result *domain.BacktestResult) *Summary {
	s := &Summary{}
	if result == nil {
		return s
	}

	finalValue := result.EndingCash + result.RemainingValueMark
	if result.InitialCash > 0 {
		s.TotalReturn = (finalValue - result.InitialCash) / result.InitialCash
	}

	if len(fills) == 0 {
		return s
	}

	spanDays := fills[len(fills)-1].ExecutedTime.Sub(fills[0].ExecutedTime).Hours() / 24
	if spanDays >= 1 {
		s.AnnualReturn = math.Pow(1+s.TotalReturn, 365/spanDays) - 1
	}

	curve := EquityCurve(fills, result.InitialCash)
	returns := curveReturns(curve)

	s.SharpeRatio = SharpeRatio(returns, DefaultRiskFreeRate)
	s.MaxDrawdown, s.DrawdownDays = MaxDrawdown(curve)
	s.AnnualVolatility = computeStddev(returns) * math.Sqrt(tradingDaysPerYear)

	fillWinLoss(s, fills)
	return s
}

// EquityCurve builds the portfolio value series from fills: cash plus
// inventory marked at each fill's executed price.
func EquityCurve(fills []*domain.Fill, initialCash float64) []EquityPoint {
	curve := make([]EquityPoint, 0, len(fills)+1)

	cash := initialCash
	var shares int64
	if len(fills) > 0 {
		curve = append(curve, EquityPoint{Time: fills[0].ExecutedTime, Value: initialCash})
	}
	for _, f := range fills {
		cash += f.Value()
		if f.Side == domain.SideBuy {
			shares += f.Qty
		} else {
			shares -= f.Qty
		}
		curve = append(curve, EquityPoint{
			Time:  f.ExecutedTime,
			Value: cash + float64(shares)*f.ExecutedPrice,
		})
	}
	return curve
}

// SharpeRatio computes the annualized Sharpe ratio from periodic returns
// against an annual risk-free rate.
func SharpeRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	daily := riskFreeRate / tradingDaysPerYear
	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - daily
	}

	stddev := computeStddev(excess)
	if stddev == 0 {
		return 0
	}
	return computeMean(excess) / stddev * math.Sqrt(tradingDaysPerYear)
}

// MaxDrawdown returns the worst peak-to-trough decline on the curve as a
// positive fraction, and the longest drawdown stretch in curve points.
func MaxDrawdown(curve []EquityPoint) (maxDD float64, maxDuration int) {
	if len(curve) == 0 {
		return 0, 0
	}

	peak := curve[0].Value
	inDrawdown := 0
	for _, p := range curve {
		if p.Value > peak {
			peak = p.Value
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - p.Value) / peak
		if dd > maxDD {
			maxDD = dd
		}
		if dd > 0 {
			inDrawdown++
			if inDrawdown > maxDuration {
				maxDuration = inDrawdown
			}
		} else {
			inDrawdown = 0
		}
	}
	return maxDD, maxDuration
}

// fillWinLoss computes sell-level win/loss statistics against the average
// cost of the shares bought so far (round trips are not matched pairwise).
func fillWinLoss(s *Summary, fills []*domain.Fill) {
	var avgCost float64
	var held int64
	var wins, losses int
	var grossProfit, grossLoss float64

	for _, f := range fills {
		switch f.Side {
		case domain.SideBuy:
			total := avgCost*float64(held) + f.ExecutedPrice*float64(f.Qty)
			held += f.Qty
			if held > 0 {
				avgCost = total / float64(held)
			}
		case domain.SideSell:
			pnl := (f.ExecutedPrice - avgCost) * float64(f.Qty)
			if pnl > 0 {
				wins++
				grossProfit += pnl
			} else {
				losses++
				grossLoss += -pnl
			}
			held -= f.Qty
			if held <= 0 {
				held = 0
				avgCost = 0
			}
			s.TotalTrades++
		}
	}

	s.WinningSells = wins
	if s.TotalTrades > 0 {
		s.WinRate = float64(wins) / float64(s.TotalTrades)
	}
	if wins > 0 {
		s.AvgWin = grossProfit / float64(wins)
	}
	if losses > 0 {
		s.AvgLoss = grossLoss / float64(losses)
	}
	switch {
	case grossLoss > 0:
		s.ProfitFactor = grossProfit / grossLoss
	case grossProfit > 0:
		s.ProfitFactor = math.Inf(1)
	}
}

// curveReturns computes period-over-period returns of the equity curve.
func curveReturns(curve []EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		if curve[i-1].Value == 0 {
			continue
		}
		returns = append(returns, (curve[i].Value-curve[i-1].Value)/curve[i-1].Value)
	}
	return returns
}

// computeMean calculates the arithmetic mean.
func computeMean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	mean := computeMean(xs)
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// computePercentile returns the p-quantile (0..1) of sorted values using
// linear interpolation.
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	idx := p * float64(n-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Percentile returns the p-quantile (0..1) of values; the input is not
// mutated.
func Percentile(values []float64, p float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return computePercentile(sorted, p)
}
