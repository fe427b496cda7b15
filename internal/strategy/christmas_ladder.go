package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"equity-backtest-lab/internal/calendar"
	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/risk"
	"equity-backtest-lab/internal/series"
)

// Ladder config errors.
var (
	ErrMissingYear        = errors.New("CHRISTMAS_LADDER requires Year")
	ErrInvalidLadderDays  = errors.New("CHRISTMAS_LADDER requires positive BuyDays and SellDays")
	ErrInvalidSellTime    = errors.New("CHRISTMAS_LADDER sell execution time must be HH:MM")
	ErrInvalidPositionPct = errors.New("CHRISTMAS_LADDER max position pct must be in (0,1]")
)

// Ladder defaults.
const (
	DefaultBuyDays           = 5
	DefaultSellDays          = 10
	DefaultSellExecutionTime = "10:30"
)

// ChristmasLadderStrategy accumulates equal notional on the last BuyDays
// trading sessions before Dec-25 at the day close, then distributes the
// position over the first SellDays sessions after, selling
// remaining/(SellDays-i+1) shares each day at SellExecutionTime.
type ChristmasLadderStrategy struct {
	Year              int     // target year
	BuyDays           int     // accumulation sessions before the anchor
	SellDays          int     // distribution sessions after the anchor
	SellExecutionTime string  // "HH:MM" requested sell time
	MaxPositionPct    float64 // per-order cap as fraction of remaining cash
}

// NewChristmasLadderStrategy creates a ladder strategy with the given
// parameters.
func NewChristmasLadderStrategy(year, buyDays, sellDays int, sellTime string, maxPositionPct float64) *ChristmasLadderStrategy {
	return &ChristmasLadderStrategy{
		Year:              year,
		BuyDays:           buyDays,
		SellDays:          sellDays,
		SellExecutionTime: sellTime,
		MaxPositionPct:    maxPositionPct,
	}
}

// ID returns the strategy identifier including parameters.
func (s *ChristmasLadderStrategy) ID() string {
	return fmt.Sprintf("CHRISTMAS_LADDER_%d_%db_%ds", s.Year, s.BuyDays, s.SellDays)
}

// GenerateIntents produces the ladder's buy and sell intents. Buys are
// priced and timed at each accumulation day's closing bar; sells request
// SellExecutionTime on each distribution day and are priced at the day
// close, leaving nearest-bar resolution to the execution simulator.
func (s *ChristmasLadderStrategy) GenerateIntents(_ context.Context, bars *series.BarSeries, cash float64) ([]*domain.OrderIntent, error) {
	anchor := time.Date(s.Year, time.December, 25, 0, 0, 0, 0, time.UTC)
	buyDates, sellDates, err := calendar.SessionsAround(bars, anchor, s.BuyDays, s.SellDays)
	if err != nil {
		return nil, err
	}

	sellHour, sellMinute, err := parseClock(s.SellExecutionTime)
	if err != nil {
		return nil, err
	}

	var intents []*domain.OrderIntent
	var position int64

	// Accumulate equal notional at each buy day's close.
	allocation := cash / float64(len(buyDates))
	for _, d := range buyDates {
		dayBars := bars.BarsOn(d)
		last := dayBars[len(dayBars)-1]
		qty := risk.MaxShares(cash, allocation, last.Close, s.MaxPositionPct)
		if qty <= 0 {
			continue
		}
		intents = append(intents, &domain.OrderIntent{
			Time:  last.Timestamp,
			Side:  domain.SideBuy,
			Qty:   qty,
			Price: last.Close,
			Value: domain.IntentValue(domain.SideBuy, qty, last.Close),
		})
		cash -= float64(qty) * last.Close
		position += qty
	}

	// Distribute the remaining position across the sell sessions.
	for i, d := range sellDates {
		if position <= 0 {
			break
		}
		sellsLeft := int64(s.SellDays - i)
		qty := position / sellsLeft
		if i == s.SellDays-1 {
			qty = position
		}
		if qty <= 0 {
			continue
		}
		dayBars := bars.BarsOn(d)
		last := dayBars[len(dayBars)-1]
		requested := time.Date(d.Year(), d.Month(), d.Day(), sellHour, sellMinute, 0, 0, d.Location())
		intents = append(intents, &domain.OrderIntent{
			Time:  requested,
			Side:  domain.SideSell,
			Qty:   qty,
			Price: last.Close,
			Value: domain.IntentValue(domain.SideSell, qty, last.Close),
		})
		position -= qty
	}

	return intents, nil
}

// fromChristmasLadderConfig builds the ladder from config, applying
// defaults and validating required parameters.
func fromChristmasLadderConfig(cfg domain.StrategyConfig) (Strategy, error) {
	if cfg.Year == nil {
		return nil, ErrMissingYear
	}

	buyDays := DefaultBuyDays
	if cfg.BuyDays != nil {
		buyDays = *cfg.BuyDays
	}
	sellDays := DefaultSellDays
	if cfg.SellDays != nil {
		sellDays = *cfg.SellDays
	}
	if buyDays <= 0 || sellDays <= 0 {
		return nil, ErrInvalidLadderDays
	}

	sellTime := DefaultSellExecutionTime
	if cfg.SellExecutionTime != nil {
		sellTime = *cfg.SellExecutionTime
	}
	if _, _, err := parseClock(sellTime); err != nil {
		return nil, err
	}

	maxPct := 1.0
	if cfg.MaxPositionPct != nil {
		maxPct = *cfg.MaxPositionPct
	}
	if maxPct <= 0 || maxPct > 1 {
		return nil, ErrInvalidPositionPct
	}

	return NewChristmasLadderStrategy(*cfg.Year, buyDays, sellDays, sellTime, maxPct), nil
}

// parseClock parses an "HH:MM" wall-clock string.
func parseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidSellTime, s)
	}
	return t.Hour(), t.Minute(), nil
}

// Ensure ChristmasLadderStrategy implements Strategy.
var _ Strategy = (*ChristmasLadderStrategy)(nil)
