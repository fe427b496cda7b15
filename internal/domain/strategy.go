package domain

// StrategyConfig represents strategy configuration parameters.
// Pointer fields are required or optional depending on StrategyType; the
// strategy factory validates per type.
type StrategyConfig struct {
	StrategyType string // "CHRISTMAS_LADDER"
	Symbol       string // instrument symbol

	// CHRISTMAS_LADDER parameters
	Year              *int     // target year (anchor = Dec-25 of Year)
	BuyDays           *int     // trading days before the anchor to accumulate
	SellDays          *int     // trading days after the anchor to distribute
	SellExecutionTime *string  // "HH:MM" local exchange time for sells
	MaxPositionPct    *float64 // per-order cap as fraction of available cash
}

// Strategy type constants.
const (
	StrategyTypeChristmasLadder = "CHRISTMAS_LADDER"
)
