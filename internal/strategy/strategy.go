// Package strategy defines the order-intent contract strategies must
// produce, an explicit registration table for strategy discovery, and the
// ladder reference strategy.
package strategy

import (
	"context"

	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/series"
)

// Strategy produces order intents from a validated bar series.
type Strategy interface {
	// GenerateIntents returns the strategy's desired trades for the run.
	// Intents must satisfy the order-intent contract
	// (domain.OrderIntent.Validate) and are immutable once returned.
	GenerateIntents(ctx context.Context, bars *series.BarSeries, cash float64) ([]*domain.OrderIntent, error)

	// ID returns the strategy identifier (includes parameters).
	ID() string
}
