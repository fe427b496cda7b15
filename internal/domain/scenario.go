package domain

import (
	"fmt"
	"math"
)

// ExecutionConfig represents execution scenario parameters consumed by the
// simulator and the backtest engine.
type ExecutionConfig struct {
	ScenarioID           string  // "frictionless" | "realistic" | "pessimistic" | "stressed"
	SlippageBps          float64 // slippage in basis points, >= 0
	EnforceLiquidity     bool    // drop intents exceeding the bar-volume fraction
	MaxLiquidityFraction float64 // max intent qty as fraction of bar volume, in (0,1]
	EnforceMarketHours   bool    // drop intents resolving outside the trading session
	MarginMultiplier     float64 // buying power multiplier, >= 1 (1.0 = cash account)
}

// Scenario ID constants.
const (
	ScenarioFrictionless = "frictionless"
	ScenarioRealistic    = "realistic"
	ScenarioPessimistic  = "pessimistic"
	ScenarioStressed     = "stressed"
)

// Predefined execution scenarios. Realistic is the default used by the
// CLIs; Frictionless disables every microstructure effect and is the
// baseline for determinism tests.
var (
	ExecutionConfigFrictionless = ExecutionConfig{
		ScenarioID:           ScenarioFrictionless,
		SlippageBps:          0,
		EnforceLiquidity:     false,
		MaxLiquidityFraction: 1.0,
		EnforceMarketHours:   false,
		MarginMultiplier:     1.0,
	}

	ExecutionConfigRealistic = ExecutionConfig{
		ScenarioID:           ScenarioRealistic,
		SlippageBps:          1.0,
		EnforceLiquidity:     true,
		MaxLiquidityFraction: 0.01,
		EnforceMarketHours:   true,
		MarginMultiplier:     1.0,
	}

	ExecutionConfigPessimistic = ExecutionConfig{
		ScenarioID:           ScenarioPessimistic,
		SlippageBps:          5.0,
		EnforceLiquidity:     true,
		MaxLiquidityFraction: 0.005,
		EnforceMarketHours:   true,
		MarginMultiplier:     1.0,
	}

	ExecutionConfigStressed = ExecutionConfig{
		ScenarioID:           ScenarioStressed,
		SlippageBps:          25.0,
		EnforceLiquidity:     true,
		MaxLiquidityFraction: 0.001,
		EnforceMarketHours:   true,
		MarginMultiplier:     1.0,
	}
)

// ExecutionConfigByScenario returns the preset for a scenario ID, or nil if
// the ID is unknown.
func ExecutionConfigByScenario(id string) *ExecutionConfig {
	switch id {
	case ScenarioFrictionless:
		cfg := ExecutionConfigFrictionless
		return &cfg
	case ScenarioRealistic:
		cfg := ExecutionConfigRealistic
		return &cfg
	case ScenarioPessimistic:
		cfg := ExecutionConfigPessimistic
		return &cfg
	case ScenarioStressed:
		cfg := ExecutionConfigStressed
		return &cfg
	default:
		return nil
	}
}

// Validate checks the configuration surface. Violations wrap ErrSchema.
func (c *ExecutionConfig) Validate() error {
	if c.SlippageBps < 0 || math.IsNaN(c.SlippageBps) {
		return fmt.Errorf("%w: slippage_bps must be >= 0, got %v", ErrSchema, c.SlippageBps)
	}
	if c.EnforceLiquidity && (c.MaxLiquidityFraction <= 0 || c.MaxLiquidityFraction > 1) {
		return fmt.Errorf("%w: max_liquidity_fraction must be in (0,1], got %v",
			ErrSchema, c.MaxLiquidityFraction)
	}
	if c.MarginMultiplier < 1 {
		return fmt.Errorf("%w: margin_multiplier must be >= 1, got %v", ErrSchema, c.MarginMultiplier)
	}
	return nil
}
