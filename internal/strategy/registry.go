package strategy

import (
	"errors"
	"fmt"
	"sort"

	"equity-backtest-lab/internal/domain"
)

// Registry errors.
var (
	ErrAlreadyRegistered = errors.New("strategy type already registered")
	ErrUnknownStrategy   = errors.New("unknown strategy type")
)

// Builder constructs a Strategy from its configuration.
type Builder func(cfg domain.StrategyConfig) (Strategy, error)

// Registry is an explicit strategy registration table. It is built once at
// process start and passed by reference; there is no package-level mutable
// registry.
type Registry struct {
	builders map[string]Builder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

// DefaultRegistry returns a registry with all built-in strategies.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	// Built-ins can never collide on a fresh registry.
	_ = r.Register(domain.StrategyTypeChristmasLadder, fromChristmasLadderConfig)
	return r
}

// Register adds a builder for a strategy type.
func (r *Registry) Register(strategyType string, b Builder) error {
	if _, exists := r.builders[strategyType]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, strategyType)
	}
	r.builders[strategyType] = b
	return nil
}

// Build constructs a Strategy from config, validating required parameters
// per strategy type.
func (r *Registry) Build(cfg domain.StrategyConfig) (Strategy, error) {
	b, ok := r.builders[cfg.StrategyType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, cfg.StrategyType)
	}
	return b(cfg)
}

// Types returns the registered strategy types, sorted.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.builders))
	for t := range r.builders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
