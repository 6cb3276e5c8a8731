package strategies

import (
	"github.com/Sherin-SEF-AI/llm-router/internal/pricing"
	"github.com/Sherin-SEF-AI/llm-router/pkg/errors"
)

// New creates a strategy by registry name. The calculator is only consulted
// by the cost-optimized strategy.
func New(name string, calc *pricing.Calculator) (Strategy, error) {
	switch name {
	case StrategyPriority, "":
		return NewPriorityStrategy(), nil
	case StrategyCostOptimized:
		return NewCostStrategy(calc), nil
	case StrategyRoundRobin:
		return NewRoundRobinStrategy(), nil
	default:
		return nil, errors.NewConfigError("unknown routing strategy: %s (available: %v)", name, Available())
	}
}

// Available returns every strategy name in the registry.
func Available() []string {
	return []string{StrategyPriority, StrategyCostOptimized, StrategyRoundRobin}
}

// IsValid checks whether name is a registered strategy.
func IsValid(name string) bool {
	for _, s := range Available() {
		if s == name {
			return true
		}
	}
	return false
}
