package strategies

import (
	"sort"

	"github.com/Sherin-SEF-AI/llm-router/internal/pricing"
	"github.com/Sherin-SEF-AI/llm-router/pkg/types"
)

// CostStrategy orders providers by estimated per-token cost for the
// requested model, cheapest first. Per-record cost overrides take
// precedence over the pricing table; priority breaks ties.
type CostStrategy struct {
	calc *pricing.Calculator
}

// NewCostStrategy creates a cost-optimized strategy backed by the given
// calculator. A nil calculator uses the default pricing table.
func NewCostStrategy(calc *pricing.Calculator) *CostStrategy {
	if calc == nil {
		calc = pricing.NewCalculator(nil)
	}
	return &CostStrategy{calc: calc}
}

// Name returns the registry name.
func (s *CostStrategy) Name() string { return StrategyCostOptimized }

// Rank orders eligible candidates by ascending estimated cost.
func (s *CostStrategy) Rank(req *types.Request, candidates []Candidate) ([]Candidate, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	ranked := eligible(candidates)
	costs := make(map[string]float64, len(ranked))
	for _, c := range ranked {
		costs[c.Record.Name] = s.estimate(c, req.Model)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		ci, cj := costs[ranked[i].Record.Name], costs[ranked[j].Record.Name]
		if ci != cj {
			return ci < cj
		}
		if ranked[i].Record.Priority != ranked[j].Record.Priority {
			return ranked[i].Record.Priority < ranked[j].Record.Priority
		}
		return ranked[i].Index < ranked[j].Index
	})
	return ranked, nil
}

func (s *CostStrategy) estimate(c Candidate, model string) float64 {
	if c.Record.InputCostPer1K > 0 || c.Record.OutputCostPer1K > 0 {
		return c.Record.InputCostPer1K + c.Record.OutputCostPer1K
	}
	return s.calc.Estimate(model)
}
