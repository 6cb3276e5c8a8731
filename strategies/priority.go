package strategies

import (
	"sort"

	"github.com/Sherin-SEF-AI/llm-router/pkg/types"
)

// PriorityStrategy orders providers by their registered priority, lower
// first, with registration order breaking ties.
type PriorityStrategy struct{}

// NewPriorityStrategy creates a priority strategy.
func NewPriorityStrategy() *PriorityStrategy {
	return &PriorityStrategy{}
}

// Name returns the registry name.
func (s *PriorityStrategy) Name() string { return StrategyPriority }

// Rank orders eligible candidates by ascending priority.
func (s *PriorityStrategy) Rank(req *types.Request, candidates []Candidate) ([]Candidate, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	ranked := eligible(candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Record.Priority != ranked[j].Record.Priority {
			return ranked[i].Record.Priority < ranked[j].Record.Priority
		}
		return ranked[i].Index < ranked[j].Index
	})
	return ranked, nil
}
