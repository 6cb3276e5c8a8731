package strategies

import (
	"sync/atomic"

	"github.com/Sherin-SEF-AI/llm-router/pkg/types"
)

// RoundRobinStrategy rotates the starting offset into the eligible set on
// every call. The counter is a single shared atomic, so concurrent requests
// never observe the same offset.
type RoundRobinStrategy struct {
	counter atomic.Uint64
}

// NewRoundRobinStrategy creates a round-robin strategy.
func NewRoundRobinStrategy() *RoundRobinStrategy {
	return &RoundRobinStrategy{}
}

// Name returns the registry name.
func (s *RoundRobinStrategy) Name() string { return StrategyRoundRobin }

// Rank rotates the eligible set so the head advances cyclically across
// consecutive calls. The rest of the list keeps cyclic order for failover.
func (s *RoundRobinStrategy) Rank(req *types.Request, candidates []Candidate) ([]Candidate, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	pool := eligible(candidates)
	offset := int((s.counter.Add(1) - 1) % uint64(len(pool)))

	ranked := make([]Candidate, 0, len(pool))
	ranked = append(ranked, pool[offset:]...)
	ranked = append(ranked, pool[:offset]...)
	return ranked, nil
}
