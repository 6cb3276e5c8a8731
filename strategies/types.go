// Package strategies provides the selection policies that rank providers
// for a request. All strategies implement the Strategy interface and are
// constructed by name through the factory, so the active policy can be
// swapped at runtime.
package strategies

import (
	"errors"
	"sort"

	"github.com/Sherin-SEF-AI/llm-router/internal/health"
	"github.com/Sherin-SEF-AI/llm-router/pkg/provider"
	"github.com/Sherin-SEF-AI/llm-router/pkg/types"
)

// Strategy names.
const (
	StrategyPriority      = "priority"
	StrategyCostOptimized = "cost_optimized"
	StrategyRoundRobin    = "round_robin"
)

// ErrNoCandidates is returned when ranking is asked for an empty set.
var ErrNoCandidates = errors.New("no candidate providers")

// Candidate couples a registered provider with its current health snapshot.
// Index is the registration order, used as the final tiebreak.
type Candidate struct {
	Record  *provider.Record
	Adapter provider.Provider
	Index   int
	Health  health.Snapshot
}

// Strategy ranks the registered providers for one request. The returned
// slice is ordered most-preferred first and is never empty when candidates
// is non-empty.
type Strategy interface {
	// Name returns the strategy's registry name.
	Name() string

	// Rank produces the ordered candidate list for a request.
	Rank(req *types.Request, candidates []Candidate) ([]Candidate, error)
}

// eligible filters out UNHEALTHY candidates. When every provider is
// unhealthy it falls back to the full set ordered by least-recently-failed,
// so a total outage degrades to best-effort instead of hard failure.
func eligible(candidates []Candidate) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Health.Status != health.StatusUnhealthy {
			out = append(out, c)
		}
	}
	if len(out) > 0 {
		return out
	}

	out = append(out, candidates...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Health.LastFailure.Before(out[j].Health.LastFailure)
	})
	return out
}
