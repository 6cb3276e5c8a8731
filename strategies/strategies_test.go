package strategies

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sherin-SEF-AI/llm-router/internal/health"
	"github.com/Sherin-SEF-AI/llm-router/internal/pricing"
	"github.com/Sherin-SEF-AI/llm-router/pkg/provider"
	"github.com/Sherin-SEF-AI/llm-router/pkg/types"
)

func makeCandidates(recs ...provider.Record) []Candidate {
	out := make([]Candidate, len(recs))
	for i := range recs {
		out[i] = Candidate{
			Record: &recs[i],
			Index:  i,
			Health: health.Snapshot{Status: health.StatusHealthy},
		}
	}
	return out
}

func names(cands []Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.Record.Name
	}
	return out
}

func TestPriorityStrategy(t *testing.T) {
	s := NewPriorityStrategy()
	req := types.NewRequest("hi", "gpt-4o")

	t.Run("orders by ascending priority", func(t *testing.T) {
		cands := makeCandidates(
			provider.Record{Name: "c", Priority: 3},
			provider.Record{Name: "a", Priority: 1},
			provider.Record{Name: "b", Priority: 2},
		)
		ranked, err := s.Rank(req, cands)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, names(ranked))
	})

	t.Run("registration order breaks ties", func(t *testing.T) {
		cands := makeCandidates(
			provider.Record{Name: "first", Priority: 1},
			provider.Record{Name: "second", Priority: 1},
		)
		ranked, err := s.Rank(req, cands)
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second"}, names(ranked))
	})

	t.Run("unhealthy providers are excluded", func(t *testing.T) {
		cands := makeCandidates(
			provider.Record{Name: "a", Priority: 1},
			provider.Record{Name: "b", Priority: 2},
		)
		cands[0].Health.Status = health.StatusUnhealthy

		ranked, err := s.Rank(req, cands)
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, names(ranked))
	})

	t.Run("empty candidate set errors", func(t *testing.T) {
		_, err := s.Rank(req, nil)
		assert.ErrorIs(t, err, ErrNoCandidates)
	})
}

func TestDegradedMode(t *testing.T) {
	s := NewPriorityStrategy()
	req := types.NewRequest("hi", "gpt-4o")

	now := time.Now()
	cands := makeCandidates(
		provider.Record{Name: "a", Priority: 1},
		provider.Record{Name: "b", Priority: 2},
		provider.Record{Name: "c", Priority: 3},
	)
	for i := range cands {
		cands[i].Health.Status = health.StatusUnhealthy
	}
	cands[0].Health.LastFailure = now                        // freshest failure
	cands[1].Health.LastFailure = now.Add(-time.Minute)      // oldest failure
	cands[2].Health.LastFailure = now.Add(-30 * time.Second) // in between

	ranked, err := s.Rank(req, cands)
	require.NoError(t, err)
	assert.Len(t, ranked, 3, "total outage still yields attempts")
	assert.Equal(t, []string{"b", "c", "a"}, names(ranked),
		"least recently failed provider is tried first")
}

func TestCostStrategy(t *testing.T) {
	calc := pricing.NewCalculator(nil)
	s := NewCostStrategy(calc)

	t.Run("record overrides rank cheapest first", func(t *testing.T) {
		cands := makeCandidates(
			provider.Record{Name: "expensive", InputCostPer1K: 0.03, OutputCostPer1K: 0.06},
			provider.Record{Name: "cheap", InputCostPer1K: 0.001, OutputCostPer1K: 0.002},
		)
		ranked, err := s.Rank(types.NewRequest("hi", "gpt-4o"), cands)
		require.NoError(t, err)
		assert.Equal(t, "cheap", ranked[0].Record.Name)
	})

	t.Run("unknown model deprioritized against known pricing", func(t *testing.T) {
		cands := makeCandidates(
			provider.Record{Name: "mystery"}, // falls back to table lookup, model unknown
			provider.Record{Name: "flat", InputCostPer1K: 0.5, OutputCostPer1K: 0.5},
		)
		ranked, err := s.Rank(types.NewRequest("hi", "some-internal-model"), cands)
		require.NoError(t, err)
		assert.Equal(t, "flat", ranked[0].Record.Name)
	})

	t.Run("priority breaks cost ties", func(t *testing.T) {
		cands := makeCandidates(
			provider.Record{Name: "low-pri", Priority: 5, InputCostPer1K: 0.1},
			provider.Record{Name: "high-pri", Priority: 1, InputCostPer1K: 0.1},
		)
		ranked, err := s.Rank(types.NewRequest("hi", "gpt-4o"), cands)
		require.NoError(t, err)
		assert.Equal(t, "high-pri", ranked[0].Record.Name)
	})
}

func TestRoundRobinStrategy(t *testing.T) {
	req := types.NewRequest("hi", "gpt-4o")

	t.Run("head advances cyclically", func(t *testing.T) {
		s := NewRoundRobinStrategy()
		cands := makeCandidates(
			provider.Record{Name: "a"},
			provider.Record{Name: "b"},
			provider.Record{Name: "c"},
		)

		var heads []string
		for i := 0; i < 6; i++ {
			ranked, err := s.Rank(req, cands)
			require.NoError(t, err)
			heads = append(heads, ranked[0].Record.Name)
		}
		assert.Equal(t, []string{"a", "b", "c", "a", "b", "c"}, heads)
	})

	t.Run("tail keeps cyclic order for failover", func(t *testing.T) {
		s := NewRoundRobinStrategy()
		cands := makeCandidates(
			provider.Record{Name: "a"},
			provider.Record{Name: "b"},
			provider.Record{Name: "c"},
		)

		s.Rank(req, cands) // consume offset 0
		ranked, err := s.Rank(req, cands)
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c", "a"}, names(ranked))
	})

	t.Run("unhealthy providers leave the rotation", func(t *testing.T) {
		s := NewRoundRobinStrategy()
		cands := makeCandidates(
			provider.Record{Name: "a"},
			provider.Record{Name: "b"},
		)
		cands[1].Health.Status = health.StatusUnhealthy

		for i := 0; i < 3; i++ {
			ranked, err := s.Rank(req, cands)
			require.NoError(t, err)
			assert.Equal(t, "a", ranked[0].Record.Name)
		}
	})
}

func TestFactory(t *testing.T) {
	calc := pricing.NewCalculator(nil)

	t.Run("constructs every registered strategy", func(t *testing.T) {
		for _, name := range Available() {
			s, err := New(name, calc)
			require.NoError(t, err)
			assert.Equal(t, name, s.Name())
		}
	})

	t.Run("empty name defaults to priority", func(t *testing.T) {
		s, err := New("", calc)
		require.NoError(t, err)
		assert.Equal(t, StrategyPriority, s.Name())
	})

	t.Run("unknown name is a config error", func(t *testing.T) {
		_, err := New("fastest", calc)
		assert.Error(t, err)
	})

	t.Run("IsValid", func(t *testing.T) {
		assert.True(t, IsValid(StrategyRoundRobin))
		assert.False(t, IsValid("fastest"))
	})
}
