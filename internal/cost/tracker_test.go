package cost

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_RecordAndSummary(t *testing.T) {
	tr := NewTracker(0)

	tr.Record("openai", "gpt-4o", 0.05, 100, 50, time.Time{})
	tr.Record("openai", "gpt-4o", 0.03, 60, 30, time.Time{})
	tr.Record("anthropic", "claude-sonnet-4", 0.02, 80, 40, time.Time{})

	s := tr.Summary(time.Time{})
	assert.InDelta(t, 0.10, s.TotalCost, 1e-9)
	assert.Equal(t, 3, s.RequestCount)
	assert.InDelta(t, 0.08, s.PerProvider["openai"], 1e-9)
	assert.InDelta(t, 0.02, s.PerProvider["anthropic"], 1e-9)
}

func TestTracker_SinceFilter(t *testing.T) {
	tr := NewTracker(0)
	now := time.Now()

	tr.Record("openai", "gpt-4o", 1.0, 0, 0, now.Add(-2*time.Hour))
	tr.Record("openai", "gpt-4o", 2.0, 0, 0, now.Add(-30*time.Minute))
	tr.Record("openai", "gpt-4o", 4.0, 0, 0, now)

	t.Run("cutoff excludes older events", func(t *testing.T) {
		s := tr.Summary(now.Add(-time.Hour))
		assert.InDelta(t, 6.0, s.TotalCost, 1e-9)
		assert.Equal(t, 2, s.RequestCount)
	})

	t.Run("cutoff boundary is inclusive", func(t *testing.T) {
		s := tr.Summary(now)
		assert.InDelta(t, 4.0, s.TotalCost, 1e-9)
		assert.Equal(t, 1, s.RequestCount)
	})

	t.Run("zero since covers everything", func(t *testing.T) {
		s := tr.Summary(time.Time{})
		assert.Equal(t, 3, s.RequestCount)
	})
}

func TestTracker_EventsAreImmutableSnapshots(t *testing.T) {
	tr := NewTracker(0)
	tr.Record("openai", "gpt-4o", 1.0, 10, 5, time.Time{})

	events := tr.Events()
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].ID)
	assert.Equal(t, 10, events[0].InputTokens)

	// Mutating the snapshot must not reach the log.
	events[0].Cost = 999
	assert.InDelta(t, 1.0, tr.Events()[0].Cost, 1e-9)
}

func TestTracker_Retention(t *testing.T) {
	tr := NewTracker(time.Hour)
	now := time.Now()

	tr.Record("openai", "gpt-4o", 1.0, 0, 0, now.Add(-3*time.Hour))
	tr.Record("openai", "gpt-4o", 2.0, 0, 0, now.Add(-2*time.Hour))
	tr.Record("openai", "gpt-4o", 4.0, 0, 0, now)

	events := tr.Events()
	require.Len(t, events, 1, "events beyond the retention window are pruned")
	assert.InDelta(t, 4.0, events[0].Cost, 1e-9)
}

func TestTracker_ConcurrentRecord(t *testing.T) {
	tr := NewTracker(0)

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				tr.Record("p", "m", 0.01, 1, 1, time.Time{})
			}
		}()
	}
	wg.Wait()

	s := tr.Summary(time.Time{})
	assert.Equal(t, 1000, s.RequestCount)
	assert.InDelta(t, 10.0, s.TotalCost, 1e-6)
}
