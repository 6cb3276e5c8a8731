// Package cost records per-request spend as an append-only event log and
// answers range-bounded aggregate queries over it.
package cost

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is one completed request's cost record. Events are never mutated
// after being appended.
type Event struct {
	ID           string    `json:"id"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	Cost         float64   `json:"cost"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	Timestamp    time.Time `json:"timestamp"`
}

// Summary aggregates cost events at or after a cutoff.
type Summary struct {
	TotalCost    float64            `json:"total_cost"`
	PerProvider  map[string]float64 `json:"provider_costs"`
	RequestCount int                `json:"request_count"`
	Since        time.Time          `json:"since,omitempty"`
}

// Tracker is a concurrency-safe append-only cost log. Retention is
// unbounded unless a retention window is configured.
type Tracker struct {
	mu        sync.Mutex
	events    []Event
	retention time.Duration
}

// NewTracker creates a cost tracker. retention == 0 keeps every event.
func NewTracker(retention time.Duration) *Tracker {
	return &Tracker{retention: retention}
}

// Record appends one cost event. A zero timestamp records the current time.
func (t *Tracker) Record(provider, model string, cost float64, inputTokens, outputTokens int, ts time.Time) {
	if ts.IsZero() {
		ts = time.Now()
	}
	ev := Event{
		ID:           uuid.NewString(),
		Provider:     provider,
		Model:        model,
		Cost:         cost,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Timestamp:    ts,
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, ev)
	t.pruneLocked(ts)
}

// pruneLocked drops events that fell out of the retention window. Events
// are appended in near-chronological order, so scanning from the front is
// enough.
func (t *Tracker) pruneLocked(now time.Time) {
	if t.retention <= 0 {
		return
	}
	cutoff := now.Add(-t.retention)
	idx := 0
	for idx < len(t.events) && t.events[idx].Timestamp.Before(cutoff) {
		idx++
	}
	if idx > 0 {
		t.events = append([]Event(nil), t.events[idx:]...)
	}
}

// Summary aggregates events with Timestamp >= since. A zero since includes
// every event.
func (t *Tracker) Summary(since time.Time) Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Summary{
		PerProvider: make(map[string]float64),
		Since:       since,
	}
	for _, ev := range t.events {
		if !since.IsZero() && ev.Timestamp.Before(since) {
			continue
		}
		s.TotalCost += ev.Cost
		s.PerProvider[ev.Provider] += ev.Cost
		s.RequestCount++
	}
	return s
}

// Events returns a snapshot of the event log, oldest first.
func (t *Tracker) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Event, len(t.events))
	copy(out, t.events)
	return out
}
