package failover

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	routererrors "github.com/Sherin-SEF-AI/llm-router/pkg/errors"
	"github.com/Sherin-SEF-AI/llm-router/pkg/provider"
	"github.com/Sherin-SEF-AI/llm-router/strategies"
)

type reporterStub struct {
	mu        sync.Mutex
	successes []string
	failures  []string
}

func (r *reporterStub) ReportSuccess(name string, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successes = append(r.successes, name)
}

func (r *reporterStub) ReportFailure(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, name)
}

func fastConfig() Config {
	return Config{
		MaxRetries:     2,
		Backoff:        time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		AttemptTimeout: time.Second,
	}
}

func candidatesNamed(names ...string) []strategies.Candidate {
	out := make([]strategies.Candidate, len(names))
	for i, name := range names {
		out[i] = strategies.Candidate{
			Record: &provider.Record{Name: name},
			Index:  i,
		}
	}
	return out
}

func TestExecute_FirstTrySuccess(t *testing.T) {
	rep := &reporterStub{}
	e := NewExecutor(fastConfig(), rep, nil)

	calls := 0
	err := e.Execute(context.Background(), "gpt-4o", candidatesNamed("a", "b"),
		func(ctx context.Context, cand strategies.Candidate, timeout time.Duration) error {
			calls++
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"a"}, rep.successes)
	assert.Empty(t, rep.failures)
}

func TestExecute_TransientRetriesThenFailover(t *testing.T) {
	rep := &reporterStub{}
	e := NewExecutor(fastConfig(), rep, nil)

	var attempts []string
	err := e.Execute(context.Background(), "gpt-4o", candidatesNamed("a", "b"),
		func(ctx context.Context, cand strategies.Candidate, timeout time.Duration) error {
			attempts = append(attempts, cand.Record.Name)
			if cand.Record.Name == "a" {
				return routererrors.NewRateLimitError("a", "gpt-4o", "slow down")
			}
			return nil
		})

	require.NoError(t, err)
	// a: initial try + 2 retries, then failover to b.
	assert.Equal(t, []string{"a", "a", "a", "b"}, attempts)
	assert.Equal(t, []string{"b"}, rep.successes)
	assert.Equal(t, []string{"a", "a", "a"}, rep.failures)
}

func TestExecute_PermanentErrorSkipsRetries(t *testing.T) {
	rep := &reporterStub{}
	e := NewExecutor(fastConfig(), rep, nil)

	var attempts []string
	err := e.Execute(context.Background(), "gpt-4o", candidatesNamed("a", "b"),
		func(ctx context.Context, cand strategies.Candidate, timeout time.Duration) error {
			attempts = append(attempts, cand.Record.Name)
			if cand.Record.Name == "a" {
				return routererrors.NewAuthenticationError("a", "gpt-4o", "bad key")
			}
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, attempts, "auth failure must not be retried")
}

func TestExecute_AllExhausted(t *testing.T) {
	rep := &reporterStub{}
	e := NewExecutor(fastConfig(), rep, nil)

	err := e.Execute(context.Background(), "gpt-4o", candidatesNamed("a", "b"),
		func(ctx context.Context, cand strategies.Candidate, timeout time.Duration) error {
			return routererrors.NewServiceUnavailableError(cand.Record.Name, "gpt-4o", "down")
		})

	require.Error(t, err)
	assert.True(t, IsExhausted(err))

	var ex *routererrors.ExhaustedError
	require.ErrorAs(t, err, &ex)
	assert.Equal(t, "gpt-4o", ex.Model)
	require.Len(t, ex.Attempts, 2)
	assert.Equal(t, "a", ex.Attempts[0].Provider)
	assert.Equal(t, 3, ex.Attempts[0].Attempts)
	assert.Equal(t, "b", ex.Attempts[1].Provider)
}

func TestExecute_RecordOverridesRetryBudget(t *testing.T) {
	rep := &reporterStub{}
	e := NewExecutor(fastConfig(), rep, nil)

	cands := candidatesNamed("a")
	cands[0].Record.MaxRetries = 5

	calls := 0
	err := e.Execute(context.Background(), "gpt-4o", cands,
		func(ctx context.Context, cand strategies.Candidate, timeout time.Duration) error {
			calls++
			return routererrors.NewTimeoutError("a", "gpt-4o", "deadline")
		})

	require.Error(t, err)
	assert.Equal(t, 6, calls)
}

func TestExecute_RecordOverridesTimeout(t *testing.T) {
	rep := &reporterStub{}
	e := NewExecutor(fastConfig(), rep, nil)

	cands := candidatesNamed("a")
	cands[0].Record.Timeout = 42 * time.Second

	var seen time.Duration
	err := e.Execute(context.Background(), "gpt-4o", cands,
		func(ctx context.Context, cand strategies.Candidate, timeout time.Duration) error {
			seen = timeout
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, 42*time.Second, seen)
}

func TestExecute_ContextCancellation(t *testing.T) {
	rep := &reporterStub{}
	e := NewExecutor(fastConfig(), rep, nil)

	ctx, cancel := context.WithCancel(context.Background())

	err := e.Execute(ctx, "gpt-4o", candidatesNamed("a", "b"),
		func(ctx context.Context, cand strategies.Candidate, timeout time.Duration) error {
			cancel()
			return routererrors.NewTimeoutError("a", "gpt-4o", "deadline")
		})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rep.failures, "cancellation is not charged against the provider")
}

func TestExecute_NoCandidates(t *testing.T) {
	e := NewExecutor(fastConfig(), &reporterStub{}, nil)

	err := e.Execute(context.Background(), "gpt-4o", nil,
		func(ctx context.Context, cand strategies.Candidate, timeout time.Duration) error {
			return nil
		})

	var cfgErr *routererrors.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestExecute_UnclassifiedErrorsAreRetried(t *testing.T) {
	rep := &reporterStub{}
	e := NewExecutor(fastConfig(), rep, nil)

	calls := 0
	err := e.Execute(context.Background(), "gpt-4o", candidatesNamed("a"),
		func(ctx context.Context, cand strategies.Candidate, timeout time.Duration) error {
			calls++
			return errors.New("wire dropped")
		})

	require.Error(t, err)
	assert.Equal(t, 3, calls, "plain errors default to transient")
}

func TestBackoff(t *testing.T) {
	e := NewExecutor(Config{
		Backoff:    100 * time.Millisecond,
		MaxBackoff: 350 * time.Millisecond,
	}, &reporterStub{}, nil)

	assert.Equal(t, 100*time.Millisecond, e.backoff(1))
	assert.Equal(t, 200*time.Millisecond, e.backoff(2))
	assert.Equal(t, 350*time.Millisecond, e.backoff(3), "cap applies")
}

func TestBackoff_Jitter(t *testing.T) {
	e := NewExecutor(Config{
		Backoff: 100 * time.Millisecond,
		Jitter:  0.5,
	}, &reporterStub{}, nil)

	for i := 0; i < 50; i++ {
		d := e.backoff(1)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}
}
