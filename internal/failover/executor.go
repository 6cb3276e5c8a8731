// Package failover executes a request against an ordered candidate list,
// retrying transient failures with exponential backoff and falling over to
// the next candidate when a provider is exhausted or fails permanently.
package failover

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	routererrors "github.com/Sherin-SEF-AI/llm-router/pkg/errors"
	"github.com/Sherin-SEF-AI/llm-router/strategies"
)

// HealthReporter receives the outcome of every attempt so health reflects
// live traffic, not only probes.
type HealthReporter interface {
	ReportSuccess(name string, latency time.Duration)
	ReportFailure(name string)
}

// Config controls retry behavior.
type Config struct {
	MaxRetries     int           // per-provider attempts beyond the first (default 2)
	Backoff        time.Duration // initial backoff (default 500ms)
	MaxBackoff     time.Duration // backoff cap, 0 disables
	Jitter         float64       // jitter ratio 0..1
	AttemptTimeout time.Duration // default per-attempt timeout (default 30s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     2,
		Backoff:        500 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		Jitter:         0.2,
		AttemptTimeout: 30 * time.Second,
	}
}

// Executor runs attempts against ranked candidates.
type Executor struct {
	cfg    Config
	health HealthReporter
	logger *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewExecutor creates a failover executor.
func NewExecutor(cfg Config, health HealthReporter, logger *slog.Logger) *Executor {
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		cfg:    cfg,
		health: health,
		logger: logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// AttemptFunc performs one attempt against a single candidate. timeout is
// the per-attempt budget; the function applies it to the blocking part of
// the attempt (a completion call, or a stream open up to its first byte).
// On success the function must have captured its result before returning
// nil.
type AttemptFunc func(ctx context.Context, cand strategies.Candidate, timeout time.Duration) error

// Execute walks the candidate list in order. Each candidate gets up to its
// record's MaxRetries (or the global default) additional attempts on
// transient errors, with exponential backoff between attempts. Permanent
// errors abort that candidate's retries and advance to the next one.
// Success short-circuits. When every candidate is exhausted, an
// ExhaustedError carrying the per-provider error list is returned.
//
// The attempt's latency is reported to the health monitor on success; every
// failure is reported as well. Context cancellation surfaces as ctx.Err(),
// never wrapped into the exhaustion error.
func (e *Executor) Execute(ctx context.Context, model string, candidates []strategies.Candidate, attempt AttemptFunc) error {
	if len(candidates) == 0 {
		return routererrors.NewConfigError("no providers registered for request")
	}

	var attemptErrs []routererrors.AttemptError

	for _, cand := range candidates {
		maxRetries := e.cfg.MaxRetries
		if cand.Record.MaxRetries > 0 {
			maxRetries = cand.Record.MaxRetries
		}

		var lastErr error
		attempts := 0

		for try := 0; try <= maxRetries; try++ {
			if try > 0 {
				if err := e.sleep(ctx, e.backoff(try)); err != nil {
					return err
				}
			}

			timeout := e.cfg.AttemptTimeout
			if cand.Record.Timeout > 0 {
				timeout = cand.Record.Timeout
			}

			attempts++
			start := time.Now()
			err := attempt(ctx, cand, timeout)
			if err == nil {
				e.health.ReportSuccess(cand.Record.Name, time.Since(start))
				return nil
			}

			if ctx.Err() != nil {
				// The caller went away; don't count this against the provider.
				return ctx.Err()
			}

			lastErr = err
			e.health.ReportFailure(cand.Record.Name)
			e.logger.Debug("provider attempt failed",
				"provider", cand.Record.Name,
				"model", model,
				"attempt", attempts,
				"error", err,
			)

			if !routererrors.IsRetryable(err) {
				break
			}
		}

		attemptErrs = append(attemptErrs, routererrors.AttemptError{
			Provider: cand.Record.Name,
			Attempts: attempts,
			Err:      lastErr,
		})
	}

	return &routererrors.ExhaustedError{Model: model, Attempts: attemptErrs}
}

// backoff computes the delay before retry attempt n (1-based), with
// exponential growth, an optional cap, and jitter.
func (e *Executor) backoff(attempt int) time.Duration {
	d := e.cfg.Backoff * time.Duration(1<<(attempt-1))
	if e.cfg.MaxBackoff > 0 && d > e.cfg.MaxBackoff {
		d = e.cfg.MaxBackoff
	}
	if e.cfg.Jitter > 0 {
		e.rngMu.Lock()
		f := e.rng.Float64()
		e.rngMu.Unlock()
		delta := e.cfg.Jitter * float64(d)
		d = time.Duration(float64(d) - delta + f*2*delta)
	}
	return d
}

func (e *Executor) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsExhausted reports whether err is an ExhaustedError.
func IsExhausted(err error) bool {
	var ex *routererrors.ExhaustedError
	return errors.As(err, &ex)
}
