// Package health tracks per-provider health from background probes and
// live request outcomes.
package health

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sherin-SEF-AI/llm-router/pkg/provider"
)

// Status is the health state of a provider.
type Status int

const (
	StatusUnknown Status = iota
	StatusHealthy
	StatusUnhealthy
)

// String returns the lowercase status name.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time copy of one provider's health record.
type Snapshot struct {
	Status              Status        `json:"-"`
	Healthy             bool          `json:"healthy"`
	TotalChecks         int64         `json:"total_checks"`
	SuccessCount        int64         `json:"success_count"`
	ConsecutiveFailures int           `json:"error_count"`
	SuccessRate         float64       `json:"success_rate"`
	LastLatency         time.Duration `json:"last_latency"`
	LastCheck           time.Time     `json:"last_check"`
	LastFailure         time.Time     `json:"last_failure,omitempty"`
}

type record struct {
	status              Status
	totalChecks         int64
	successCount        int64
	consecutiveFailures int
	lastLatency         time.Duration
	lastCheck           time.Time
	lastFailure         time.Time
}

// Config controls probing and the unhealthy threshold.
type Config struct {
	ProbeInterval    time.Duration // 0 disables the probe loop
	ProbeTimeout     time.Duration
	FailureThreshold int // consecutive failures before UNHEALTHY
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ProbeInterval:    30 * time.Second,
		ProbeTimeout:     10 * time.Second,
		FailureThreshold: 3,
	}
}

// Monitor maintains rolling health records. Probes and live call outcomes
// feed the same counters, so health reflects real traffic. The monitor
// never fails a caller's request path: probe errors are logged, not raised.
type Monitor struct {
	cfg    Config
	logger *slog.Logger

	mu        sync.RWMutex
	records   map[string]*record
	providers map[string]provider.Provider

	started   atomic.Bool
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewMonitor creates a health monitor.
func NewMonitor(cfg Config, logger *slog.Logger) *Monitor {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 10 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		cfg:       cfg,
		logger:    logger,
		records:   make(map[string]*record),
		providers: make(map[string]provider.Provider),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Register adds a provider to the probe set. Its record starts UNKNOWN.
func (m *Monitor) Register(name string, p provider.Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[name]; !ok {
		m.records[name] = &record{status: StatusUnknown}
	}
	m.providers[name] = p
}

// Start launches the background probe loop. It is a no-op when probing is
// disabled or the monitor already started.
func (m *Monitor) Start() {
	if m.cfg.ProbeInterval <= 0 {
		return
	}
	if !m.started.CompareAndSwap(false, true) {
		return
	}
	go m.run()
}

func (m *Monitor) run() {
	defer close(m.done)

	ticker := time.NewTicker(m.cfg.ProbeInterval)
	defer ticker.Stop()

	m.probeAll()

	for {
		select {
		case <-ticker.C:
			m.probeAll()
		case <-m.stop:
			return
		}
	}
}

func (m *Monitor) probeAll() {
	m.mu.RLock()
	targets := make(map[string]provider.Provider, len(m.providers))
	for name, p := range m.providers {
		targets[name] = p
	}
	m.mu.RUnlock()

	for name, p := range targets {
		select {
		case <-m.stop:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.ProbeTimeout)
		latency, err := p.Probe(ctx)
		cancel()

		if err != nil {
			m.ReportFailure(name)
			m.logger.Warn("health probe failed", "provider", name, "error", err)
			continue
		}
		m.ReportSuccess(name, latency)
	}
}

// ReportSuccess records a successful probe or live call. It resets the
// consecutive failure count and may transition UNHEALTHY back to HEALTHY.
func (m *Monitor) ReportSuccess(name string, latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.getOrCreate(name)
	rec.totalChecks++
	rec.successCount++
	rec.consecutiveFailures = 0
	rec.lastLatency = latency
	rec.lastCheck = time.Now()
	rec.status = StatusHealthy
}

// ReportFailure records a failed probe or live call and transitions to
// UNHEALTHY once the failure threshold is reached.
func (m *Monitor) ReportFailure(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.getOrCreate(name)
	now := time.Now()
	rec.totalChecks++
	rec.consecutiveFailures++
	rec.lastCheck = now
	rec.lastFailure = now
	if rec.consecutiveFailures >= m.cfg.FailureThreshold {
		rec.status = StatusUnhealthy
	}
}

// getOrCreate must be called with the lock held.
func (m *Monitor) getOrCreate(name string) *record {
	rec, ok := m.records[name]
	if !ok {
		rec = &record{status: StatusUnknown}
		m.records[name] = rec
	}
	return rec
}

// Status returns the current status for one provider.
func (m *Monitor) Status(name string) Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if rec, ok := m.records[name]; ok {
		return rec.status
	}
	return StatusUnknown
}

// Snapshot returns a copy of every provider's record. It never blocks on
// an in-flight probe.
func (m *Monitor) Snapshot() map[string]Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]Snapshot, len(m.records))
	for name, rec := range m.records {
		out[name] = snapshotOf(rec)
	}
	return out
}

// SnapshotFor returns one provider's record copy.
func (m *Monitor) SnapshotFor(name string) (Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[name]
	if !ok {
		return Snapshot{}, false
	}
	return snapshotOf(rec), true
}

func snapshotOf(rec *record) Snapshot {
	var rate float64
	if rec.totalChecks > 0 {
		rate = float64(rec.successCount) / float64(rec.totalChecks)
	}
	return Snapshot{
		Status:              rec.status,
		Healthy:             rec.status != StatusUnhealthy,
		TotalChecks:         rec.totalChecks,
		SuccessCount:        rec.successCount,
		ConsecutiveFailures: rec.consecutiveFailures,
		SuccessRate:         rate,
		LastLatency:         rec.lastLatency,
		LastCheck:           rec.lastCheck,
		LastFailure:         rec.lastFailure,
	}
}

// Close stops the probe loop and waits for it to exit. Safe to call more
// than once, and when the loop never started.
func (m *Monitor) Close() {
	m.closeOnce.Do(func() { close(m.stop) })
	if m.started.Load() {
		<-m.done
	}
}
