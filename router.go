package llmrouter

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sherin-SEF-AI/llm-router/caches/memory"
	"github.com/Sherin-SEF-AI/llm-router/internal/cost"
	"github.com/Sherin-SEF-AI/llm-router/internal/failover"
	"github.com/Sherin-SEF-AI/llm-router/internal/health"
	"github.com/Sherin-SEF-AI/llm-router/internal/metrics"
	"github.com/Sherin-SEF-AI/llm-router/internal/pricing"
	"github.com/Sherin-SEF-AI/llm-router/pkg/cache"
	routererrors "github.com/Sherin-SEF-AI/llm-router/pkg/errors"
	"github.com/Sherin-SEF-AI/llm-router/pkg/provider"
	"github.com/Sherin-SEF-AI/llm-router/pkg/types"
	"github.com/Sherin-SEF-AI/llm-router/strategies"
)

// Router multiplexes completion requests across registered providers. It
// owns caching, health monitoring, failover, and cost accounting; callers
// interact with providers only through it.
//
// All methods are safe for concurrent use.
type Router struct {
	cfg    *RouterConfig
	logger *slog.Logger

	mu       sync.RWMutex
	records  []*provider.Record // registration order
	adapters map[string]provider.Provider
	strategy strategies.Strategy

	cache    cache.Cache // nil when caching is disabled
	ownCache bool
	monitor  *health.Monitor
	tracker  *cost.Tracker
	executor *failover.Executor
	calc     *pricing.Calculator
	metrics  *metrics.Collector

	totalRequests    atomic.Int64
	successRequests  atomic.Int64
	failedRequests   atomic.Int64
	abandonedStreams atomic.Int64
	cacheHits        atomic.Int64
	cacheMisses      atomic.Int64
	latencySum       atomic.Int64 // nanoseconds across successful live calls
	latencyCount     atomic.Int64

	statMu       sync.Mutex
	providerStat map[string]*providerCounters

	closed atomic.Bool
}

type providerCounters struct {
	total      int64
	success    int64
	failure    int64
	latencySum time.Duration // across successes only
	cacheHits  int64
}

// attemptReporter feeds every attempt outcome from the failover executor to
// the health monitor and mirrors failures into the per-provider counters.
// Successes land in the counters through finishLive, which also carries the
// completion latency.
type attemptReporter struct {
	r *Router
}

func (a attemptReporter) ReportSuccess(name string, latency time.Duration) {
	a.r.monitor.ReportSuccess(name, latency)
}

func (a attemptReporter) ReportFailure(name string) {
	a.r.monitor.ReportFailure(name)
	a.r.recordOutcome(name, false, 0)
}

// New creates a router. It returns a ConfigError when an option is invalid,
// e.g. an unknown strategy name.
func New(opts ...Option) (*Router, error) {
	cfg := defaultRouterConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	calc := pricing.NewCalculator(cfg.Pricing)

	strategy, err := strategies.New(cfg.Strategy, calc)
	if err != nil {
		return nil, err
	}

	monitor := health.NewMonitor(cfg.healthConfig(), cfg.Logger)

	r := &Router{
		cfg:          cfg,
		logger:       cfg.Logger,
		adapters:     make(map[string]provider.Provider),
		strategy:     strategy,
		monitor:      monitor,
		tracker:      cost.NewTracker(cfg.CostRetention),
		calc:         calc,
		providerStat: make(map[string]*providerCounters),
	}
	r.executor = failover.NewExecutor(cfg.failoverConfig(), attemptReporter{r}, cfg.Logger)

	if cfg.CacheEnabled {
		if cfg.Cache != nil {
			r.cache = cfg.Cache
		} else {
			mc := memory.DefaultConfig()
			mc.MaxSize = cfg.CacheMaxSize
			mc.DefaultTTL = cfg.CacheTTL
			r.cache = memory.New(mc)
			r.ownCache = true
		}
	}

	if cfg.EnableMetrics {
		r.metrics = metrics.NewCollector(cfg.MetricsReg)
	}

	monitor.Start()

	return r, nil
}

// AddProvider registers a provider adapter under rec. Registration order is
// the final tiebreak for every strategy. Duplicate names are rejected.
func (r *Router) AddProvider(rec Record, p Provider) error {
	if r.closed.Load() {
		return routererrors.NewConfigError("router is closed")
	}
	if rec.Name == "" {
		rec.Name = p.Name()
	}
	if rec.Name == "" {
		return routererrors.NewConfigError("provider must have a name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.adapters[rec.Name]; dup {
		return routererrors.NewConfigError("provider %q already registered", rec.Name)
	}
	recCopy := rec
	r.records = append(r.records, &recCopy)
	r.adapters[rec.Name] = p
	r.monitor.Register(rec.Name, p)

	r.logger.Info("provider registered",
		"provider", rec.Name,
		"kind", rec.Kind,
		"priority", rec.Priority,
	)
	return nil
}

// BindProvider attaches an adapter to a record pre-declared via WithRecord
// or a config file. It fails when no pending record carries name.
func (r *Router) BindProvider(name string, p Provider) error {
	for _, rec := range r.cfg.PendingRecords {
		if rec.Name == name {
			return r.AddProvider(rec, p)
		}
	}
	return routererrors.NewConfigError("no pending record for provider %q", name)
}

// Providers returns the registered provider names in registration order.
func (r *Router) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.records))
	for i, rec := range r.records {
		out[i] = rec.Name
	}
	return out
}

// Complete routes a completion request: cache first, then the ranked
// provider list with retry and failover. The returned completion carries
// the serving provider, cost, and latency; cached results are flagged.
func (r *Router) Complete(ctx context.Context, req *types.Request) (*types.Completion, error) {
	if r.closed.Load() {
		return nil, routererrors.NewConfigError("router is closed")
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	r.totalRequests.Add(1)

	if comp, ok := r.cacheLookup(ctx, req); ok {
		r.successRequests.Add(1)
		return comp, nil
	}

	candidates, err := r.rank(req)
	if err != nil {
		r.failedRequests.Add(1)
		if r.metrics != nil {
			r.metrics.RecordFailure(req.Model)
		}
		return nil, err
	}

	var result *types.Completion
	err = r.executor.Execute(ctx, req.Model, candidates, func(ctx context.Context, cand strategies.Candidate, timeout time.Duration) error {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		start := time.Now()
		comp, err := cand.Adapter.Complete(attemptCtx, req)
		if err != nil {
			return err
		}

		comp.Provider = cand.Record.Name
		if comp.Model == "" {
			comp.Model = req.Model
		}
		comp.Latency = time.Since(start)
		if comp.Timestamp.IsZero() {
			comp.Timestamp = time.Now()
		}
		comp.Cost = r.costOf(cand.Record, comp.Model, comp.Usage)
		result = comp
		return nil
	})
	if err != nil {
		r.failedRequests.Add(1)
		if r.metrics != nil {
			r.metrics.RecordFailure(req.Model)
		}
		return nil, err
	}

	r.finishLive(ctx, req, result)
	return result, nil
}

// finishLive applies the post-success bookkeeping shared by Complete and
// the streaming path: counters, cost event, metrics, and the cache store.
func (r *Router) finishLive(ctx context.Context, req *types.Request, comp *types.Completion) {
	r.successRequests.Add(1)
	r.latencySum.Add(int64(comp.Latency))
	r.latencyCount.Add(1)
	r.recordOutcome(comp.Provider, true, comp.Latency)

	r.tracker.Record(comp.Provider, comp.Model, comp.Cost,
		comp.Usage.PromptTokens, comp.Usage.CompletionTokens, comp.Timestamp)

	if r.metrics != nil {
		r.metrics.RecordRequest(comp.Provider, comp.Model, comp.Latency, comp.Cost)
	}

	r.cacheStore(ctx, req, comp)
}

// cacheLookup checks the cache for a completed response to req. Backend
// errors are logged and treated as a miss.
func (r *Router) cacheLookup(ctx context.Context, req *types.Request) (*types.Completion, bool) {
	if r.cache == nil {
		return nil, false
	}

	key, err := cache.Fingerprint(req)
	if err != nil {
		r.logger.Warn("cache key generation failed", "error", err)
		return nil, false
	}

	data, err := r.cache.Get(ctx, key)
	if err != nil {
		r.logger.Warn("cache lookup failed", "error", err)
		r.cacheMisses.Add(1)
		if r.metrics != nil {
			r.metrics.RecordCacheMiss()
		}
		return nil, false
	}
	if data == nil {
		r.cacheMisses.Add(1)
		if r.metrics != nil {
			r.metrics.RecordCacheMiss()
		}
		return nil, false
	}

	comp, err := types.UnmarshalCompletion(data)
	if err != nil {
		r.logger.Warn("cache entry corrupt, ignoring", "key", key, "error", err)
		r.cacheMisses.Add(1)
		return nil, false
	}

	r.cacheHits.Add(1)
	r.recordCacheHit(comp.Provider)
	if r.metrics != nil {
		r.metrics.RecordCacheHit()
	}

	comp.Cached = true
	if r.cfg.CostOnCacheHit {
		r.tracker.Record(comp.Provider, comp.Model, comp.Cost,
			comp.Usage.PromptTokens, comp.Usage.CompletionTokens, time.Time{})
	}
	return comp, true
}

// cacheStore writes a completed response. Store failures never fail the
// request.
func (r *Router) cacheStore(ctx context.Context, req *types.Request, comp *types.Completion) {
	if r.cache == nil {
		return
	}
	key, err := cache.Fingerprint(req)
	if err != nil {
		return
	}
	data, err := comp.Marshal()
	if err != nil {
		r.logger.Warn("cache serialization failed", "error", err)
		return
	}
	if err := r.cache.Set(ctx, key, data, r.cfg.CacheTTL); err != nil {
		r.logger.Warn("cache store failed", "key", key, "error", err)
	}
}

// rank builds the candidate list under the read lock and hands it to the
// active strategy.
func (r *Router) rank(req *types.Request) ([]strategies.Candidate, error) {
	r.mu.RLock()
	strategy := r.strategy
	candidates := make([]strategies.Candidate, 0, len(r.records))
	for i, rec := range r.records {
		snap, _ := r.monitor.SnapshotFor(rec.Name)
		candidates = append(candidates, strategies.Candidate{
			Record:  rec,
			Adapter: r.adapters[rec.Name],
			Index:   i,
			Health:  snap,
		})
	}
	r.mu.RUnlock()

	if len(candidates) == 0 {
		return nil, routererrors.NewConfigError("no providers registered")
	}
	return strategy.Rank(req, candidates)
}

// costOf computes the request cost from the record's per-1K overrides when
// set, falling back to the pricing table.
func (r *Router) costOf(rec *provider.Record, model string, usage types.Usage) float64 {
	if rec.InputCostPer1K > 0 || rec.OutputCostPer1K > 0 {
		return rec.InputCostPer1K*float64(usage.PromptTokens)/1000 +
			rec.OutputCostPer1K*float64(usage.CompletionTokens)/1000
	}
	return r.calc.Calculate(model, usage.PromptTokens, usage.CompletionTokens)
}

// recordOutcome counts one live attempt outcome against providerName.
// Retried and failed-over attempts each count, matching the health
// monitor's accounting.
func (r *Router) recordOutcome(providerName string, success bool, latency time.Duration) {
	if providerName == "" {
		return
	}
	r.statMu.Lock()
	defer r.statMu.Unlock()
	pc := r.counters(providerName)
	pc.total++
	if success {
		pc.success++
		pc.latencySum += latency
	} else {
		pc.failure++
	}
}

func (r *Router) recordCacheHit(providerName string) {
	if providerName == "" {
		return
	}
	r.statMu.Lock()
	defer r.statMu.Unlock()
	r.counters(providerName).cacheHits++
}

// counters returns providerName's counter block, creating it on first use.
// Callers must hold statMu.
func (r *Router) counters(providerName string) *providerCounters {
	pc, ok := r.providerStat[providerName]
	if !ok {
		pc = &providerCounters{}
		r.providerStat[providerName] = pc
	}
	return pc
}

// Stats returns a snapshot of the router counters.
func (r *Router) Stats() types.RouterStats {
	stats := types.RouterStats{
		TotalRequests:    r.totalRequests.Load(),
		SuccessRequests:  r.successRequests.Load(),
		FailedRequests:   r.failedRequests.Load(),
		AbandonedStreams: r.abandonedStreams.Load(),
		CacheHits:        r.cacheHits.Load(),
		CacheMisses:      r.cacheMisses.Load(),
		ProviderStats:    make(map[string]types.ProviderStats),
	}
	if n := r.latencyCount.Load(); n > 0 {
		stats.AvgLatencyMs = float64(r.latencySum.Load()) / float64(n) / float64(time.Millisecond)
	}

	r.statMu.Lock()
	for name, pc := range r.providerStat {
		ps := types.ProviderStats{
			TotalRequests: pc.total,
			SuccessCount:  pc.success,
			FailureCount:  pc.failure,
			CacheHits:     pc.cacheHits,
		}
		if pc.total > 0 {
			ps.SuccessRate = float64(pc.success) / float64(pc.total)
		}
		if pc.success > 0 {
			ps.AvgLatencyMs = float64(pc.latencySum) / float64(pc.success) / float64(time.Millisecond)
		}
		if n := pc.total + pc.cacheHits; n > 0 {
			ps.CacheHitRate = float64(pc.cacheHits) / float64(n)
		}
		stats.ProviderStats[name] = ps
	}
	r.statMu.Unlock()

	return stats
}

// CacheStats returns the cache backend's counters. The zero value is
// returned when caching is disabled.
func (r *Router) CacheStats() cache.Stats {
	if r.cache == nil {
		return cache.Stats{}
	}
	return r.cache.Stats()
}

// CostSummary aggregates cost events with timestamps at or after since. A
// zero since covers the full retained log.
func (r *Router) CostSummary(since time.Time) cost.Summary {
	return r.tracker.Summary(since)
}

// CostEvents returns the retained cost event log, oldest first.
func (r *Router) CostEvents() []cost.Event {
	return r.tracker.Events()
}

// HealthStatus returns the current health snapshot for every registered
// provider. It never blocks on an in-flight probe.
func (r *Router) HealthStatus() map[string]health.Snapshot {
	return r.monitor.Snapshot()
}

// SetStrategy swaps the routing strategy at runtime. In-flight requests
// keep the ranking they started with; the new strategy applies from the
// next request.
func (r *Router) SetStrategy(name string) error {
	strategy, err := strategies.New(name, r.calc)
	if err != nil {
		return err
	}

	r.mu.Lock()
	old := r.strategy.Name()
	r.strategy = strategy
	r.mu.Unlock()

	r.logger.Info("routing strategy changed", "from", old, "to", name)
	return nil
}

// Strategy returns the active strategy name.
func (r *Router) Strategy() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.strategy.Name()
}

// Close stops the health prober and releases the cache backend when the
// router owns it. Close is idempotent; requests after Close are rejected.
func (r *Router) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}

	r.monitor.Close()

	var err error
	if r.cache != nil && r.ownCache {
		err = r.cache.Close()
	}

	r.logger.Info("router closed")
	return err
}

func validateRequest(req *types.Request) error {
	if req == nil {
		return routererrors.NewConfigError("request is nil")
	}
	if req.Model == "" {
		return routererrors.NewConfigError("request model is required")
	}
	if req.Prompt == "" && len(req.Messages) == 0 {
		return routererrors.NewConfigError("request needs a prompt or messages")
	}
	return nil
}
