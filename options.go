package llmrouter

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Sherin-SEF-AI/llm-router/internal/config"
	"github.com/Sherin-SEF-AI/llm-router/internal/failover"
	"github.com/Sherin-SEF-AI/llm-router/internal/health"
	"github.com/Sherin-SEF-AI/llm-router/internal/pricing"
	"github.com/Sherin-SEF-AI/llm-router/pkg/cache"
	"github.com/Sherin-SEF-AI/llm-router/pkg/provider"
	"github.com/Sherin-SEF-AI/llm-router/strategies"
)

// RouterConfig holds all configuration for the router.
type RouterConfig struct {
	// Routing
	Strategy string

	// Retry / failover
	MaxRetries     int
	Backoff        time.Duration
	MaxBackoff     time.Duration
	Jitter         float64
	AttemptTimeout time.Duration

	// Caching
	CacheEnabled   bool
	Cache          cache.Cache // custom backend; nil uses the in-memory store
	CacheTTL       time.Duration
	CacheMaxSize   int
	CostOnCacheHit bool // record a cost event when serving from cache

	// Health monitoring
	HealthEnabled       bool
	HealthProbeInterval time.Duration
	HealthProbeTimeout  time.Duration
	FailureThreshold    int

	// Cost tracking
	CostRetention time.Duration // 0 keeps every event
	Pricing       []pricing.ModelPricing

	// Pre-declared provider records awaiting a BindProvider call.
	PendingRecords []provider.Record

	// Observability
	Logger        *slog.Logger
	MetricsReg    prometheus.Registerer
	EnableMetrics bool
}

// Option is a function that configures the router.
type Option func(*RouterConfig)

// defaultRouterConfig returns sensible defaults.
func defaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		Strategy:            strategies.StrategyPriority,
		MaxRetries:          2,
		Backoff:             500 * time.Millisecond,
		MaxBackoff:          5 * time.Second,
		Jitter:              0.2,
		AttemptTimeout:      30 * time.Second,
		CacheEnabled:        true,
		CacheTTL:            time.Hour,
		CacheMaxSize:        1000,
		HealthEnabled:       true,
		HealthProbeInterval: 30 * time.Second,
		HealthProbeTimeout:  10 * time.Second,
		FailureThreshold:    3,
		Logger:              slog.Default(),
	}
}

// WithStrategy sets the routing strategy by name: "priority",
// "cost_optimized", or "round_robin".
func WithStrategy(name string) Option {
	return func(c *RouterConfig) { c.Strategy = name }
}

// WithRetry configures the per-provider retry budget and initial backoff.
func WithRetry(maxRetries int, backoff time.Duration) Option {
	return func(c *RouterConfig) {
		c.MaxRetries = maxRetries
		c.Backoff = backoff
	}
}

// WithMaxBackoff caps the exponential backoff. Zero disables the cap.
func WithMaxBackoff(d time.Duration) Option {
	return func(c *RouterConfig) { c.MaxBackoff = d }
}

// WithJitter sets the backoff jitter ratio (0.0 - 1.0).
func WithJitter(jitter float64) Option {
	return func(c *RouterConfig) { c.Jitter = jitter }
}

// WithTimeout sets the default per-attempt timeout. Provider records may
// override it.
func WithTimeout(d time.Duration) Option {
	return func(c *RouterConfig) { c.AttemptTimeout = d }
}

// WithCache installs a custom cache backend, e.g. the Redis cache from
// caches/redis.
func WithCache(backend cache.Cache) Option {
	return func(c *RouterConfig) {
		c.CacheEnabled = true
		c.Cache = backend
	}
}

// WithoutCache disables response caching entirely.
func WithoutCache() Option {
	return func(c *RouterConfig) { c.CacheEnabled = false }
}

// WithCacheTTL sets the completion cache TTL.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *RouterConfig) { c.CacheTTL = ttl }
}

// WithCacheMaxSize bounds the in-memory cache entry count. Ignored when a
// custom backend is installed.
func WithCacheMaxSize(n int) Option {
	return func(c *RouterConfig) { c.CacheMaxSize = n }
}

// WithCostOnCacheHit controls whether serving a cached completion records
// a cost event for its original provider. The default is false: a cache
// hit consumes no upstream tokens.
func WithCostOnCacheHit(enabled bool) Option {
	return func(c *RouterConfig) { c.CostOnCacheHit = enabled }
}

// WithHealthMonitoring enables or disables the background probe loop.
// Live request outcomes feed health records either way.
func WithHealthMonitoring(enabled bool) Option {
	return func(c *RouterConfig) { c.HealthEnabled = enabled }
}

// WithHealthCheckInterval sets the probe loop interval.
func WithHealthCheckInterval(d time.Duration) Option {
	return func(c *RouterConfig) { c.HealthProbeInterval = d }
}

// WithHealthProbeTimeout bounds each individual probe call.
func WithHealthProbeTimeout(d time.Duration) Option {
	return func(c *RouterConfig) { c.HealthProbeTimeout = d }
}

// WithFailureThreshold sets the consecutive failure count that marks a
// provider unhealthy.
func WithFailureThreshold(n int) Option {
	return func(c *RouterConfig) { c.FailureThreshold = n }
}

// WithCostRetention prunes cost events older than d on record. Zero keeps
// every event.
func WithCostRetention(d time.Duration) Option {
	return func(c *RouterConfig) { c.CostRetention = d }
}

// WithPricing replaces the default model pricing table.
func WithPricing(table []pricing.ModelPricing) Option {
	return func(c *RouterConfig) { c.Pricing = table }
}

// WithLogger sets the logger for the router.
func WithLogger(logger *slog.Logger) Option {
	return func(c *RouterConfig) { c.Logger = logger }
}

// WithMetrics registers Prometheus instruments on reg. A nil reg uses the
// default registerer.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *RouterConfig) {
		c.EnableMetrics = true
		c.MetricsReg = reg
	}
}

// WithRecord pre-declares a provider record. The provider becomes routable
// once BindProvider attaches an adapter to it.
func WithRecord(rec Record) Option {
	return func(c *RouterConfig) {
		c.PendingRecords = append(c.PendingRecords, rec)
	}
}

// ConfigFromFile loads a YAML config file and translates it into options.
// Provider entries become pending records for BindProvider.
func ConfigFromFile(path string) ([]Option, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	var opts []Option
	if cfg.Routing.Strategy != "" {
		opts = append(opts, WithStrategy(cfg.Routing.Strategy))
	}
	if cfg.Routing.MaxRetries > 0 || cfg.Routing.Backoff > 0 {
		retries := cfg.Routing.MaxRetries
		backoff := cfg.Routing.Backoff
		if backoff <= 0 {
			backoff = 500 * time.Millisecond
		}
		opts = append(opts, WithRetry(retries, backoff))
	}
	if cfg.Routing.MaxBackoff > 0 {
		opts = append(opts, WithMaxBackoff(cfg.Routing.MaxBackoff))
	}
	if cfg.Routing.Timeout > 0 {
		opts = append(opts, WithTimeout(cfg.Routing.Timeout))
	}

	if !cfg.Cache.Enabled {
		opts = append(opts, WithoutCache())
	}
	if cfg.Cache.TTL > 0 {
		opts = append(opts, WithCacheTTL(cfg.Cache.TTL))
	}
	if cfg.Cache.MaxSize > 0 {
		opts = append(opts, WithCacheMaxSize(cfg.Cache.MaxSize))
	}

	opts = append(opts, WithHealthMonitoring(cfg.Health.Enabled))
	if cfg.Health.ProbeInterval > 0 {
		opts = append(opts, WithHealthCheckInterval(cfg.Health.ProbeInterval))
	}
	if cfg.Health.ProbeTimeout > 0 {
		opts = append(opts, WithHealthProbeTimeout(cfg.Health.ProbeTimeout))
	}
	if cfg.Health.FailureThreshold > 0 {
		opts = append(opts, WithFailureThreshold(cfg.Health.FailureThreshold))
	}

	if cfg.Cost.Retention > 0 {
		opts = append(opts, WithCostRetention(cfg.Cost.Retention))
	}

	for _, p := range cfg.Providers {
		opts = append(opts, WithRecord(Record{
			Name:            p.Name,
			Kind:            p.Kind,
			Priority:        p.Priority,
			Timeout:         p.Timeout,
			MaxRetries:      p.MaxRetries,
			InputCostPer1K:  p.InputCostPer1K,
			OutputCostPer1K: p.OutputCostPer1K,
		}))
	}

	return opts, nil
}

// failoverConfig maps the router config onto the executor's knobs.
func (c *RouterConfig) failoverConfig() failover.Config {
	return failover.Config{
		MaxRetries:     c.MaxRetries,
		Backoff:        c.Backoff,
		MaxBackoff:     c.MaxBackoff,
		Jitter:         c.Jitter,
		AttemptTimeout: c.AttemptTimeout,
	}
}

// healthConfig maps the router config onto the monitor's knobs.
func (c *RouterConfig) healthConfig() health.Config {
	interval := c.HealthProbeInterval
	if !c.HealthEnabled {
		interval = 0 // disables the probe loop, live outcomes still recorded
	}
	return health.Config{
		ProbeInterval:    interval,
		ProbeTimeout:     c.HealthProbeTimeout,
		FailureThreshold: c.FailureThreshold,
	}
}
