// Package metrics provides Prometheus metrics for router traffic: request
// counts, latencies, cache outcomes, and cost.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "llmrouter"

// LatencyBuckets defines histogram buckets for latency metrics, in seconds.
var LatencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0,
}

// Collector holds the router's Prometheus instruments. Instruments are
// registered on the registerer passed to NewCollector, so independent
// router instances can coexist in one process.
type Collector struct {
	requestsTotal  *prometheus.CounterVec
	requestsFailed *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	costTotal      *prometheus.CounterVec
}

// NewCollector creates a collector registered on reg. A nil reg uses the
// default registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of routed requests",
		}, []string{"provider", "model"}),
		requestsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_failed_total",
			Help:      "Total number of failed requests",
		}, []string{"model"}),
		requestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_latency_seconds",
			Help:      "End-to-end request latency in seconds",
			Buckets:   LatencyBuckets,
		}, []string{"provider", "model"}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		}),
		costTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cost_usd_total",
			Help:      "Cumulative completion cost in USD",
		}, []string{"provider"}),
	}
}

// RecordRequest records a completed request.
func (c *Collector) RecordRequest(provider, model string, latency time.Duration, cost float64) {
	if c == nil {
		return
	}
	c.requestsTotal.WithLabelValues(provider, model).Inc()
	c.requestLatency.WithLabelValues(provider, model).Observe(latency.Seconds())
	if cost > 0 {
		c.costTotal.WithLabelValues(provider).Add(cost)
	}
}

// RecordFailure records a request that exhausted every provider.
func (c *Collector) RecordFailure(model string) {
	if c == nil {
		return
	}
	c.requestsFailed.WithLabelValues(model).Inc()
}

// RecordCacheHit records a cache hit.
func (c *Collector) RecordCacheHit() {
	if c == nil {
		return
	}
	c.cacheHits.Inc()
}

// RecordCacheMiss records a cache miss.
func (c *Collector) RecordCacheMiss() {
	if c == nil {
		return
	}
	c.cacheMisses.Inc()
}
