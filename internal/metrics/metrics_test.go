package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequest("openai", "gpt-4o", 120*time.Millisecond, 0.02)
	c.RecordRequest("openai", "gpt-4o", 80*time.Millisecond, 0.01)
	c.RecordFailure("gpt-4o")
	c.RecordCacheHit()
	c.RecordCacheMiss()
	c.RecordCacheMiss()

	assert.InDelta(t, 2, testutil.ToFloat64(c.requestsTotal.WithLabelValues("openai", "gpt-4o")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(c.requestsFailed.WithLabelValues("gpt-4o")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(c.cacheHits), 1e-9)
	assert.InDelta(t, 2, testutil.ToFloat64(c.cacheMisses), 1e-9)
	assert.InDelta(t, 0.03, testutil.ToFloat64(c.costTotal.WithLabelValues("openai")), 1e-9)
}

func TestCollector_ZeroCostNotCounted(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequest("local", "llama-3-8b", time.Millisecond, 0)

	assert.Zero(t, testutil.CollectAndCount(c.costTotal))
}

func TestCollector_NilReceiverSafe(t *testing.T) {
	var c *Collector

	// Metrics are optional; a disabled collector must be inert.
	c.RecordRequest("p", "m", time.Second, 1)
	c.RecordFailure("m")
	c.RecordCacheHit()
	c.RecordCacheMiss()
}
