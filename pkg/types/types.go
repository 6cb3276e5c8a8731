// Package types defines the core data structures exchanged between the
// router and provider adapters. Requests are provider-agnostic; every
// adapter receives the same normalized form.
package types

import (
	"time"

	"github.com/goccy/go-json"
)

// Message is a single turn in a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a normalized completion request. Either Prompt or Messages is
// set; when both are present, Messages wins.
type Request struct {
	Model       string    `json:"model"`
	Prompt      string    `json:"prompt,omitempty"`
	Messages    []Message `json:"messages,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
	TopP        *float64  `json:"top_p,omitempty"`
	Stop        []string  `json:"stop,omitempty"`
}

// RequestOption mutates a Request during construction.
type RequestOption func(*Request)

// WithMaxTokens caps the number of generated tokens.
func WithMaxTokens(n int) RequestOption {
	return func(r *Request) { r.MaxTokens = n }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) RequestOption {
	return func(r *Request) { r.Temperature = &t }
}

// WithTopP sets the nucleus sampling parameter.
func WithTopP(p float64) RequestOption {
	return func(r *Request) { r.TopP = &p }
}

// WithStop sets the stop sequences.
func WithStop(stop ...string) RequestOption {
	return func(r *Request) { r.Stop = stop }
}

// NewRequest builds a Request from a bare prompt.
func NewRequest(prompt, model string, opts ...RequestOption) *Request {
	r := &Request{Model: model, Prompt: prompt}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Usage holds token counts reported by a provider for one completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Completion is the result of a completion request. Once produced it is
// immutable and may be cached by fingerprint.
type Completion struct {
	Content   string        `json:"content"`
	Provider  string        `json:"provider"`
	Model     string        `json:"model"`
	Usage     Usage         `json:"usage"`
	Cost      float64       `json:"cost"`
	Latency   time.Duration `json:"latency"`
	Timestamp time.Time     `json:"timestamp"`
	Cached    bool          `json:"cached,omitempty"`
}

// Marshal serializes a completion for cache storage.
func (c *Completion) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

// UnmarshalCompletion deserializes a cached completion.
func UnmarshalCompletion(data []byte) (*Completion, error) {
	var c Completion
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ProviderStats is a per-provider slice of the router counters. Outcomes
// are counted per live attempt: a request that retried twice against a
// provider before failing over contributes two failures to it. AvgLatencyMs
// covers successful completions; CacheHitRate is the share of requests
// attributed to the provider that were served from cache.
type ProviderStats struct {
	TotalRequests int64   `json:"total_requests"`
	SuccessCount  int64   `json:"success_count"`
	FailureCount  int64   `json:"failure_count"`
	SuccessRate   float64 `json:"success_rate"`
	AvgLatencyMs  float64 `json:"average_latency_ms"`
	CacheHits     int64   `json:"cache_hits"`
	CacheHitRate  float64 `json:"cache_hit_rate"`
}

// RouterStats is recomputed on demand from the router's counters; it is
// never stored independently. Once in-flight requests settle,
// TotalRequests equals SuccessRequests + FailedRequests + AbandonedStreams.
type RouterStats struct {
	TotalRequests    int64                    `json:"total_requests"`
	SuccessRequests  int64                    `json:"successful_requests"`
	FailedRequests   int64                    `json:"failed_requests"`
	AbandonedStreams int64                    `json:"abandoned_streams"`
	CacheHits        int64                    `json:"cache_hits"`
	CacheMisses      int64                    `json:"cache_misses"`
	AvgLatencyMs     float64                  `json:"average_latency_ms"`
	ProviderStats    map[string]ProviderStats `json:"provider_stats"`
}
