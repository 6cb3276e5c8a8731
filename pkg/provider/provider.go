// Package provider defines the public interface for LLM provider adapters.
// Each upstream (OpenAI, Anthropic, a local model server, ...) implements
// this interface; the router depends only on it.
package provider

import (
	"context"
	"time"

	"github.com/Sherin-SEF-AI/llm-router/pkg/types"
)

// Provider is the uniform capability the router requires from an upstream.
// Failures must be mapped to pkg/errors.ProviderError so the failover
// controller can classify them.
type Provider interface {
	// Name returns the provider identifier, e.g. "openai-primary".
	Name() string

	// Complete performs a single completion against the upstream.
	Complete(ctx context.Context, req *types.Request) (*types.Completion, error)

	// Stream performs a streamed completion. The returned ChunkStream must be
	// closed by the caller; chunks are delivered in upstream order.
	Stream(ctx context.Context, req *types.Request) (ChunkStream, error)

	// Probe issues a lightweight health check and reports its latency.
	Probe(ctx context.Context) (time.Duration, error)
}

// ChunkStream is a finite, single-pass sequence of content chunks.
type ChunkStream interface {
	// Next returns the next chunk. It returns io.EOF when the stream is
	// complete, and Usage (possibly zero) alongside the final chunk or EOF
	// when the upstream reports token accounting.
	Next() (string, error)

	// Usage returns the token usage reported so far. Valid after EOF; before
	// that it reflects whatever the upstream has already accounted.
	Usage() types.Usage

	// Close releases the underlying connection. Safe to call more than once.
	Close() error
}

// Record describes a registered provider. It is immutable after
// registration; only the provider's live health and cost state changes.
type Record struct {
	// Name uniquely identifies this registration.
	Name string `json:"name"`

	// Kind is the upstream flavor, e.g. "openai", "anthropic".
	Kind string `json:"kind"`

	// Priority orders providers for the priority strategy; lower is
	// preferred.
	Priority int `json:"priority"`

	// Timeout bounds each call attempt against this provider. Zero means the
	// router default.
	Timeout time.Duration `json:"timeout"`

	// MaxRetries overrides the router's per-provider retry budget. Zero
	// means the router default.
	MaxRetries int `json:"max_retries"`

	// InputCostPer1K and OutputCostPer1K override the pricing table for this
	// provider's models, in USD per 1000 tokens. Zero means table lookup.
	InputCostPer1K  float64 `json:"input_cost_per_1k"`
	OutputCostPer1K float64 `json:"output_cost_per_1k"`
}
