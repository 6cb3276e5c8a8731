// Package llmrouter provides client-side routing across multiple LLM
// providers. It selects which upstream serves a request, caches responses,
// retries and fails over on error, tracks provider health and cost, and
// supports both batch and streamed completions.
//
// Basic usage:
//
//	router, err := llmrouter.New(
//	    llmrouter.WithStrategy("priority"),
//	    llmrouter.WithCacheTTL(time.Hour),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer router.Close()
//
//	err = router.AddProvider(llmrouter.Record{Name: "openai", Priority: 1}, openaiAdapter)
//
//	resp, err := router.Complete(ctx, llmrouter.NewRequest("Hello!", "gpt-4o"))
package llmrouter

import (
	"github.com/Sherin-SEF-AI/llm-router/internal/cost"
	"github.com/Sherin-SEF-AI/llm-router/internal/health"
	"github.com/Sherin-SEF-AI/llm-router/internal/pricing"
	"github.com/Sherin-SEF-AI/llm-router/pkg/errors"
	"github.com/Sherin-SEF-AI/llm-router/pkg/provider"
	"github.com/Sherin-SEF-AI/llm-router/pkg/types"
)

// Version is the current version of the router library.
const Version = "1.0.0"

// Re-export core request/response types for convenience.
type (
	// Request is a normalized completion request.
	Request = types.Request

	// Message is a single turn in a chat conversation.
	Message = types.Message

	// Completion is the result of a completion request.
	Completion = types.Completion

	// Usage contains token usage statistics for a request.
	Usage = types.Usage

	// RouterStats holds the router's aggregate counters.
	RouterStats = types.RouterStats
)

// Re-export provider types.
type (
	// Provider is the uniform capability interface for upstream adapters.
	Provider = provider.Provider

	// ChunkStream is a finite, single-pass sequence of content chunks.
	ChunkStream = provider.ChunkStream

	// Record describes a registered provider.
	Record = provider.Record
)

// Re-export health, cost, and pricing types read through the facade.
type (
	// HealthSnapshot is a point-in-time copy of a provider health record.
	HealthSnapshot = health.Snapshot

	// CostSummary aggregates cost events over a time range.
	CostSummary = cost.Summary

	// CostEvent is one completed request's cost record.
	CostEvent = cost.Event

	// ModelPricing defines the per-1K-token pricing for a model.
	ModelPricing = pricing.ModelPricing
)

// Re-export error types for classification at call sites.
type (
	// ProviderError is a standardized error from a provider adapter.
	ProviderError = errors.ProviderError

	// ExhaustedError is returned when every candidate provider failed.
	ExhaustedError = errors.ExhaustedError

	// ConfigError signals invalid router configuration.
	ConfigError = errors.ConfigError
)

// NewRequest builds a Request from a bare prompt.
var NewRequest = types.NewRequest
