// Package pricing estimates completion cost from static per-token price
// tables.
package pricing

import (
	"strings"
	"sync"
)

// ModelPricing defines the pricing for a model. Model supports a trailing
// wildcard, e.g. "gpt-4*".
type ModelPricing struct {
	Model           string
	InputCostPer1K  float64 // USD per 1000 input tokens
	OutputCostPer1K float64 // USD per 1000 output tokens
}

// DefaultPricing contains default pricing for common models, in USD per
// 1000 tokens.
var DefaultPricing = []ModelPricing{
	{Model: "gpt-4o", InputCostPer1K: 0.005, OutputCostPer1K: 0.015},
	{Model: "gpt-4o-mini", InputCostPer1K: 0.00015, OutputCostPer1K: 0.0006},
	{Model: "gpt-4-turbo*", InputCostPer1K: 0.01, OutputCostPer1K: 0.03},
	{Model: "gpt-4*", InputCostPer1K: 0.03, OutputCostPer1K: 0.06},
	{Model: "gpt-3.5-turbo", InputCostPer1K: 0.0005, OutputCostPer1K: 0.0015},

	{Model: "claude-3-5-sonnet*", InputCostPer1K: 0.003, OutputCostPer1K: 0.015},
	{Model: "claude-3-opus*", InputCostPer1K: 0.015, OutputCostPer1K: 0.075},
	{Model: "claude-3-haiku*", InputCostPer1K: 0.00025, OutputCostPer1K: 0.00125},

	{Model: "gemini-1.5-pro*", InputCostPer1K: 0.00125, OutputCostPer1K: 0.005},
	{Model: "gemini-1.5-flash*", InputCostPer1K: 0.000075, OutputCostPer1K: 0.0003},

	{Model: "deepseek-chat", InputCostPer1K: 0.00014, OutputCostPer1K: 0.00028},
	{Model: "llama-3*", InputCostPer1K: 0.0002, OutputCostPer1K: 0.0002},
	{Model: "mistral-large*", InputCostPer1K: 0.004, OutputCostPer1K: 0.012},
	{Model: "mistral-small*", InputCostPer1K: 0.001, OutputCostPer1K: 0.003},
}

// UnknownModelCost is the per-1K-token cost assumed when a model has no
// pricing entry. It is deliberately far above any real 2025 price so that
// unconfigured models are deprioritized by the cost strategy instead of
// looking free.
const UnknownModelCost = 1000.0

// Calculator calculates the cost of API usage.
type Calculator struct {
	mu      sync.RWMutex
	pricing map[string]ModelPricing
}

// NewCalculator creates a pricing calculator. A nil table uses
// DefaultPricing.
func NewCalculator(pricing []ModelPricing) *Calculator {
	if pricing == nil {
		pricing = DefaultPricing
	}

	c := &Calculator{pricing: make(map[string]ModelPricing)}
	for _, p := range pricing {
		c.pricing[p.Model] = p
	}
	return c
}

// Calculate returns the cost for the given model and token counts.
// Returns 0 if the model is not found in the pricing data.
func (c *Calculator) Calculate(model string, inputTokens, outputTokens int) float64 {
	p, ok := c.findPricing(model)
	if !ok {
		return 0
	}
	return float64(inputTokens)/1000.0*p.InputCostPer1K +
		float64(outputTokens)/1000.0*p.OutputCostPer1K
}

// Estimate returns the combined per-1K-token rate used for ranking
// providers before any tokens are consumed. Unknown models estimate at
// UnknownModelCost.
func (c *Calculator) Estimate(model string) float64 {
	p, ok := c.findPricing(model)
	if !ok {
		return UnknownModelCost
	}
	return p.InputCostPer1K + p.OutputCostPer1K
}

// findPricing finds the pricing for a model: exact match first, then the
// longest matching wildcard prefix.
func (c *Calculator) findPricing(model string) (ModelPricing, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	modelLower := strings.ToLower(model)

	for pattern, p := range c.pricing {
		if strings.EqualFold(pattern, model) {
			return p, true
		}
	}

	var best *ModelPricing
	var bestLen int
	for pattern, p := range c.pricing {
		if !strings.HasSuffix(pattern, "*") {
			continue
		}
		prefix := strings.ToLower(strings.TrimSuffix(pattern, "*"))
		if strings.HasPrefix(modelLower, prefix) && len(prefix) > bestLen {
			pCopy := p
			best = &pCopy
			bestLen = len(prefix)
		}
	}
	if best != nil {
		return *best, true
	}
	return ModelPricing{}, false
}

// GetPricing returns the pricing entry that would apply to model.
func (c *Calculator) GetPricing(model string) (ModelPricing, bool) {
	return c.findPricing(model)
}

// AddPricing adds or updates pricing for a specific model.
func (c *Calculator) AddPricing(p ModelPricing) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pricing[p.Model] = p
}
