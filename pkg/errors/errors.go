// Package errors defines the unified error taxonomy for router operations.
// Provider adapters map their upstream failures onto ProviderError so the
// failover controller can decide between retry and skip without knowing
// anything provider-specific.
package errors

import (
	"fmt"
	"strings"
)

// Common error types as constants for consistency.
const (
	TypeAuthentication     = "authentication_error"
	TypeRateLimit          = "rate_limit_error"
	TypeInvalidRequest     = "invalid_request_error"
	TypeTimeout            = "timeout_error"
	TypeServiceUnavailable = "service_unavailable_error"
	TypeInternalError      = "internal_error"
)

// ProviderError is a standardized error from an LLM provider adapter.
// Retryable distinguishes transient failures (timeouts, rate limits) that the
// failover controller may retry from permanent ones it must skip past.
type ProviderError struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	Retryable bool   `json:"-"`
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("[%s] %s (provider=%s, model=%s)",
		e.Type, e.Message, e.Provider, e.Model)
}

// NewAuthenticationError creates a non-retryable authentication error.
func NewAuthenticationError(provider, model, message string) *ProviderError {
	return &ProviderError{
		Type:     TypeAuthentication,
		Message:  message,
		Provider: provider,
		Model:    model,
	}
}

// NewRateLimitError creates a retryable rate limit error.
func NewRateLimitError(provider, model, message string) *ProviderError {
	return &ProviderError{
		Type:      TypeRateLimit,
		Message:   message,
		Provider:  provider,
		Model:     model,
		Retryable: true,
	}
}

// NewInvalidRequestError creates a non-retryable invalid request error.
func NewInvalidRequestError(provider, model, message string) *ProviderError {
	return &ProviderError{
		Type:     TypeInvalidRequest,
		Message:  message,
		Provider: provider,
		Model:    model,
	}
}

// NewTimeoutError creates a retryable timeout error.
func NewTimeoutError(provider, model, message string) *ProviderError {
	return &ProviderError{
		Type:      TypeTimeout,
		Message:   message,
		Provider:  provider,
		Model:     model,
		Retryable: true,
	}
}

// NewServiceUnavailableError creates a retryable service unavailable error.
func NewServiceUnavailableError(provider, model, message string) *ProviderError {
	return &ProviderError{
		Type:      TypeServiceUnavailable,
		Message:   message,
		Provider:  provider,
		Model:     model,
		Retryable: true,
	}
}

// NewInternalError creates a non-retryable internal error.
func NewInternalError(provider, model, message string) *ProviderError {
	return &ProviderError{
		Type:     TypeInternalError,
		Message:  message,
		Provider: provider,
		Model:    model,
	}
}

// IsRetryable reports whether err is a ProviderError marked retryable.
// Unknown error types are treated as retryable so that plain transport
// failures still go through the retry path.
func IsRetryable(err error) bool {
	if pe, ok := err.(*ProviderError); ok {
		return pe.Retryable
	}
	return true
}

// AttemptError records the final error a single provider produced before the
// controller moved on.
type AttemptError struct {
	Provider string `json:"provider"`
	Attempts int    `json:"attempts"`
	Err      error  `json:"-"`
}

// ExhaustedError is returned when every candidate provider has been tried
// and failed. It carries the per-provider error list for diagnosis.
type ExhaustedError struct {
	Model    string
	Attempts []AttemptError
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "all providers exhausted for model %s:", e.Model)
	for _, a := range e.Attempts {
		fmt.Fprintf(&sb, " %s(%d attempts): %v;", a.Provider, a.Attempts, a.Err)
	}
	return sb.String()
}

// Unwrap exposes the underlying attempt errors to errors.Is/As.
func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		if a.Err != nil {
			errs = append(errs, a.Err)
		}
	}
	return errs
}

// ConfigError signals invalid router configuration: an unknown strategy
// name, a duplicate provider, or a request with no registered providers.
// It fails fast at call time rather than silently degrading.
type ConfigError struct {
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "configuration error: " + e.Message
}

// NewConfigError creates a ConfigError with a formatted message.
func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}
