package ports

import (
	"errors"
	"fmt"
	"time"
)

// Common infrastructure errors that can occur during external service
// interactions (LLM provider calls).
var (
	// ErrTokenLimitExceeded indicates that the LLM token limit has been
	// exceeded.
	ErrTokenLimitExceeded = errors.New("token limit exceeded")

	// ErrRateLimited indicates that the service has rate limited the request.
	ErrRateLimited = errors.New("rate limited")

	// ErrServiceUnavailable indicates that the external service is unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrInvalidResponse indicates that the service returned an invalid
	// response.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrAuthenticationFailed indicates that authentication with the
	// service failed.
	ErrAuthenticationFailed = errors.New("authentication failed")
)

// LLMError represents an error from an LLM provider, with enough context
// to decide whether a retry is worthwhile.
type LLMError struct {
	Model      string
	Operation  string
	Err        error
	TokensUsed int
	RetryAfter *time.Duration
}

// Error implements the error interface for LLMError.
func (e *LLMError) Error() string {
	msg := fmt.Sprintf("LLM error: model=%s, operation=%s, err=%v", e.Model, e.Operation, e.Err)
	if e.TokensUsed > 0 {
		msg += fmt.Sprintf(", tokens_used=%d", e.TokensUsed)
	}
	if e.RetryAfter != nil {
		msg += fmt.Sprintf(", retry_after=%v", *e.RetryAfter)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *LLMError) Unwrap() error { return e.Err }

// IsRetryable returns true if the error is temporary and the operation
// can be retried.
func (e *LLMError) IsRetryable() bool {
	return errors.Is(e.Err, ErrRateLimited) ||
		errors.Is(e.Err, ErrServiceUnavailable) ||
		errors.Is(e.Err, ErrTimeout)
}

// NewLLMError creates a new LLMError with the given details.
func NewLLMError(model, operation string, err error) *LLMError {
	return &LLMError{Model: model, Operation: operation, Err: err}
}

// MetricsError represents an error from metrics collection operations.
type MetricsError struct {
	Metric    string
	Operation string
	Err       error
}

// Error implements the error interface for MetricsError.
func (e *MetricsError) Error() string {
	return fmt.Sprintf("metrics error: operation=%s, metric=%s, err=%v", e.Operation, e.Metric, e.Err)
}

// Unwrap returns the underlying error.
func (e *MetricsError) Unwrap() error { return e.Err }

// NewMetricsError creates a new MetricsError with the given details.
func NewMetricsError(metric, operation string, err error) *MetricsError {
	return &MetricsError{Metric: metric, Operation: operation, Err: err}
}
