package llm

import (
	"context"
	"errors"
	"net/http"

	"github.com/flowgraph/engine/internal/ports"
)

// classifyHTTPStatus maps a provider HTTP status to the shared error
// taxonomy in ports so the retry middleware can decide retryability
// without provider-specific knowledge.
func classifyHTTPStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ports.ErrAuthenticationFailed
	case status == http.StatusTooManyRequests:
		return ports.ErrRateLimited
	case status == http.StatusRequestTimeout:
		return ports.ErrTimeout
	case status >= 500:
		return ports.ErrServiceUnavailable
	default:
		return ports.ErrInvalidResponse
	}
}

// wrapProviderError folds err into a ports.LLMError for model, classifying
// context errors and HTTP statuses onto the shared sentinels. status <= 0
// means no HTTP status was available.
func wrapProviderError(model, operation string, status int, err error) error {
	classified := err
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		classified = errors.Join(ports.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		// Cancellation is surfaced as-is; retrying it is never useful.
	case status > 0:
		classified = errors.Join(classifyHTTPStatus(status), err)
	}
	return &ports.LLMError{Model: model, Operation: operation, Err: classified}
}

// isRetryable reports whether err is worth another attempt: any LLMError
// whose classification says so, or a bare rate-limit/unavailable/timeout
// sentinel from a middleware below the retry layer.
func isRetryable(err error) bool {
	var llmErr *ports.LLMError
	if errors.As(err, &llmErr) {
		return llmErr.IsRetryable()
	}
	return errors.Is(err, ports.ErrRateLimited) ||
		errors.Is(err, ports.ErrServiceUnavailable) ||
		errors.Is(err, ports.ErrTimeout)
}
