package llm

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultMaxAttempts = 3
	defaultRetryBase   = 250 * time.Millisecond
)

// middlewareFunc lifts a Generate implementation into a CoreLLM by
// delegating Model to the wrapped provider.
type middlewareFunc struct {
	next     CoreLLM
	generate func(ctx context.Context, prompt string, opts Options) (Completion, error)
}

func (m *middlewareFunc) Generate(ctx context.Context, prompt string, opts Options) (Completion, error) {
	return m.generate(ctx, prompt, opts)
}

func (m *middlewareFunc) Model() string { return m.next.Model() }

// WithTimeout bounds every attempt with its own deadline. Placed inside
// the retry layer, a slow attempt times out and is retried rather than
// consuming the whole request budget.
func WithTimeout(timeout time.Duration) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &middlewareFunc{next: next, generate: func(ctx context.Context, prompt string, opts Options) (Completion, error) {
			attemptCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			completion, err := next.Generate(attemptCtx, prompt, opts)
			if err != nil {
				// Wrap only deadlines this layer caused; provider errors
				// are already classified and pass through untouched.
				if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
					return Completion{}, wrapProviderError(next.Model(), "generate", 0, err)
				}
				return Completion{}, err
			}
			return completion, nil
		}}
	}
}

// WithRetry retries failed attempts up to maxAttempts total, sleeping
// base, 2*base, 4*base... between attempts. Only errors the taxonomy
// classifies as retryable are retried; context cancellation always stops
// the loop immediately.
func WithRetry(maxAttempts int, base time.Duration) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return func(next CoreLLM) CoreLLM {
		return &middlewareFunc{next: next, generate: func(ctx context.Context, prompt string, opts Options) (Completion, error) {
			var lastErr error
			backoff := base
			for attempt := 1; attempt <= maxAttempts; attempt++ {
				completion, err := next.Generate(ctx, prompt, opts)
				if err == nil {
					return completion, nil
				}
				lastErr = err
				if !isRetryable(err) || attempt == maxAttempts {
					break
				}
				timer := time.NewTimer(backoff)
				select {
				case <-timer.C:
				case <-ctx.Done():
					timer.Stop()
					return Completion{}, ctx.Err()
				}
				backoff *= 2
			}
			return Completion{}, lastErr
		}}
	}
}

// WithRateLimit gates admission through a client-side token bucket of
// requestsPerSecond with the given burst. Waiting respects ctx, so a
// canceled run never sits in the limiter's queue.
func WithRateLimit(requestsPerSecond float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	return func(next CoreLLM) CoreLLM {
		return &middlewareFunc{next: next, generate: func(ctx context.Context, prompt string, opts Options) (Completion, error) {
			if err := limiter.Wait(ctx); err != nil {
				return Completion{}, err
			}
			return next.Generate(ctx, prompt, opts)
		}}
	}
}
