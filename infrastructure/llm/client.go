// Package llm backs the llm_transform processor with a provider-agnostic
// completion client. A provider (Anthropic or OpenAI) implements the small
// CoreLLM interface; the client wraps it in a middleware chain adding
// timeouts, retry with backoff, and client-side rate limiting, then adapts
// the result to ports.LLMClient so processors never see provider types.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/flowgraph/engine/internal/ports"
)

// Completion is the result of one provider round trip. Token counts come
// from the provider's usage accounting and are zero when the provider
// reports none; the client's estimator is not consulted for them.
type Completion struct {
	Text      string
	TokensIn  int
	TokensOut int
}

// CoreLLM is the provider contract the middleware chain composes over.
type CoreLLM interface {
	// Generate sends prompt to the provider and returns its completion.
	Generate(ctx context.Context, prompt string, opts Options) (Completion, error)
	// Model returns the model identifier requests default to.
	Model() string
}

// Middleware wraps a CoreLLM with a cross-cutting concern. Middleware are
// applied innermost-last, so the first entry in a chain observes the call
// before any other.
type Middleware func(CoreLLM) CoreLLM

// ClientConfig configures NewClient. Zero values disable the corresponding
// middleware: no Timeout means no per-request deadline, no
// RequestsPerSecond means no client-side rate limit.
type ClientConfig struct {
	// APIKey authenticates against the provider.
	APIKey string
	// Model names the default model; each provider supplies its own
	// fallback when empty.
	Model string
	// BaseURL overrides the provider's default endpoint.
	BaseURL string
	// Timeout bounds each individual request, retries included separately.
	Timeout time.Duration
	// MaxAttempts caps retry attempts per request; values below 1 mean
	// the default of 3.
	MaxAttempts int
	// RequestsPerSecond enables a client-side token-bucket rate limit.
	RequestsPerSecond float64
	// Burst is the rate limiter's bucket size; defaults to 1 when a rate
	// is set.
	Burst int
	// Estimator supplies token estimation; defaults to WordEstimator.
	Estimator TokenEstimator
	// Extra middleware, applied outside the built-in chain.
	Middleware []Middleware
}

// ProviderFactory builds a CoreLLM from a ClientConfig.
type ProviderFactory func(ClientConfig) (CoreLLM, error)

var providerFactories = map[string]ProviderFactory{}

// RegisterProvider makes factory available to NewClient under name.
// Providers self-register from init; tests register fakes.
func RegisterProvider(name string, factory ProviderFactory) {
	providerFactories[name] = factory
}

// Client adapts a middleware-wrapped CoreLLM to ports.LLMClient.
type Client struct {
	core      CoreLLM
	estimator TokenEstimator
}

// NewClient builds the named provider, wraps it with the configured
// middleware chain, and returns it behind ports.LLMClient.
func NewClient(provider string, cfg ClientConfig) (ports.LLMClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: API key is required")
	}
	factory, ok := providerFactories[provider]
	if !ok {
		return nil, fmt.Errorf("llm: unknown provider %q", provider)
	}

	core, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("llm: building provider %q: %w", provider, err)
	}

	core = Chain(core, builtinChain(cfg)...)
	core = Chain(core, cfg.Middleware...)

	estimator := cfg.Estimator
	if estimator == nil {
		estimator = WordEstimator{}
	}
	return &Client{core: core, estimator: estimator}, nil
}

// builtinChain assembles the default middleware for cfg, outermost first:
// rate limiting gates admission before a retry loop, and each attempt gets
// its own timeout.
func builtinChain(cfg ClientConfig) []Middleware {
	var chain []Middleware
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		chain = append(chain, WithRateLimit(cfg.RequestsPerSecond, burst))
	}
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = defaultMaxAttempts
	}
	chain = append(chain, WithRetry(attempts, defaultRetryBase))
	if cfg.Timeout > 0 {
		chain = append(chain, WithTimeout(cfg.Timeout))
	}
	return chain
}

// Chain applies middleware to core so that the first element of middleware
// is the outermost wrapper.
func Chain(core CoreLLM, middleware ...Middleware) CoreLLM {
	for i := len(middleware) - 1; i >= 0; i-- {
		core = middleware[i](core)
	}
	return core
}

// Complete sends prompt and returns the completion text, discarding usage.
func (c *Client) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	text, _, _, err := c.CompleteWithUsage(ctx, prompt, options)
	return text, err
}

// CompleteWithUsage sends prompt and returns the completion text plus the
// provider's input and output token counts.
func (c *Client) CompleteWithUsage(ctx context.Context, prompt string, options map[string]any) (string, int, int, error) {
	opts, err := ParseOptions(options, c.core.Model())
	if err != nil {
		return "", 0, 0, err
	}
	completion, err := c.core.Generate(ctx, prompt, opts)
	if err != nil {
		return "", 0, 0, err
	}
	return completion.Text, completion.TokensIn, completion.TokensOut, nil
}

// EstimateTokens approximates the token count of text without a request.
func (c *Client) EstimateTokens(text string) (int, error) {
	return c.estimator.EstimateTokens(text), nil
}

// GetModel returns the model identifier requests default to.
func (c *Client) GetModel() string { return c.core.Model() }

var _ ports.LLMClient = (*Client)(nil)
