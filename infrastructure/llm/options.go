package llm

import (
	"fmt"
	"net/url"
)

// defaultMaxTokens bounds completions when the caller does not set
// max_tokens; Anthropic requires an explicit value on every request.
const defaultMaxTokens = 1024

// Options are the per-request knobs shared by every provider, parsed once
// at the client boundary from the loosely-typed options map the
// ports.LLMClient surface accepts.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature *float64
	System      string
}

// ParseOptions validates raw against the known option keys. Unknown keys
// are rejected rather than silently dropped so a misspelled option in a
// graph spec fails loudly at the first invocation.
func ParseOptions(raw map[string]any, defaultModel string) (Options, error) {
	opts := Options{Model: defaultModel, MaxTokens: defaultMaxTokens}
	for key, value := range raw {
		switch key {
		case "model":
			s, ok := value.(string)
			if !ok || s == "" {
				return Options{}, fmt.Errorf("llm: option %q must be a non-empty string", key)
			}
			opts.Model = s
		case "max_tokens":
			n, ok := asInt(value)
			if !ok || n < 1 {
				return Options{}, fmt.Errorf("llm: option %q must be a positive integer", key)
			}
			opts.MaxTokens = n
		case "temperature":
			t, ok := asFloat(value)
			if !ok || t < 0 || t > 2 {
				return Options{}, fmt.Errorf("llm: option %q must be a number in [0, 2]", key)
			}
			opts.Temperature = &t
		case "system":
			s, ok := value.(string)
			if !ok {
				return Options{}, fmt.Errorf("llm: option %q must be a string", key)
			}
			opts.System = s
		default:
			return Options{}, fmt.Errorf("llm: unknown option %q", key)
		}
	}
	return opts, nil
}

func asInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// validateBaseURL rejects endpoint overrides that are not absolute http(s)
// URLs before they reach a provider SDK.
func validateBaseURL(baseURL string) (string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("llm: malformed base URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("llm: base URL scheme must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("llm: base URL must include a host")
	}
	return parsed.String(), nil
}
