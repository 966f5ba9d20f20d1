package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicDefaultModel is used when the caller does not name a model.
const anthropicDefaultModel = "claude-3-5-sonnet-20241022"

func init() {
	RegisterProvider("anthropic", newAnthropicProvider)
}

// anthropicProvider implements CoreLLM over the official Anthropic SDK.
type anthropicProvider struct {
	client anthropic.Client
	model  string
}

func newAnthropicProvider(cfg ClientConfig) (CoreLLM, error) {
	model := cfg.Model
	if model == "" {
		model = anthropicDefaultModel
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		validated, err := validateBaseURL(cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		opts = append(opts, option.WithBaseURL(validated))
	}

	return &anthropicProvider{client: anthropic.NewClient(opts...), model: model}, nil
}

func (p *anthropicProvider) Model() string { return p.model }

// Generate sends prompt through the Messages API and concatenates the text
// blocks of the reply.
func (p *anthropicProvider) Generate(ctx context.Context, prompt string, opts Options) (Completion, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(opts.Model),
		MaxTokens: int64(opts.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	// Anthropic only accepts temperatures in [0, 1]; out-of-range values
	// fall back to the API default rather than erroring the whole run.
	if opts.Temperature != nil && *opts.Temperature <= 1.0 {
		params.Temperature = anthropic.Float(*opts.Temperature)
	}
	if opts.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: opts.System}}
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return Completion{}, wrapProviderError(opts.Model, "messages.new", apiErr.StatusCode, err)
		}
		return Completion{}, wrapProviderError(opts.Model, "messages.new", 0, err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}
	if text.Len() == 0 {
		return Completion{}, wrapProviderError(opts.Model, "messages.new", 0,
			fmt.Errorf("response contained no text blocks"))
	}

	return Completion{
		Text:      text.String(),
		TokensIn:  int(message.Usage.InputTokens),
		TokensOut: int(message.Usage.OutputTokens),
	}, nil
}
