package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// openAIDefaultModel is used when the caller does not name a model.
const openAIDefaultModel = "gpt-4o-mini"

func init() {
	RegisterProvider("openai", newOpenAIProvider)
}

// openAIProvider implements CoreLLM over the go-openai chat completions
// client.
type openAIProvider struct {
	client *openai.Client
	model  string
}

func newOpenAIProvider(cfg ClientConfig) (CoreLLM, error) {
	model := cfg.Model
	if model == "" {
		model = openAIDefaultModel
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		validated, err := validateBaseURL(cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		clientConfig.BaseURL = validated
	}

	return &openAIProvider{client: openai.NewClientWithConfig(clientConfig), model: model}, nil
}

func (p *openAIProvider) Model() string { return p.model }

// Generate sends prompt as a single-turn chat completion, with an optional
// leading system message.
func (p *openAIProvider) Generate(ctx context.Context, prompt string, opts Options) (Completion, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if opts.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: opts.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	req := openai.ChatCompletionRequest{
		Model:     opts.Model,
		Messages:  messages,
		MaxTokens: opts.MaxTokens,
	}
	if opts.Temperature != nil {
		req.Temperature = float32(*opts.Temperature)
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return Completion{}, wrapProviderError(opts.Model, "chat.completions", apiErr.HTTPStatusCode, err)
		}
		return Completion{}, wrapProviderError(opts.Model, "chat.completions", 0, err)
	}
	if len(resp.Choices) == 0 {
		return Completion{}, wrapProviderError(opts.Model, "chat.completions", 0,
			fmt.Errorf("response contained no choices"))
	}

	return Completion{
		Text:      resp.Choices[0].Message.Content,
		TokensIn:  resp.Usage.PromptTokens,
		TokensOut: resp.Usage.CompletionTokens,
	}, nil
}
