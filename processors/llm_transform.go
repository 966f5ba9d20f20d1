package processors

import (
	"context"
	"fmt"

	"github.com/flowgraph/engine/internal/ports"
)

// LLMTransform is a Transform processor that sends its payload, wrapped in
// a configured prompt template, to a ports.LLMClient and replaces the
// canonical payload with the model's completion. It is provider-agnostic:
// the concrete client (Anthropic, OpenAI, or any other infrastructure/llm
// provider behind the same CoreLLM interface) is supplied by the caller at
// construction, so swapping providers never touches this processor.
type LLMTransform struct {
	id       string
	client   ports.LLMClient
	template string // must contain exactly one %s for the payload
	options  map[string]any
}

// NewLLMTransform builds an LLMTransform backed by client. template is
// formatted with fmt.Sprintf against the payload string; pass "%s" to
// forward the payload unmodified as the prompt.
func NewLLMTransform(id string, client ports.LLMClient, template string, options map[string]any) *LLMTransform {
	return &LLMTransform{id: id, client: client, template: template, options: options}
}

// ID returns the processor's node id.
func (l *LLMTransform) ID() string { return l.id }

// Intent reports LLMTransform as Transform.
func (l *LLMTransform) Intent() ports.Intent { return ports.Transform }

// Process builds the prompt from req.Payload and l.template, calls the
// configured LLM client, and swaps the completion in as NextPayload.
func (l *LLMTransform) Process(ctx context.Context, req ports.ProcessorRequest) (ports.ProcessorResponse, error) {
	prompt := fmt.Sprintf(l.template, string(req.Payload))

	completion, err := l.client.Complete(ctx, prompt, l.options)
	if err != nil {
		return ports.ProcessorResponse{}, fmt.Errorf("llm_transform %s: %w", l.id, err)
	}

	return ports.ProcessorResponse{NextPayload: []byte(completion)}, nil
}

var _ ports.Processor = (*LLMTransform)(nil)
