package processors

import (
	"context"
	"strconv"
	"strings"

	"github.com/flowgraph/engine/internal/ports"
)

// Reverse is a Transform processor that reverses its payload by rune, so
// multi-byte characters survive the reversal intact.
type Reverse struct{ id string }

// NewReverse builds a Reverse processor.
func NewReverse(id string) *Reverse { return &Reverse{id: id} }

// ID returns the processor's node id.
func (r *Reverse) ID() string { return r.id }

// Intent reports Reverse as Transform.
func (r *Reverse) Intent() ports.Intent { return ports.Transform }

// Process reverses req.Payload.
func (r *Reverse) Process(_ context.Context, req ports.ProcessorRequest) (ports.ProcessorResponse, error) {
	runes := []rune(string(req.Payload))
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return ports.ProcessorResponse{NextPayload: []byte(string(runes))}, nil
}

var _ ports.Processor = (*Reverse)(nil)

// Wrap is a Transform processor that surrounds its payload with a fixed
// prefix and suffix.
type Wrap struct {
	id             string
	prefix, suffix string
}

// NewWrap builds a Wrap processor.
func NewWrap(id, prefix, suffix string) *Wrap {
	return &Wrap{id: id, prefix: prefix, suffix: suffix}
}

// ID returns the processor's node id.
func (w *Wrap) ID() string { return w.id }

// Intent reports Wrap as Transform.
func (w *Wrap) Intent() ports.Intent { return ports.Transform }

// Process wraps req.Payload with the configured prefix and suffix.
func (w *Wrap) Process(_ context.Context, req ports.ProcessorRequest) (ports.ProcessorResponse, error) {
	return ports.ProcessorResponse{NextPayload: []byte(w.prefix + string(req.Payload) + w.suffix)}, nil
}

var _ ports.Processor = (*Wrap)(nil)

// TokenCounter is an Analyze processor that reports the whitespace-split
// token count of its payload.
type TokenCounter struct{ id string }

// NewTokenCounter builds a TokenCounter processor.
func NewTokenCounter(id string) *TokenCounter { return &TokenCounter{id: id} }

// ID returns the processor's node id.
func (t *TokenCounter) ID() string { return t.id }

// Intent reports TokenCounter as Analyze.
func (t *TokenCounter) Intent() ports.Intent { return ports.Analyze }

// Process counts whitespace-delimited tokens in req.Payload.
func (t *TokenCounter) Process(_ context.Context, req ports.ProcessorRequest) (ports.ProcessorResponse, error) {
	count := len(strings.Fields(string(req.Payload)))
	return ports.ProcessorResponse{
		NextPayload: req.Payload,
		Metadata:    map[string]string{"tokens": strconv.Itoa(count)},
	}, nil
}

var _ ports.Processor = (*TokenCounter)(nil)

// WordFrequency is an Analyze processor that reports each distinct
// lower-cased word's occurrence count in its payload.
type WordFrequency struct{ id string }

// NewWordFrequency builds a WordFrequency processor.
func NewWordFrequency(id string) *WordFrequency { return &WordFrequency{id: id} }

// ID returns the processor's node id.
func (w *WordFrequency) ID() string { return w.id }

// Intent reports WordFrequency as Analyze.
func (w *WordFrequency) Intent() ports.Intent { return ports.Analyze }

// Process tallies word occurrences in req.Payload, one metadata entry per
// distinct lower-cased word.
func (w *WordFrequency) Process(_ context.Context, req ports.ProcessorRequest) (ports.ProcessorResponse, error) {
	counts := make(map[string]int)
	for _, word := range strings.Fields(string(req.Payload)) {
		counts[strings.ToLower(word)]++
	}
	metadata := make(map[string]string, len(counts))
	for word, n := range counts {
		metadata[word] = strconv.Itoa(n)
	}
	return ports.ProcessorResponse{NextPayload: req.Payload, Metadata: metadata}, nil
}

var _ ports.Processor = (*WordFrequency)(nil)

// Summary is a Transform processor for a fan-in point: it passes its
// payload through unchanged and returns no metadata of its own. The
// dependency-scoped metadata merge it receives is not copied into its
// response.
type Summary struct{ id string }

// NewSummary builds a Summary processor.
func NewSummary(id string) *Summary { return &Summary{id: id} }

// ID returns the processor's node id.
func (s *Summary) ID() string { return s.id }

// Intent reports Summary as Transform.
func (s *Summary) Intent() ports.Intent { return ports.Transform }

// Process returns req.Payload unchanged.
func (s *Summary) Process(_ context.Context, req ports.ProcessorRequest) (ports.ProcessorResponse, error) {
	return ports.ProcessorResponse{NextPayload: req.Payload}, nil
}

var _ ports.Processor = (*Summary)(nil)
