package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/flowgraph/engine/internal/ports"
)

// fakeProcessor adapts a closure to ports.Processor for tests, avoiding a
// hand-written type per scenario.
type fakeProcessor struct {
	id     string
	intent ports.Intent
	fn     func(ctx context.Context, req ports.ProcessorRequest) (ports.ProcessorResponse, error)
}

func (f *fakeProcessor) ID() string           { return f.id }
func (f *fakeProcessor) Intent() ports.Intent { return f.intent }
func (f *fakeProcessor) Process(ctx context.Context, req ports.ProcessorRequest) (ports.ProcessorResponse, error) {
	return f.fn(ctx, req)
}

func transformProc(id string, fn func(payload []byte) []byte) *fakeProcessor {
	return &fakeProcessor{
		id:     id,
		intent: ports.Transform,
		fn: func(_ context.Context, req ports.ProcessorRequest) (ports.ProcessorResponse, error) {
			return ports.ProcessorResponse{NextPayload: fn(req.Payload)}, nil
		},
	}
}

func analyzeProc(id string, fn func(payload []byte) map[string]string) *fakeProcessor {
	return &fakeProcessor{
		id:     id,
		intent: ports.Analyze,
		fn: func(_ context.Context, req ports.ProcessorRequest) (ports.ProcessorResponse, error) {
			return ports.ProcessorResponse{NextPayload: req.Payload, Metadata: fn(req.Payload)}, nil
		},
	}
}

func failingProc(id string, intent ports.Intent) *fakeProcessor {
	return &fakeProcessor{
		id:     id,
		intent: intent,
		fn: func(_ context.Context, _ ports.ProcessorRequest) (ports.ProcessorResponse, error) {
			return ports.ProcessorResponse{}, fmt.Errorf("%s: processor error", id)
		},
	}
}

func upper(b []byte) []byte   { return []byte(strings.ToUpper(string(b))) }
func reverse(b []byte) []byte {
	r := []rune(string(b))
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return []byte(string(r))
}
func wrap(prefix, suffix string) func([]byte) []byte {
	return func(b []byte) []byte { return []byte(prefix + string(b) + suffix) }
}
