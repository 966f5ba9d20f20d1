package processors

import (
	"context"
	"fmt"
	"strconv"

	"github.com/agnivade/levenshtein"

	"github.com/flowgraph/engine/internal/ports"
)

// FuzzySimilarity is an Analyze processor that scores req.Payload against
// a fixed reference string using Levenshtein edit distance, reporting both
// the raw distance and a 0..1 normalized similarity in its response
// metadata. It never mutates canonical payload: NextPayload is always the
// request's own payload, which the engine discards for Analyze intent.
type FuzzySimilarity struct {
	id        string
	reference string
}

// NewFuzzySimilarity builds a FuzzySimilarity comparing payloads against
// reference.
func NewFuzzySimilarity(id, reference string) *FuzzySimilarity {
	return &FuzzySimilarity{id: id, reference: reference}
}

// ID returns the processor's node id.
func (f *FuzzySimilarity) ID() string { return f.id }

// Intent reports FuzzySimilarity as Analyze: it must not be relied on to
// mutate canonical payload.
func (f *FuzzySimilarity) Intent() ports.Intent { return ports.Analyze }

// Process computes the edit distance and normalized similarity between
// req.Payload and the configured reference string.
func (f *FuzzySimilarity) Process(_ context.Context, req ports.ProcessorRequest) (ports.ProcessorResponse, error) {
	candidate := string(req.Payload)
	distance := levenshtein.ComputeDistance(candidate, f.reference)

	maxLen := len(candidate)
	if len(f.reference) > maxLen {
		maxLen = len(f.reference)
	}
	similarity := 1.0
	if maxLen > 0 {
		similarity = 1.0 - float64(distance)/float64(maxLen)
	}

	return ports.ProcessorResponse{
		NextPayload: req.Payload,
		Metadata: map[string]string{
			"distance":   strconv.Itoa(distance),
			"similarity": fmt.Sprintf("%.4f", similarity),
		},
	}, nil
}

var _ ports.Processor = (*FuzzySimilarity)(nil)
