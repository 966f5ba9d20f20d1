// Package processors provides a reference set of ports.Processor
// implementations that exercise the engine end to end: simple text
// transforms and analyzers, a fuzzy-similarity comparator, and an
// LLM-backed transform built on infrastructure/llm.
package processors

import (
	"context"
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/flowgraph/engine/internal/ports"
)

// CaseMode selects which Unicode-correct case operation CaseTransform
// applies to its payload.
type CaseMode string

const (
	// CaseUpper upper-cases the payload.
	CaseUpper CaseMode = "upper"
	// CaseLower lower-cases the payload.
	CaseLower CaseMode = "lower"
	// CaseFold applies Unicode case-folding, for case-insensitive
	// comparisons downstream.
	CaseFold CaseMode = "fold"
)

// CaseTransform is a Transform processor that rewrites its payload's case
// using golang.org/x/text/cases rather than strings.ToUpper/ToLower, so
// multi-byte scripts case-fold correctly instead of only covering ASCII.
type CaseTransform struct {
	id    string
	caser cases.Caser
}

// NewCaseTransform builds a CaseTransform for mode, rejecting unknown
// modes up front rather than at first invocation.
func NewCaseTransform(id string, mode CaseMode) (*CaseTransform, error) {
	var caser cases.Caser
	switch mode {
	case CaseUpper:
		caser = cases.Upper(language.Und)
	case CaseLower:
		caser = cases.Lower(language.Und)
	case CaseFold:
		caser = cases.Fold()
	default:
		return nil, fmt.Errorf("case_transform: unknown mode %q", mode)
	}
	return &CaseTransform{id: id, caser: caser}, nil
}

// ID returns the processor's node id.
func (c *CaseTransform) ID() string { return c.id }

// Intent reports CaseTransform as Transform: it rewrites canonical
// payload.
func (c *CaseTransform) Intent() ports.Intent { return ports.Transform }

// Process applies the configured case operation to req.Payload.
func (c *CaseTransform) Process(_ context.Context, req ports.ProcessorRequest) (ports.ProcessorResponse, error) {
	return ports.ProcessorResponse{NextPayload: []byte(c.caser.String(string(req.Payload)))}, nil
}

var _ ports.Processor = (*CaseTransform)(nil)
