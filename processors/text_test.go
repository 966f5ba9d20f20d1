package processors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgraph/engine/internal/ports"
)

func TestReverse(t *testing.T) {
	r := NewReverse("R")
	resp, err := r.Process(context.Background(), ports.ProcessorRequest{Payload: []byte("HELLO WORLD")})
	require.NoError(t, err)
	assert.Equal(t, "DLROW OLLEH", string(resp.NextPayload))
	assert.Equal(t, ports.Transform, r.Intent())
}

func TestWrap(t *testing.T) {
	w := NewWrap("P", ">>> ", " <<<")
	resp, err := w.Process(context.Background(), ports.ProcessorRequest{Payload: []byte("DLROW OLLEH")})
	require.NoError(t, err)
	assert.Equal(t, ">>> DLROW OLLEH <<<", string(resp.NextPayload))
}

func TestLinearChainComposition(t *testing.T) {
	caser, err := NewCaseTransform("U", CaseUpper)
	require.NoError(t, err)

	ctx := context.Background()
	resp, err := caser.Process(ctx, ports.ProcessorRequest{Payload: []byte("hello world")})
	require.NoError(t, err)

	resp, err = NewReverse("R").Process(ctx, ports.ProcessorRequest{Payload: resp.NextPayload})
	require.NoError(t, err)

	resp, err = NewWrap("P", ">>> ", " <<<").Process(ctx, ports.ProcessorRequest{Payload: resp.NextPayload})
	require.NoError(t, err)
	assert.Equal(t, ">>> DLROW OLLEH <<<", string(resp.NextPayload))
}

func TestTokenCounter(t *testing.T) {
	tc := NewTokenCounter("tokens")
	resp, err := tc.Process(context.Background(), ports.ProcessorRequest{Payload: []byte("hello world")})
	require.NoError(t, err)
	assert.Equal(t, "2", resp.Metadata["tokens"])
	assert.Equal(t, ports.Analyze, tc.Intent())
}

func TestWordFrequency(t *testing.T) {
	wf := NewWordFrequency("freq")
	resp, err := wf.Process(context.Background(), ports.ProcessorRequest{Payload: []byte("hello World hello")})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"hello": "2", "world": "1"}, resp.Metadata)
}

func TestCaseTransform_UnknownMode(t *testing.T) {
	_, err := NewCaseTransform("bad", CaseMode("shout"))
	require.Error(t, err)
}

func TestCaseTransform_Fold(t *testing.T) {
	c, err := NewCaseTransform("f", CaseFold)
	require.NoError(t, err)
	resp, err := c.Process(context.Background(), ports.ProcessorRequest{Payload: []byte("STRASSE")})
	require.NoError(t, err)
	assert.Equal(t, "strasse", string(resp.NextPayload))
}

func TestSummary_PassesThroughPayload(t *testing.T) {
	s := NewSummary("summary")
	resp, err := s.Process(context.Background(), ports.ProcessorRequest{Payload: []byte("hello world")})
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(resp.NextPayload))
}
