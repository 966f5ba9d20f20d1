package application

import (
	"fmt"

	"github.com/flowgraph/engine/internal/ports"
	"github.com/flowgraph/engine/processors"
)

// builtinParams decodes spec.Parameters into a generic map for the
// factory's own type-specific validation.
func builtinParams(spec ProcessorSpec) (map[string]any, error) {
	if spec.Parameters.Kind == 0 {
		return map[string]any{}, nil
	}
	var params map[string]any
	if err := spec.Parameters.Decode(&params); err != nil {
		return nil, fmt.Errorf("failed to decode parameters: %w", err)
	}
	return params, nil
}

func stringParam(params map[string]any, key, fallback string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return fallback
}

// RegisterBuiltinProcessors registers every reference processor type in
// the processors package.
// Call this once during initialization to enable the full built-in set;
// callers that only need a subset may call Register directly instead.
func (r *Registry) RegisterBuiltinProcessors() {
	r.Register("case_transform", func(spec ProcessorSpec, _ ports.LLMClient) (ports.Processor, error) {
		params, err := builtinParams(spec)
		if err != nil {
			return nil, err
		}
		mode := processors.CaseMode(stringParam(params, "mode", "upper"))
		return processors.NewCaseTransform(spec.ID, mode)
	})

	r.Register("fuzzy_similarity", func(spec ProcessorSpec, _ ports.LLMClient) (ports.Processor, error) {
		params, err := builtinParams(spec)
		if err != nil {
			return nil, err
		}
		reference, ok := params["reference"].(string)
		if !ok {
			return nil, fmt.Errorf("fuzzy_similarity %s requires a string 'reference' parameter", spec.ID)
		}
		return processors.NewFuzzySimilarity(spec.ID, reference), nil
	})

	r.Register("reverse", func(spec ProcessorSpec, _ ports.LLMClient) (ports.Processor, error) {
		return processors.NewReverse(spec.ID), nil
	})

	r.Register("wrap", func(spec ProcessorSpec, _ ports.LLMClient) (ports.Processor, error) {
		params, err := builtinParams(spec)
		if err != nil {
			return nil, err
		}
		return processors.NewWrap(spec.ID, stringParam(params, "prefix", ""), stringParam(params, "suffix", "")), nil
	})

	r.Register("token_counter", func(spec ProcessorSpec, _ ports.LLMClient) (ports.Processor, error) {
		return processors.NewTokenCounter(spec.ID), nil
	})

	r.Register("word_frequency", func(spec ProcessorSpec, _ ports.LLMClient) (ports.Processor, error) {
		return processors.NewWordFrequency(spec.ID), nil
	})

	r.Register("summary", func(spec ProcessorSpec, _ ports.LLMClient) (ports.Processor, error) {
		return processors.NewSummary(spec.ID), nil
	})

	r.Register("llm_transform", func(spec ProcessorSpec, llm ports.LLMClient) (ports.Processor, error) {
		if llm == nil {
			return nil, fmt.Errorf("llm_transform %s requires an LLM client, none configured", spec.ID)
		}
		params, err := builtinParams(spec)
		if err != nil {
			return nil, err
		}
		template := stringParam(params, "template", "%s")
		var options map[string]any
		if o, ok := params["options"].(map[string]any); ok {
			options = o
		}
		return processors.NewLLMTransform(spec.ID, llm, template, options), nil
	})
}
