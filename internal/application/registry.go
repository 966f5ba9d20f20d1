package application

import (
	"fmt"
	"sync"

	"github.com/flowgraph/engine/internal/ports"
)

// ProcessorFactory creates a processor from its spec. The LLM client may
// be nil for factories that don't need one; factories should validate
// their own parameters and return descriptive errors for invalid input.
type ProcessorFactory func(spec ProcessorSpec, llm ports.LLMClient) (ports.Processor, error)

// Registry manages processor factories by type: thread-safe registration
// and creation behind a single map.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProcessorFactory
	llmClient ports.LLMClient
}

// NewRegistry creates an empty registry. Pass nil for llmClient if no
// registered factory needs LLM access.
func NewRegistry(llmClient ports.LLMClient) *Registry {
	return &Registry{
		factories: make(map[string]ProcessorFactory),
		llmClient: llmClient,
	}
}

// Register adds a factory for processorType. It panics on a duplicate
// registration: that is a programming error that should fail fast during
// initialization, never at runtime under load.
func (r *Registry) Register(processorType string, factory ProcessorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[processorType]; exists {
		panic(fmt.Sprintf("processor type %q already registered", processorType))
	}
	r.factories[processorType] = factory
}

// Create instantiates spec's processor using the factory registered for
// spec.Type, injecting the registry's LLM client.
func (r *Registry) Create(spec ProcessorSpec) (ports.Processor, error) {
	if spec.ID == "" {
		return nil, fmt.Errorf("processor id cannot be empty")
	}

	r.mu.RLock()
	factory, exists := r.factories[spec.Type]
	llm := r.llmClient
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unknown processor type: %s", spec.Type)
	}
	return factory(spec, llm)
}

// SupportedTypes returns every registered processor type, a fresh copy
// safe for the caller to modify.
func (r *Registry) SupportedTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	return types
}

// BuildProcessors creates one processor per node in spec using the
// registry's factories, returning the map the engine's Execute expects.
func (r *Registry) BuildProcessors(spec *GraphSpec) (map[string]ports.Processor, error) {
	processors := make(map[string]ports.Processor, len(spec.Processors))
	for _, p := range spec.Processors {
		proc, err := r.Create(p)
		if err != nil {
			return nil, fmt.Errorf("building processor %s: %w", p.ID, err)
		}
		processors[p.ID] = proc
	}
	return processors, nil
}
