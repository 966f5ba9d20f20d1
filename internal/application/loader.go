package application

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/flowgraph/engine/internal/engine"
	"github.com/flowgraph/engine/internal/ports"
)

// GraphLoader parses and validates GraphSpec YAML: struct-tag validation
// first, then the semantic checks tags cannot express. A spec is loaded
// once per CLI invocation, so parsed specs are not cached.
type GraphLoader struct {
	validator *validator.Validate
}

// NewGraphLoader builds a GraphLoader with struct-tag validation enabled.
func NewGraphLoader() *GraphLoader {
	return &GraphLoader{validator: validator.New()}
}

// LoadFromReader parses YAML from r into a validated GraphSpec. Unknown
// YAML fields are rejected, so a typo in a graph spec fails loudly instead
// of being silently ignored.
func (gl *GraphLoader) LoadFromReader(r io.Reader) (*GraphSpec, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph spec: %w", err)
	}
	return gl.parse(data)
}

func (gl *GraphLoader) parse(data []byte) (*GraphSpec, error) {
	var spec GraphSpec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("YAML decode failed: %w", err)
	}

	if err := gl.validator.Struct(&spec); err != nil {
		return nil, fmt.Errorf("struct validation failed: %w", err)
	}
	if err := validateSemantics(&spec); err != nil {
		return nil, fmt.Errorf("semantic validation failed: %w", err)
	}
	return &spec, nil
}

// validateSemantics checks the properties struct tags cannot express: id
// uniqueness and DependsOn reference resolution. Cycle detection is left
// to engine.NewGraph, which enforces acyclicity at construction.
func validateSemantics(spec *GraphSpec) error {
	seen := make(map[string]struct{}, len(spec.Processors))
	for _, p := range spec.Processors {
		if _, exists := seen[p.ID]; exists {
			return fmt.Errorf("duplicate processor id %q", p.ID)
		}
		seen[p.ID] = struct{}{}
	}

	for _, p := range spec.Processors {
		for _, dep := range p.DependsOn {
			if _, ok := seen[dep]; !ok {
				return fmt.Errorf("processor %s depends_on non-existent processor %q", p.ID, dep)
			}
		}
	}
	return nil
}

// BuildGraph constructs the engine's DependencyGraph from a validated
// spec: the boundary where the declarative node list becomes the engine's
// ranked, reverse-adjacency representation. engine.NewGraph re-checks
// acyclicity itself rather than trusting its input.
func BuildGraph(spec *GraphSpec) (ports.DependencyGraph, error) {
	nodes := make([]engine.Node, 0, len(spec.Processors))
	for _, p := range spec.Processors {
		nodes = append(nodes, engine.Node{ID: p.ID, DependsOn: p.DependsOn})
	}
	return engine.NewGraph(nodes)
}
