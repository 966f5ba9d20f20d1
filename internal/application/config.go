// Package application provides the declarative configuration surface
// around the DAG execution engine: YAML graph specs, their validation, and
// a processor-factory registry.
package application

import (
	"gopkg.in/yaml.v3"
)

// GraphSpec defines the complete specification for a processor graph and
// serves as the primary configuration entry point for the engine. Use
// GraphSpec when defining a pipeline declaratively instead of constructing
// engine.Node values by hand.
type GraphSpec struct {
	// Version specifies the configuration schema version using semantic
	// versioning to ensure compatibility across engine updates.
	Version string `yaml:"version" validate:"required,semver"`
	// Metadata contains descriptive information about the graph for
	// organization and discovery.
	Metadata SpecMetadata `yaml:"metadata"`
	// Processors defines the individual nodes that will execute within
	// this graph, each with its own type, dependencies, and parameters.
	Processors []ProcessorSpec `yaml:"processors" validate:"required,min=1,dive"`
}

// SpecMetadata provides descriptive information about a graph spec to
// support organization and discovery; it has no bearing on execution.
type SpecMetadata struct {
	// Name is the human-readable identifier for this graph.
	Name string `yaml:"name" validate:"omitempty,min=1,max=255"`
	// Description documents the graph's purpose.
	Description string `yaml:"description" validate:"max=1000"`
}

// ProcessorSpec defines the specification for a single processor node
// within a graph spec, including its type, dependency list, intent, and
// type-specific parameters.
type ProcessorSpec struct {
	// ID is the unique identifier for this node within the graph and must
	// be alphanumeric for safe referencing in DependsOn lists.
	ID string `yaml:"id" validate:"required,alphanum,min=1,max=100"`
	// Type selects the processor factory registered under this name
	// (see Registry.Create).
	Type string `yaml:"type" validate:"required,min=1,max=100"`
	// DependsOn lists the ids of this node's direct dependencies.
	DependsOn []string `yaml:"depends_on" validate:"dive,alphanum"`
	// Intent declares whether this node transforms or analyzes the
	// canonical payload.
	Intent string `yaml:"intent" validate:"required,oneof=transform analyze"`
	// Parameters contains type-specific configuration as flexible YAML,
	// interpreted by the named factory.
	Parameters yaml.Node `yaml:"parameters"`
}
