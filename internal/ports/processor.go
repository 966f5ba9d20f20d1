// Package ports defines the contracts the DAG execution engine consumes and
// exposes. The engine itself depends only on these interfaces; concrete
// processors, graph loaders, and observability sinks live in other packages
// and are wired together by the caller.
package ports

import "context"

// Intent declares whether a Processor may mutate the canonical payload.
type Intent int

const (
	// Transform processors may return a new canonical payload.
	Transform Intent = iota
	// Analyze processors must not be relied on to mutate the canonical
	// payload; any payload they return is ignored by the engine.
	Analyze
)

// String renders the Intent for logging and error messages.
func (i Intent) String() string {
	switch i {
	case Transform:
		return "transform"
	case Analyze:
		return "analyze"
	default:
		return "unknown"
	}
}

// BaseMetadataKey names the reserved namespace holding the initial run
// input's metadata bucket. It is preserved, unmodified, through every
// processor's view of the metadata map and through the final merged
// PipelineMetadata.
const BaseMetadataKey = "__base__"

// ProcessorRequest is the input handed to a single processor invocation.
// Metadata is keyed by namespace: the reserved BaseMetadataKey, plus one
// entry per dependency id, each holding that dependency's response metadata.
type ProcessorRequest struct {
	Payload  []byte
	Metadata map[string]map[string]string
}

// ProcessorResponse is the result of a single processor invocation. The
// outcome is exactly one of NextPayload (success) or Err (failure); Metadata
// is always attached to the response and is namespaced by the engine under
// the processor's own id when merged into results.
type ProcessorResponse struct {
	NextPayload []byte
	Err         error
	Metadata    map[string]string
}

// Failed reports whether this response represents a failed invocation.
func (r ProcessorResponse) Failed() bool { return r.Err != nil }

// Processor is the opaque unit of work the engine schedules. Implementations
// are supplied by the caller, shared (never mutated) across the run, and may
// be invoked concurrently from different executors as long as they are
// invoked at most once per id per run.
type Processor interface {
	// ID returns this processor's unique identifier within the graph.
	ID() string
	// Intent declares whether this processor may mutate canonical payload.
	Intent() Intent
	// Process executes the processor against a single request. The
	// implementation must respect ctx cancellation where it can: a FailFast
	// run cancels ctx for every in-flight and not-yet-started invocation.
	Process(ctx context.Context, req ProcessorRequest) (ProcessorResponse, error)
}

// FailureStrategy controls how the executor reacts to a processor failure.
type FailureStrategy int

const (
	// FailFast aborts the run on the first failure.
	FailFast FailureStrategy = iota
	// ContinueOnError records the failure, blocks dependents, and keeps
	// running independent branches to completion.
	ContinueOnError
	// BestEffort is identical to ContinueOnError at the engine level; the
	// distinction is reserved for a processor-level recovery layer that
	// this engine does not implement.
	BestEffort
)

// String renders the FailureStrategy for logging and error messages.
func (s FailureStrategy) String() string {
	switch s {
	case FailFast:
		return "fail_fast"
	case ContinueOnError:
		return "continue_on_error"
	case BestEffort:
		return "best_effort"
	default:
		return "unknown"
	}
}

// Executor runs a set of processors honoring the dependencies encoded in
// graph, respecting strategy's failure semantics, and admitting at most
// maxConcurrency concurrent processor invocations. The three engine
// implementations (work-queue, level-by-level, reactive) satisfy this
// interface interchangeably: callers may swap strategies without touching
// graph construction or processor wiring.
//
// Under FailFast the first failure is returned as the error and results and
// metadata are nil; no partial results are surfaced. Under ContinueOnError
// and BestEffort err is nil and failed nodes carry an Err outcome in results.
type Executor interface {
	Execute(
		ctx context.Context,
		processors map[string]Processor,
		graph DependencyGraph,
		input ProcessorRequest,
		strategy FailureStrategy,
		maxConcurrency int,
	) (results map[string]ProcessorResponse, metadata map[string]map[string]string, err error)
}

// DependencyGraph is the read-only view of a validated DAG that executors
// consume. It is built once per run by internal/engine/graph and never
// mutated afterward.
type DependencyGraph interface {
	// Nodes returns every processor id in the graph.
	Nodes() []string
	// HasNode reports whether id is a member of the graph.
	HasNode(id string) bool
	// DepsOf returns the direct dependencies of id.
	DepsOf(id string) []string
	// DependentsOf returns the direct dependents of id (reverse adjacency).
	DependentsOf(id string) []string
	// DependentsReachable returns every node transitively reachable from id
	// via dependents edges: the descendant set that must be blocked when
	// id fails.
	DependentsReachable(id string) []string
	// Entrypoints returns every node with no dependencies.
	Entrypoints() []string
	// Rank returns id's topological rank: the longest path, in edges, from
	// any entrypoint to id.
	Rank(id string) int
	// InitialDepCounts returns a fresh map of id -> len(DepsOf(id)), safe
	// for the caller to mutate.
	InitialDepCounts() map[string]int
}
