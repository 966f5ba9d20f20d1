// Package executor implements the three interchangeable execution
// strategies (work-queue, level-by-level, reactive) that together satisfy
// ports.Executor, plus the per-processor invocation algorithm shared by
// all three.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/flowgraph/engine/infrastructure/tracing"
	"github.com/flowgraph/engine/internal/engine/coordinator"
	"github.com/flowgraph/engine/internal/engineerrors"
	"github.com/flowgraph/engine/internal/ports"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Observers bundles the optional cross-cutting collaborators the shared
// invocation algorithm reports to. Every field may be left nil; a nil
// Metrics, Tracer, or Run is simply skipped, so an executor used in a test
// with no observability wiring behaves identically to one with it wired
// in.
type Observers struct {
	Metrics ports.MetricsCollector
	Tracer  trace.Tracer
	Run     *tracing.RunObserver
}

// runSummary tallies how a run's nodes resolved for Observers.Run's
// end-of-run span and metrics: every node in g either succeeded, recorded
// an Error outcome, or never appears in results because it was blocked.
func runSummary(g ports.DependencyGraph, results map[string]ports.ProcessorResponse) tracing.RunSummary {
	summary := tracing.RunSummary{Total: len(g.Nodes())}
	for _, resp := range results {
		if resp.Failed() {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}
	summary.Blocked = summary.Total - len(results)
	return summary
}

// buildMetadata performs the dependency-scoped metadata merge: the base
// bucket plus one bucket per dependency, each holding
// exactly that dependency's response metadata. No other processor's
// metadata is visible.
func buildMetadata(input ports.ProcessorRequest, deps []string, coord *coordinator.Coordinator) map[string]map[string]string {
	merged := make(map[string]map[string]string, len(deps)+1)
	if base, ok := input.Metadata[ports.BaseMetadataKey]; ok {
		merged[ports.BaseMetadataKey] = base
	}
	for _, d := range deps {
		if resp, ok := coord.Result(d); ok {
			merged[d] = resp.Metadata
		}
	}
	return merged
}

// buildRequest constructs the request handed to id's processor: the run's
// original input when id has no dependencies, or a snapshot of the
// canonical payload plus the dependency-scoped metadata merge otherwise.
func buildRequest(input ports.ProcessorRequest, id string, deps []string, coord *coordinator.Coordinator) ports.ProcessorRequest {
	if len(deps) == 0 {
		return input
	}
	return ports.ProcessorRequest{
		Payload:  coord.ReadPayload(),
		Metadata: buildMetadata(input, deps, coord),
	}
}

// invoke runs the shared per-processor invocation algorithm for id: builds
// its request, calls its processor (recovering any panic at this task
// boundary), applies the Transform write-back rule, records the result
// exactly once, and on failure propagates the failure and blocks every
// transitively dependent node.
//
// It returns the response that was recorded and a non-nil error if and
// only if the invocation failed; callers decide failure-strategy policy
// (FailFast cancellation, etc.) based on that error.
func invoke(
	ctx context.Context,
	id string,
	processors map[string]ports.Processor,
	graph ports.DependencyGraph,
	input ports.ProcessorRequest,
	coord *coordinator.Coordinator,
	obs Observers,
) (resp ports.ProcessorResponse, err error) {
	proc := processors[id]
	deps := graph.DepsOf(id)
	req := buildRequest(input, id, deps, coord)

	start := time.Now()
	var span trace.Span
	if obs.Tracer != nil {
		ctx, span = obs.Tracer.Start(ctx, "processor.process",
			trace.WithAttributes(
				attribute.String("processor.id", id),
				attribute.String("processor.intent", proc.Intent().String()),
			))
		defer span.End()
	}

	resp, procErr := invokeSafely(ctx, proc, req)
	if span != nil && (procErr != nil || resp.Failed()) {
		errText := ""
		if procErr != nil {
			errText = procErr.Error()
		} else {
			errText = resp.Err.Error()
		}
		span.SetStatus(codes.Error, errText)
	}

	labels := map[string]string{"processor": id, "intent": proc.Intent().String()}
	if obs.Metrics != nil {
		status := "success"
		if procErr != nil || resp.Failed() {
			status = "error"
		}
		labels["status"] = status
		obs.Metrics.RecordLatency("processor_invocation", time.Since(start), labels)
		obs.Metrics.RecordCounter("processor_invocations_total", 1, labels)
	}

	if procErr == nil && !resp.Failed() {
		if proc.Intent() == ports.Transform && resp.NextPayload != nil {
			coord.WritePayload(resp.NextPayload)
		}
		if recErr := coord.RecordResult(id, resp); recErr != nil {
			return resp, recErr
		}
		return resp, nil
	}

	failureErr := procErr
	if failureErr == nil {
		failureErr = resp.Err
	}
	failedResp := ports.ProcessorResponse{Err: failureErr, Metadata: resp.Metadata}
	// RecordResult error is ignored here: a double-failure race recording
	// the same id twice is already reflected by the first writer's result.
	_ = coord.RecordResult(id, failedResp)
	coord.PropagateFailure(id, graph.DependentsReachable(id))

	return failedResp, failureErr
}

// invokeSafely calls proc.Process, converting any panic into an error so
// it never escapes the engine's entry point.
func invokeSafely(ctx context.Context, proc ports.Processor, req ports.ProcessorRequest) (resp ports.ProcessorResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processor %q panicked: %v", proc.ID(), r)
		}
	}()
	return proc.Process(ctx, req)
}

// verifyAcyclic peels g from its entrypoints and reports
// engineerrors.ErrCycleDetected if some node is never reached. graph.New
// already rejects cycles at construction, but an executor handed an
// arbitrary ports.DependencyGraph must not deadlock or silently drop the
// unreachable nodes, so each strategy re-checks before scheduling.
func verifyAcyclic(g ports.DependencyGraph) error {
	inDegree := g.InitialDepCounts()
	frontier := g.Entrypoints()
	reached := len(frontier)
	for len(frontier) > 0 {
		var next []string
		for _, id := range frontier {
			for _, dependent := range g.DependentsOf(id) {
				inDegree[dependent]--
				if inDegree[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		reached += len(next)
		frontier = next
	}
	if reached != len(g.Nodes()) {
		return engineerrors.ErrCycleDetected
	}
	return nil
}

// mergeFinalMetadata builds the run's PipelineMetadata: the base bucket
// preserved unmodified, plus one entry per successfully completed
// processor, namespaced by its own id.
func mergeFinalMetadata(input ports.ProcessorRequest, results map[string]ports.ProcessorResponse) map[string]map[string]string {
	out := make(map[string]map[string]string, len(results)+1)
	if base, ok := input.Metadata[ports.BaseMetadataKey]; ok {
		out[ports.BaseMetadataKey] = base
	}
	for id, resp := range results {
		if !resp.Failed() {
			out[id] = resp.Metadata
		}
	}
	return out
}
