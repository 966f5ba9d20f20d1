package executor

import (
	"context"
	"sync"
	"time"

	"github.com/flowgraph/engine/internal/engine/coordinator"
	"github.com/flowgraph/engine/internal/engineerrors"
	"github.com/flowgraph/engine/internal/ports"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Level implements ports.Executor by precomputing Kahn levels and running
// each level's nodes in bounded parallel, with a barrier between levels.
type Level struct {
	Observers Observers
}

// NewLevel returns a Level executor reporting to obs.
func NewLevel(obs Observers) *Level {
	return &Level{Observers: obs}
}

// computeLevels runs Kahn's algorithm: level 0 is the
// entrypoints; level k+1 is every node whose in-degree, decremented by
// every dependency in levels 0..k, reaches zero. Returns
// engineerrors.ErrCycleDetected if any node is never assigned a level,
// which should be impossible given the graph's own construction-time
// acyclicity check — this is the executor's independent safety net.
func computeLevels(g ports.DependencyGraph) ([][]string, error) {
	inDegree := g.InitialDepCounts()
	visited := make(map[string]struct{}, len(inDegree))

	current := g.Entrypoints()
	var levels [][]string
	for len(current) > 0 {
		levels = append(levels, current)
		for _, id := range current {
			visited[id] = struct{}{}
		}

		var next []string
		for _, id := range current {
			for _, dependent := range g.DependentsOf(id) {
				inDegree[dependent]--
				if inDegree[dependent] == 0 {
					if _, already := visited[dependent]; !already {
						next = append(next, dependent)
					}
				}
			}
		}
		current = next
	}

	if len(visited) != len(g.Nodes()) {
		return nil, engineerrors.ErrCycleDetected
	}
	return levels, nil
}

// Execute runs the level-by-level strategy: compute the levels, then run
// each one in bounded parallel with a barrier before the next.
func (e *Level) Execute(
	ctx context.Context,
	processors map[string]ports.Processor,
	g ports.DependencyGraph,
	input ports.ProcessorRequest,
	strategy ports.FailureStrategy,
	maxConcurrency int,
) (results map[string]ports.ProcessorResponse, metadata map[string]map[string]string, err error) {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	if verr := validateProcessors(processors, g); verr != nil {
		return nil, nil, verr
	}

	levels, err := computeLevels(g)
	if err != nil {
		return nil, nil, err
	}

	start := time.Now()
	var span trace.Span
	if e.Observers.Run != nil {
		ctx, span = e.Observers.Run.Begin(ctx)
		defer func() {
			e.Observers.Run.End(span, time.Since(start), runSummary(g, results), err)
		}()
	}

	coord := coordinator.New(input.Payload)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var failOnce sync.Once
	var firstErr error

	for _, level := range levels {
		grp, gctx := errgroup.WithContext(runCtx)
		grp.SetLimit(maxConcurrency)

		for _, id := range level {
			grp.Go(func() error {
				if coord.IsBlocked(id) {
					return nil
				}
				// Under ContinueOnError/BestEffort a node can reach its
				// level with a dependency already in FailedSet (a sibling
				// in an earlier level failed after this node's in-degree
				// was computed); treat it as blocked rather than invoking
				// its processor.
				for _, dep := range g.DepsOf(id) {
					if coord.IsFailed(dep) {
						coord.PropagateFailure(id, g.DependentsReachable(id))
						return nil
					}
				}

				_, invokeErr := invoke(gctx, id, processors, g, input, coord, e.Observers)
				if invokeErr != nil && strategy == ports.FailFast {
					// The first failure wins; peers torn down by the ensuing
					// cancellation report the same error so the group
					// surfaces a deterministic id.
					failOnce.Do(func() {
						firstErr = engineerrors.NewProcessorFailed(id, invokeErr)
					})
					cancel()
					return firstErr
				}
				return nil
			})
		}

		if waitErr := grp.Wait(); waitErr != nil {
			return nil, nil, waitErr
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
	}

	results = coord.Results()
	return results, mergeFinalMetadata(input, results), nil
}

var _ ports.Executor = (*Level)(nil)
