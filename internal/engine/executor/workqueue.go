package executor

import (
	"context"
	"sync"
	"time"

	"github.com/flowgraph/engine/internal/engine/coordinator"
	"github.com/flowgraph/engine/internal/engine/queue"
	"github.com/flowgraph/engine/internal/engineerrors"
	"github.com/flowgraph/engine/internal/ports"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// WorkQueue implements ports.Executor using a single priority work queue:
// pop-ready, spawn up to max_concurrency concurrently, and on each
// completion decrement the dependents' dependency counts, pushing any that
// reach zero back onto the queue.
type WorkQueue struct {
	Observers Observers
}

// NewWorkQueue returns a WorkQueue executor reporting to obs (any field
// of obs may be left nil to disable that observability channel).
func NewWorkQueue(obs Observers) *WorkQueue {
	return &WorkQueue{Observers: obs}
}

func taskFor(id string, g ports.DependencyGraph, processors map[string]ports.Processor) queue.Task {
	return queue.Task{ID: id, Rank: g.Rank(id), IsTransform: processors[id].Intent() == ports.Transform}
}

func validateProcessors(processors map[string]ports.Processor, g ports.DependencyGraph) error {
	for _, id := range g.Nodes() {
		if _, ok := processors[id]; !ok {
			return engineerrors.NewProcessorNotFound(id)
		}
	}
	return nil
}

// Execute runs the work-queue strategy: a single driver loop pops ready
// tasks, spawns them up to the permit limit, and waits for completion
// notifications to pop more.
func (e *WorkQueue) Execute(
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
	if verr := verifyAcyclic(g); verr != nil {
		return nil, nil, verr
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
	depCount := g.InitialDepCounts()

	q := queue.New()
	for _, id := range g.Entrypoints() {
		q.Push(taskFor(id, g, processors))
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	grp, gctx := errgroup.WithContext(runCtx)
	grp.SetLimit(maxConcurrency)

	var mu sync.Mutex
	done := make(chan struct{}, len(g.Nodes())+1)

	var failOnce sync.Once
	var firstErr error

driverLoop:
	for {
		blocked := coord.BlockedSnapshot()
		mu.Lock()
		var launched []string
		for {
			task, ok := q.PopNextAvailable(blocked)
			if !ok {
				break
			}
			launched = append(launched, task.ID)
		}
		mu.Unlock()

		for _, id := range launched {
			coord.IncActive()
			grp.Go(func() error {
				defer func() { done <- struct{}{} }()
				defer coord.DecActive()

				_, invokeErr := invoke(gctx, id, processors, g, input, coord, e.Observers)
				if invokeErr == nil {
					blocked := coord.BlockedSnapshot()
					mu.Lock()
					for _, dependent := range g.DependentsOf(id) {
						depCount[dependent]--
						if _, isBlocked := blocked[dependent]; depCount[dependent] == 0 && !isBlocked {
							q.Push(taskFor(dependent, g, processors))
						}
					}
					mu.Unlock()
					return nil
				}

				if strategy == ports.FailFast {
					// The first failure wins; workers torn down by the
					// ensuing cancellation report the same error so the
					// group surfaces a deterministic id.
					failOnce.Do(func() {
						firstErr = engineerrors.NewProcessorFailed(id, invokeErr)
					})
					cancel()
					return firstErr
				}
				return nil
			})
		}

		// The active count is read before the queue: a worker pushes its
		// dependents before it decrements the counter, so a count of zero
		// means every push has already landed in the queue.
		active := coord.ActiveCount()
		mu.Lock()
		finished := q.IsEmpty() && active == 0
		mu.Unlock()
		if finished {
			break
		}

		select {
		case <-done:
		case <-gctx.Done():
			break driverLoop
		}
	}

	if waitErr := grp.Wait(); waitErr != nil {
		return nil, nil, waitErr
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, nil, ctxErr
	}

	results = coord.Results()
	return results, mergeFinalMetadata(input, results), nil
}

var _ ports.Executor = (*WorkQueue)(nil)
