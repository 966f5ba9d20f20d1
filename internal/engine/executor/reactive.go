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

// eventKind distinguishes the three events a reactive node's channel can
// carry.
type eventKind int

const (
	eventExecute eventKind = iota
	eventDependencyCompleted
	eventDependencyFailed
)

// nodeEvent is one message delivered to a reactive node's channel: either
// the initial Execute trigger for an entrypoint, or a dependency's
// completion (success or failure) arriving from an upstream node.
type nodeEvent struct {
	kind eventKind
	from string
}

// Reactive implements ports.Executor with one goroutine spawned per node
// immediately; each waits on its own buffered channel until every
// dependency has delivered a DependencyCompleted (or the node is an
// entrypoint and receives the initial Execute event), then runs, then
// fans DependencyCompleted or DependencyFailed out to its dependents.
// Failure is signaled with an explicit DependencyFailed event rather than
// silent non-notification, so no downstream node ever hangs waiting.
type Reactive struct {
	Observers Observers
}

// NewReactive returns a Reactive executor reporting to obs.
func NewReactive(obs Observers) *Reactive {
	return &Reactive{Observers: obs}
}

// Execute runs the reactive strategy: every node's goroutine starts
// immediately and blocks on its event channel until its dependencies have
// all reported.
func (e *Reactive) Execute(
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
	nodes := g.Nodes()

	// Every node's channel is buffered to its dependency count so a
	// fan-out sender never blocks waiting for the receiving node's loop
	// to drain (deps complete at unpredictable times, possibly before
	// the dependent's goroutine has even reached its receive loop).
	channels := make(map[string]chan nodeEvent, len(nodes))
	for _, id := range nodes {
		bufSize := len(g.DepsOf(id))
		if bufSize < 1 {
			bufSize = 1
		}
		channels[id] = make(chan nodeEvent, bufSize)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, maxConcurrency)
	grp, gctx := errgroup.WithContext(runCtx)

	var failOnce sync.Once
	var firstErr error

	for _, id := range nodes {
		id := id
		grp.Go(func() error {
			deps := g.DepsOf(id)
			pending := len(deps)
			failed := false

			// An entrypoint has no dependencies to count down; it still
			// waits for its Execute trigger so every node follows the same
			// event-driven path.
			if pending == 0 {
				pending = 1
			}

		waitLoop:
			for pending > 0 {
				select {
				case ev := <-channels[id]:
					switch ev.kind {
					case eventExecute:
						pending = 0
					case eventDependencyCompleted:
						pending--
					case eventDependencyFailed:
						failed = true
						pending--
					}
				case <-gctx.Done():
					return nil
				}
				if failed {
					break waitLoop
				}
			}

			if failed || coord.IsBlocked(id) {
				coord.PropagateFailure(id, g.DependentsReachable(id))
				notify(channels, g.DependentsOf(id), eventDependencyFailed, id, gctx)
				return nil
			}

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				return nil
			}

			_, invokeErr := invoke(gctx, id, processors, g, input, coord, e.Observers)
			if invokeErr != nil {
				notify(channels, g.DependentsOf(id), eventDependencyFailed, id, gctx)
				if strategy == ports.FailFast {
					failOnce.Do(func() {
						firstErr = engineerrors.NewProcessorFailed(id, invokeErr)
					})
					cancel()
					return firstErr
				}
				return nil
			}

			notify(channels, g.DependentsOf(id), eventDependencyCompleted, id, gctx)
			return nil
		})
	}

	// Kick off the entrypoints. Channels are buffered, so these sends
	// complete whether or not the receiving goroutines have started.
	for _, id := range g.Entrypoints() {
		channels[id] <- nodeEvent{kind: eventExecute}
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

// notify fans ev out to every id in dependents' channel, tagged with
// from. It never blocks past gctx's cancellation: every channel is
// pre-sized to its owner's dependency count, so a send only blocks if the
// run is already being torn down.
func notify(channels map[string]chan nodeEvent, dependents []string, kind eventKind, from string, gctx context.Context) {
	for _, dependent := range dependents {
		select {
		case channels[dependent] <- nodeEvent{kind: kind, from: from}:
		case <-gctx.Done():
			return
		}
	}
}

var _ ports.Executor = (*Reactive)(nil)
