// Package engine is the DAG execution engine's top-level façade: it
// re-exports the graph constructor and picks an executor strategy at
// runtime.
package engine

import (
	"github.com/flowgraph/engine/internal/engine/executor"
	"github.com/flowgraph/engine/internal/engine/graph"
	"github.com/flowgraph/engine/internal/ports"
)

// Node describes one processor's position in the graph before
// construction, re-exported from the graph package for callers that only
// need this package's import.
type Node = graph.Node

// NewGraph builds a DependencyGraph from nodes, returning
// engineerrors.ErrCycleDetected if it is not a DAG.
func NewGraph(nodes []Node) (ports.DependencyGraph, error) {
	return graph.New(nodes)
}

// Observers re-exports executor.Observers so callers configuring metrics
// and tracing never need to import the executor package directly.
type Observers = executor.Observers

// Strategy selects which of the three interchangeable execution
// strategies NewExecutor builds.
type Strategy int

const (
	// WorkQueueStrategy pops ready tasks off a single priority queue and
	// spawns them up to a permit limit, decrementing dependents' counts
	// on completion.
	WorkQueueStrategy Strategy = iota
	// LevelStrategy precomputes Kahn levels and runs each level in
	// bounded parallel with a barrier between levels.
	LevelStrategy
	// ReactiveStrategy spawns one goroutine per node immediately; each
	// waits on an event channel until its dependencies complete.
	ReactiveStrategy
)

// String renders the Strategy for logging and error messages.
func (s Strategy) String() string {
	switch s {
	case WorkQueueStrategy:
		return "workqueue"
	case LevelStrategy:
		return "level"
	case ReactiveStrategy:
		return "reactive"
	default:
		return "unknown"
	}
}

// NewExecutor builds the ports.Executor implementing strategy, wired to
// report to obs. Callers may swap strategies freely between runs without
// touching graph construction or processor wiring.
func NewExecutor(strategy Strategy, obs Observers) ports.Executor {
	switch strategy {
	case LevelStrategy:
		return executor.NewLevel(obs)
	case ReactiveStrategy:
		return executor.NewReactive(obs)
	case WorkQueueStrategy:
		fallthrough
	default:
		return executor.NewWorkQueue(obs)
	}
}
