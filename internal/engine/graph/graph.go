// Package graph builds and exposes the immutable dependency graph that
// every executor schedules against: forward dependencies, reverse
// adjacency (dependents), topological rank, and initial dependency counts.
package graph

import (
	"sort"

	"github.com/flowgraph/engine/internal/engineerrors"
	"github.com/flowgraph/engine/internal/ports"
)

// Node describes one processor's position in the graph before construction:
// its id and the ids it depends on.
type Node struct {
	ID        string
	DependsOn []string
}

// DependencyGraph is the concrete, immutable implementation of
// ports.DependencyGraph. It is built once per run and never mutated
// afterward; all executors share the same instance.
type DependencyGraph struct {
	deps       map[string][]string
	dependents map[string][]string
	depCount   map[string]int
	rank       map[string]int
	entrypoint []string
	order      []string
}

// New constructs a DependencyGraph from a node list. It returns
// engineerrors.ErrCycleDetected if the graph is not acyclic: ranking
// via iterative peeling must reach every node, or a cycle exists.
func New(nodes []Node) (*DependencyGraph, error) {
	g := &DependencyGraph{
		deps:       make(map[string][]string, len(nodes)),
		dependents: make(map[string][]string, len(nodes)),
		depCount:   make(map[string]int, len(nodes)),
		rank:       make(map[string]int, len(nodes)),
		order:      make([]string, 0, len(nodes)),
	}

	for _, n := range nodes {
		g.deps[n.ID] = append([]string(nil), n.DependsOn...)
		g.depCount[n.ID] = len(n.DependsOn)
		g.order = append(g.order, n.ID)
	}
	for _, n := range nodes {
		for _, dep := range n.DependsOn {
			g.dependents[dep] = append(g.dependents[dep], n.ID)
		}
	}

	for id, c := range g.depCount {
		if c == 0 {
			g.entrypoint = append(g.entrypoint, id)
		}
	}
	sort.Strings(g.entrypoint)

	if err := g.computeRanks(); err != nil {
		return nil, err
	}

	return g, nil
}

// computeRanks assigns every node rank = 1 + max(rank of its deps), via
// Kahn-style iterative peeling starting from the entrypoints. A node left
// unranked after the graph is exhausted means the input was not a DAG.
func (g *DependencyGraph) computeRanks() error {
	remaining := make(map[string]int, len(g.depCount))
	for id, c := range g.depCount {
		remaining[id] = c
	}

	frontier := append([]string(nil), g.entrypoint...)
	for _, id := range frontier {
		g.rank[id] = 0
	}

	ranked := len(frontier)
	for len(frontier) > 0 {
		next := make([]string, 0)
		for _, id := range frontier {
			r := g.rank[id]
			for _, dependent := range g.dependents[id] {
				if r+1 > g.rank[dependent] {
					g.rank[dependent] = r + 1
				}
				remaining[dependent]--
				if remaining[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		ranked += len(next)
		sort.Strings(next)
		frontier = next
	}

	if ranked != len(g.order) {
		return engineerrors.ErrCycleDetected
	}
	return nil
}

// Nodes returns every processor id in the graph, in construction order.
func (g *DependencyGraph) Nodes() []string { return append([]string(nil), g.order...) }

// HasNode reports whether id is a member of the graph.
func (g *DependencyGraph) HasNode(id string) bool {
	_, ok := g.depCount[id]
	return ok
}

// DepsOf returns the direct dependencies of id.
func (g *DependencyGraph) DepsOf(id string) []string { return append([]string(nil), g.deps[id]...) }

// DependentsOf returns the direct dependents of id.
func (g *DependencyGraph) DependentsOf(id string) []string {
	return append([]string(nil), g.dependents[id]...)
}

// Entrypoints returns every node with no dependencies.
func (g *DependencyGraph) Entrypoints() []string { return append([]string(nil), g.entrypoint...) }

// Rank returns id's topological rank.
func (g *DependencyGraph) Rank(id string) int { return g.rank[id] }

// InitialDepCounts returns a fresh, mutable copy of id -> len(DepsOf(id)).
func (g *DependencyGraph) InitialDepCounts() map[string]int {
	out := make(map[string]int, len(g.depCount))
	for id, c := range g.depCount {
		out[id] = c
	}
	return out
}

// DependentsReachable returns every node transitively reachable from id via
// dependents edges, via breadth-first traversal — the descendant set that
// must be added to a BlockedSet when id fails.
func (g *DependencyGraph) DependentsReachable(id string) []string {
	visited := make(map[string]struct{})
	queue := append([]string(nil), g.dependents[id]...)
	var out []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if _, ok := visited[cur]; ok {
			continue
		}
		visited[cur] = struct{}{}
		out = append(out, cur)
		queue = append(queue, g.dependents[cur]...)
	}
	return out
}

var _ ports.DependencyGraph = (*DependencyGraph)(nil)
