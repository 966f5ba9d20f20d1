// Package coordinator implements the Canonical Payload Coordinator: the
// process-wide state for one engine run — the in-flight canonical payload,
// the write-once results map, the monotonically growing failed/blocked
// sets, and the active-task counter. One instance is owned by an executor
// for the lifetime of a single Execute call and discarded on return.
package coordinator

import (
	"fmt"
	"sync"

	"github.com/flowgraph/engine/internal/ports"
)

// Coordinator owns all per-run shared state. Every exported method is safe
// for concurrent use; each guarded resource has its own lock and no method
// holds more than one lock at a time, so no call path can deadlock on
// lock ordering.
type Coordinator struct {
	payloadMu sync.RWMutex
	payload   []byte

	resultsMu sync.Mutex
	results   map[string]ports.ProcessorResponse

	setsMu  sync.Mutex
	failed  map[string]struct{}
	blocked map[string]struct{}

	activeMu sync.Mutex
	active   int
}

// New creates a Coordinator seeded with the run's initial payload bytes.
func New(initialPayload []byte) *Coordinator {
	return &Coordinator{
		payload: append([]byte(nil), initialPayload...),
		results: make(map[string]ports.ProcessorResponse),
		failed:  make(map[string]struct{}),
		blocked: make(map[string]struct{}),
	}
}

// ReadPayload returns a snapshot copy of the current canonical payload. The
// copy is safe to hand to a processor without holding any lock during the
// invocation.
func (c *Coordinator) ReadPayload() []byte {
	c.payloadMu.RLock()
	defer c.payloadMu.RUnlock()
	return append([]byte(nil), c.payload...)
}

// WritePayload swaps in a new canonical payload. Callers must only invoke
// this after a Transform processor's successful NextPayload outcome.
func (c *Coordinator) WritePayload(next []byte) {
	c.payloadMu.Lock()
	defer c.payloadMu.Unlock()
	c.payload = append([]byte(nil), next...)
}

// RecordResult stores id's response. It returns an error if id already has
// a result: the results map is write-once.
func (c *Coordinator) RecordResult(id string, resp ports.ProcessorResponse) error {
	c.resultsMu.Lock()
	defer c.resultsMu.Unlock()
	if _, exists := c.results[id]; exists {
		return fmt.Errorf("result for %q already recorded", id)
	}
	c.results[id] = resp
	return nil
}

// Result returns id's recorded response, if any.
func (c *Coordinator) Result(id string) (ports.ProcessorResponse, bool) {
	c.resultsMu.Lock()
	defer c.resultsMu.Unlock()
	r, ok := c.results[id]
	return r, ok
}

// Results returns a shallow copy of the full results map, safe to return to
// a caller after the run ends.
func (c *Coordinator) Results() map[string]ports.ProcessorResponse {
	c.resultsMu.Lock()
	defer c.resultsMu.Unlock()
	out := make(map[string]ports.ProcessorResponse, len(c.results))
	for id, r := range c.results {
		out[id] = r
	}
	return out
}

// MarkFailed adds id to the FailedSet. FailedSet only grows.
func (c *Coordinator) MarkFailed(id string) {
	c.setsMu.Lock()
	defer c.setsMu.Unlock()
	c.failed[id] = struct{}{}
}

// IsFailed reports whether id is in the FailedSet.
func (c *Coordinator) IsFailed(id string) bool {
	c.setsMu.Lock()
	defer c.setsMu.Unlock()
	_, ok := c.failed[id]
	return ok
}

// MarkBlocked adds id to the BlockedSet. BlockedSet only grows.
func (c *Coordinator) MarkBlocked(id string) {
	c.setsMu.Lock()
	defer c.setsMu.Unlock()
	c.blocked[id] = struct{}{}
}

// IsBlocked reports whether id is in the BlockedSet.
func (c *Coordinator) IsBlocked(id string) bool {
	c.setsMu.Lock()
	defer c.setsMu.Unlock()
	_, ok := c.blocked[id]
	return ok
}

// BlockedSnapshot returns a copy of the BlockedSet suitable for passing to
// queue.PopNextAvailable without holding the coordinator's lock while the
// queue is manipulated.
func (c *Coordinator) BlockedSnapshot() map[string]struct{} {
	c.setsMu.Lock()
	defer c.setsMu.Unlock()
	out := make(map[string]struct{}, len(c.blocked))
	for id := range c.blocked {
		out[id] = struct{}{}
	}
	return out
}

// PropagateFailure marks id failed and transitively blocks every descendant
// reachable from it. descendantsOf should be the graph's
// DependentsReachable(id); it is passed in rather than computed here so
// this package stays independent of the graph package's concrete type. It
// returns the descendant ids that were newly blocked by this call (ids
// already blocked are not returned again). The executors consult the
// resulting BlockedSet to decide which pending tasks to skip.
func (c *Coordinator) PropagateFailure(id string, descendantsOf []string) []string {
	c.setsMu.Lock()
	defer c.setsMu.Unlock()

	c.failed[id] = struct{}{}
	c.blocked[id] = struct{}{}

	newlyBlocked := make([]string, 0, len(descendantsOf))
	for _, d := range descendantsOf {
		if _, already := c.blocked[d]; !already {
			c.blocked[d] = struct{}{}
			newlyBlocked = append(newlyBlocked, d)
		}
	}
	return newlyBlocked
}

// IncActive increments the active-task counter and returns the new value.
func (c *Coordinator) IncActive() int {
	c.activeMu.Lock()
	defer c.activeMu.Unlock()
	c.active++
	return c.active
}

// DecActive decrements the active-task counter and returns the new value.
func (c *Coordinator) DecActive() int {
	c.activeMu.Lock()
	defer c.activeMu.Unlock()
	c.active--
	return c.active
}

// ActiveCount returns the current active-task counter value.
func (c *Coordinator) ActiveCount() int {
	c.activeMu.Lock()
	defer c.activeMu.Unlock()
	return c.active
}
