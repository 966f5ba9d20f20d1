// Package engineerrors defines the execution-time error taxonomy for the
// DAG engine: the failures an Executor can surface to its caller, as
// distinct from the provider-level errors in internal/ports/errors.go.
package engineerrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions that do not carry per-id detail.
var (
	// ErrCycleDetected means graph construction could not assign a rank to
	// every node: the input is not a DAG. Callers upholding the config
	// contract (cycle detection at load time) should never observe this;
	// the engine enforces it anyway as a safety net.
	ErrCycleDetected = errors.New("dependency graph contains a cycle")

	// ErrPermitAcquisitionFailed means the concurrency semaphore could not
	// be acquired before the run's context was canceled.
	ErrPermitAcquisitionFailed = errors.New("failed to acquire concurrency permit")

	// ErrChannelClosed means an internal event channel closed before the
	// expected event arrived; this indicates a scheduler bug, not a
	// processor failure.
	ErrChannelClosed = errors.New("internal event channel closed unexpectedly")
)

// ProcessorFailedError is returned by a FailFast run on the first processor
// failure. It names the processor that failed and wraps the underlying
// error for errors.Is/errors.As inspection.
type ProcessorFailedError struct {
	ID  string
	Err error
}

// Error implements the error interface for ProcessorFailedError.
func (e *ProcessorFailedError) Error() string {
	return fmt.Sprintf("processor %q failed: %v", e.ID, e.Err)
}

// Unwrap returns the underlying processor error.
func (e *ProcessorFailedError) Unwrap() error { return e.Err }

// NewProcessorFailed wraps err as a ProcessorFailedError for id.
func NewProcessorFailed(id string, err error) *ProcessorFailedError {
	return &ProcessorFailedError{ID: id, Err: err}
}

// ProcessorNotFoundError means the graph references an id absent from the
// caller-supplied processor map — a precondition violation.
type ProcessorNotFoundError struct {
	ID string
}

// Error implements the error interface for ProcessorNotFoundError.
func (e *ProcessorNotFoundError) Error() string {
	return fmt.Sprintf("no processor registered for node %q", e.ID)
}

// NewProcessorNotFound builds a ProcessorNotFoundError for id.
func NewProcessorNotFound(id string) *ProcessorNotFoundError {
	return &ProcessorNotFoundError{ID: id}
}
