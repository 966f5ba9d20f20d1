// Package tracing provides OpenTelemetry instrumentation for the engine:
// a tracer for per-processor invocation spans and a RunObserver for
// whole-run span/metric reporting.
package tracing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/flowgraph/engine/internal/ports"
)

// tracerName identifies this module's instrumentation scope to the
// OpenTelemetry SDK.
const tracerName = "github.com/flowgraph/engine"

// NewTracer returns a tracer under this module's instrumentation scope,
// suitable as the Observers.Tracer with which the shared per-processor
// invocation algorithm (executor/invoke.go) spans every Process call.
func NewTracer() trace.Tracer { return otel.Tracer(tracerName) }

// RunSummary tallies how a single Execute call resolved, for the span
// attributes and metrics a RunObserver reports at run end.
type RunSummary struct {
	Total     int
	Succeeded int
	Failed    int
	Blocked   int
}

// RunObserver instruments a whole executor run: one span covering the
// entire Execute call, plus gauges and a latency histogram recording how
// the run's nodes resolved. It is the run-level counterpart to the
// per-invocation spans produced by the executor's Observers.Tracer.
type RunObserver struct {
	metrics  ports.MetricsCollector
	strategy string
}

// NewRunObserver returns a RunObserver reporting to metrics (which may be
// nil to disable metrics while keeping spans) and labeling every metric
// and span with the given executor strategy name ("workqueue",
// "level", or "reactive").
func NewRunObserver(metrics ports.MetricsCollector, strategy string) *RunObserver {
	return &RunObserver{metrics: metrics, strategy: strategy}
}

// Begin starts the run's span. Callers must pass the returned context to
// every child operation they want nested under it and must call End with
// the returned span once the run concludes.
func (o *RunObserver) Begin(ctx context.Context) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "engine.Execute", trace.WithAttributes(
		attribute.String("engine.strategy", o.strategy),
	))
	return ctx, span
}

// warningThreshold and criticalThreshold gate span events on the fraction
// of a run's nodes that did not succeed.
const (
	warningThreshold  = 0.25
	criticalThreshold = 0.5
)

// End finalizes span with summary's outcome tallies, emits threshold
// events if a significant fraction of nodes failed or were blocked,
// records metrics if a collector was configured, and sets the span's
// final status from err.
func (o *RunObserver) End(span trace.Span, elapsed time.Duration, summary RunSummary, err error) {
	defer span.End()

	span.SetAttributes(
		attribute.Int("engine.nodes_total", summary.Total),
		attribute.Int("engine.nodes_succeeded", summary.Succeeded),
		attribute.Int("engine.nodes_failed", summary.Failed),
		attribute.Int("engine.nodes_blocked", summary.Blocked),
	)

	if summary.Total > 0 {
		unhealthy := float64(summary.Failed+summary.Blocked) / float64(summary.Total)
		if unhealthy >= criticalThreshold {
			span.AddEvent("engine.unhealthy_ratio.critical", trace.WithAttributes(
				attribute.Float64("unhealthy_ratio", unhealthy),
			))
		} else if unhealthy >= warningThreshold {
			span.AddEvent("engine.unhealthy_ratio.warning", trace.WithAttributes(
				attribute.Float64("unhealthy_ratio", unhealthy),
			))
		}
	}

	if o.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		labels := map[string]string{"strategy": o.strategy, "status": status}
		o.metrics.RecordLatency("engine_run", elapsed, labels)
		o.metrics.RecordGauge("engine_nodes_total", float64(summary.Total), labels)
		o.metrics.RecordGauge("engine_nodes_succeeded", float64(summary.Succeeded), labels)
		o.metrics.RecordGauge("engine_nodes_failed", float64(summary.Failed), labels)
		o.metrics.RecordGauge("engine_nodes_blocked", float64(summary.Blocked), labels)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}
