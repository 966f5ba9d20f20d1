// Package metrics provides the engine's ports.MetricsCollector
// implementation backed by Prometheus client vectors.
package metrics

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/flowgraph/engine/internal/ports"
)

// PrometheusCollector implements ports.MetricsCollector using Prometheus
// client vectors. Unlike a fixed-label collector, call sites in this
// module record different label sets (processor invocations key off
// processor/intent/status, engine runs key off strategy/status), so
// vectors are created lazily, one per metric name, the first time that
// name is observed. Prometheus requires a stable set of label names
// per descriptor, so the label keys found in the first call for a given
// metric name become that metric's permanent label schema.
type PrometheusCollector struct {
	registerer prometheus.Registerer

	mu         sync.Mutex
	counters   map[string]*vecEntry[*prometheus.CounterVec]
	gauges     map[string]*vecEntry[*prometheus.GaugeVec]
	histograms map[string]*vecEntry[*prometheus.HistogramVec]
}

type vecEntry[V any] struct {
	labelKeys []string
	vec       V
}

// NewPrometheusCollector returns a collector that registers its vectors
// against reg. Pass prometheus.DefaultRegisterer to expose metrics on the
// process's default /metrics handler, or a fresh *prometheus.Registry in
// tests to avoid duplicate-registration panics across test cases.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	return &PrometheusCollector{
		registerer: reg,
		counters:   make(map[string]*vecEntry[*prometheus.CounterVec]),
		gauges:     make(map[string]*vecEntry[*prometheus.GaugeVec]),
		histograms: make(map[string]*vecEntry[*prometheus.HistogramVec]),
	}
}

// sortedKeys returns labels' keys sorted, so repeated calls for the same
// metric name always resolve to the same vector regardless of map
// iteration order.
func sortedKeys(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func values(keys []string, labels map[string]string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = labels[k]
	}
	return out
}

func sanitizeName(metric string) string {
	return strings.ReplaceAll(metric, ".", "_")
}

// RecordLatency records duration in a histogram named <metric>_seconds.
func (c *PrometheusCollector) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	c.histogram(operation+"_seconds", duration.Seconds(), labels)
}

// RecordCounter increments a Prometheus counter named metric by value.
func (c *PrometheusCollector) RecordCounter(metric string, value float64, labels map[string]string) {
	c.mu.Lock()
	entry := c.counterLocked(metric, labels)
	c.mu.Unlock()
	entry.vec.WithLabelValues(values(entry.labelKeys, labels)...).Add(value)
}

// RecordGauge sets a Prometheus gauge named metric to value.
func (c *PrometheusCollector) RecordGauge(metric string, value float64, labels map[string]string) {
	c.mu.Lock()
	entry := c.gaugeLocked(metric, labels)
	c.mu.Unlock()
	entry.vec.WithLabelValues(values(entry.labelKeys, labels)...).Set(value)
}

// RecordHistogram records value in a Prometheus histogram named metric.
func (c *PrometheusCollector) RecordHistogram(metric string, value float64, labels map[string]string) {
	c.histogram(metric, value, labels)
}

func (c *PrometheusCollector) histogram(name string, value float64, labels map[string]string) {
	c.mu.Lock()
	entry := c.histogramLocked(name, labels)
	c.mu.Unlock()
	entry.vec.WithLabelValues(values(entry.labelKeys, labels)...).Observe(value)
}

func (c *PrometheusCollector) counterLocked(metric string, labels map[string]string) *vecEntry[*prometheus.CounterVec] {
	name := sanitizeName(metric)
	if e, ok := c.counters[name]; ok {
		return e
	}
	keys := sortedKeys(labels)
	vec := promauto.With(c.registerer).NewCounterVec(prometheus.CounterOpts{
		Name: name,
		Help: "Counter metric " + name + " recorded by the engine.",
	}, keys)
	e := &vecEntry[*prometheus.CounterVec]{labelKeys: keys, vec: vec}
	c.counters[name] = e
	return e
}

func (c *PrometheusCollector) gaugeLocked(metric string, labels map[string]string) *vecEntry[*prometheus.GaugeVec] {
	name := sanitizeName(metric)
	if e, ok := c.gauges[name]; ok {
		return e
	}
	keys := sortedKeys(labels)
	vec := promauto.With(c.registerer).NewGaugeVec(prometheus.GaugeOpts{
		Name: name,
		Help: "Gauge metric " + name + " recorded by the engine.",
	}, keys)
	e := &vecEntry[*prometheus.GaugeVec]{labelKeys: keys, vec: vec}
	c.gauges[name] = e
	return e
}

func (c *PrometheusCollector) histogramLocked(metric string, labels map[string]string) *vecEntry[*prometheus.HistogramVec] {
	name := sanitizeName(metric)
	if e, ok := c.histograms[name]; ok {
		return e
	}
	keys := sortedKeys(labels)
	vec := promauto.With(c.registerer).NewHistogramVec(prometheus.HistogramOpts{
		Name:    name,
		Help:    "Histogram metric " + name + " recorded by the engine.",
		Buckets: prometheus.DefBuckets,
	}, keys)
	e := &vecEntry[*prometheus.HistogramVec]{labelKeys: keys, vec: vec}
	c.histograms[name] = e
	return e
}

var _ ports.MetricsCollector = (*PrometheusCollector)(nil)
