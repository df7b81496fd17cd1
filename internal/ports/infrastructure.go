package ports

import (
	"context"
	"time"

	"github.com/modelscope/eval-scope/internal/domain"
)

// ResultLog is the durable, growing sequence of verdicts for one run.
// Implementations must leave the backing file in a readable state after
// every successful Append, so that a crash loses at most the judgment in
// flight.
type ResultLog interface {
	// Records returns the verdicts loaded at open plus those appended since,
	// in order.
	Records() []domain.VerdictRecord

	// Contains reports whether a verdict with the given key exists.
	Contains(key domain.VerdictKey) bool

	// Append adds rec and persists it before returning.
	Append(ctx context.Context, rec domain.VerdictRecord) error

	// Close flushes any buffered state. The log must not be used afterwards.
	Close(ctx context.Context) error
}

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	// This is useful for tracking events like cache hits, verdicts, errors.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	RecordHistogram(metric string, value float64, labels map[string]string)
}

// NopMetrics discards every observation.
type NopMetrics struct{}

// RecordLatency implements MetricsCollector.
func (NopMetrics) RecordLatency(string, time.Duration, map[string]string) {}

// RecordCounter implements MetricsCollector.
func (NopMetrics) RecordCounter(string, float64, map[string]string) {}

// RecordGauge implements MetricsCollector.
func (NopMetrics) RecordGauge(string, float64, map[string]string) {}

// RecordHistogram implements MetricsCollector.
func (NopMetrics) RecordHistogram(string, float64, map[string]string) {}

var _ MetricsCollector = NopMetrics{}
