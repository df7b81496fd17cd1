// Package telemetry exports arena and judge metrics to Prometheus.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/modelscope/eval-scope/infrastructure/predictor"
	"github.com/modelscope/eval-scope/internal/arena"
	"github.com/modelscope/eval-scope/internal/ports"
)

// PrometheusMetrics implements ports.MetricsCollector. Known metric names
// map to dedicated vectors; anything else lands in the generic
// eval_scope_events_total and eval_scope_state vectors keyed by name.
type PrometheusMetrics struct {
	judgments     *prometheus.CounterVec
	cacheHits     *prometheus.CounterVec
	parseFailures *prometheus.CounterVec
	judgeLatency  *prometheus.HistogramVec

	requestLatency *prometheus.HistogramVec
	requests       *prometheus.CounterVec
	tokens         *prometheus.CounterVec
	budget         *prometheus.GaugeVec

	events *prometheus.CounterVec
	state  *prometheus.GaugeVec
}

var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics registers every collector on reg. Passing a fresh
// prometheus.NewRegistry keeps tests and repeated runs independent of the
// global default registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	f := promauto.With(reg)
	return &PrometheusMetrics{
		judgments: f.NewCounterVec(prometheus.CounterOpts{
			Name: arena.MetricJudgments,
			Help: "Verdicts persisted, by arena mode and winner.",
		}, []string{"mode", "winner"}),
		cacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Name: arena.MetricCacheHits,
			Help: "Judgments skipped because the result log already held them.",
		}, []string{"mode"}),
		parseFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: arena.MetricParseFailures,
			Help: "Judge completions the parser could not resolve.",
		}, []string{"parser"}),
		judgeLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    arena.MetricJudgeLatency + "_duration_seconds",
			Help:    "End-to-end latency of one judge call as seen by the arena.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"mode", "judge"}),

		requestLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    predictor.MetricRequestLatency,
			Help:    "Latency of judge provider requests.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"provider", "model", "status"}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: predictor.MetricRequests,
			Help: "Judge provider requests by outcome.",
		}, []string{"provider", "model", "status"}),
		tokens: f.NewCounterVec(prometheus.CounterOpts{
			Name: predictor.MetricTokens,
			Help: "Tokens consumed by judge requests.",
		}, []string{"provider", "model", "token_type"}),
		budget: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "judge_budget_used",
			Help: "Judge budget consumed so far, by resource.",
		}, []string{"model", "resource"}),

		events: f.NewCounterVec(prometheus.CounterOpts{
			Name: "eval_scope_events_total",
			Help: "Counters without a dedicated metric.",
		}, []string{"metric"}),
		state: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "eval_scope_state",
			Help: "Gauges without a dedicated metric.",
		}, []string{"metric"}),
	}
}

// RecordLatency implements ports.MetricsCollector.
func (pm *PrometheusMetrics) RecordLatency(operation string, d time.Duration, labels map[string]string) {
	pm.RecordHistogram(operation, d.Seconds(), labels)
}

// RecordCounter implements ports.MetricsCollector.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case arena.MetricJudgments:
		pm.judgments.WithLabelValues(labels["mode"], labels["winner"]).Add(value)
	case arena.MetricCacheHits:
		pm.cacheHits.WithLabelValues(labels["mode"]).Add(value)
	case arena.MetricParseFailures:
		pm.parseFailures.WithLabelValues(labels["parser"]).Add(value)
	case predictor.MetricRequests:
		pm.requests.WithLabelValues(labels["provider"], labels["model"], labels["status"]).Add(value)
	case predictor.MetricTokens:
		pm.tokens.WithLabelValues(labels["provider"], labels["model"], labels["token_type"]).Add(value)
	default:
		pm.events.WithLabelValues(metric).Add(value)
	}
}

// RecordGauge implements ports.MetricsCollector.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, labels map[string]string) {
	switch metric {
	case predictor.MetricBudgetCalls:
		pm.budget.WithLabelValues(labels["model"], "calls").Set(value)
	case predictor.MetricBudgetTokens:
		pm.budget.WithLabelValues(labels["model"], "tokens").Set(value)
	default:
		pm.state.WithLabelValues(metric).Set(value)
	}
}

// RecordHistogram implements ports.MetricsCollector.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	switch metric {
	case arena.MetricJudgeLatency:
		pm.judgeLatency.WithLabelValues(labels["mode"], labels["judge"]).Observe(value)
	case predictor.MetricRequestLatency:
		pm.requestLatency.WithLabelValues(labels["provider"], labels["model"], labels["status"]).Observe(value)
	default:
		pm.state.WithLabelValues(metric).Set(value)
	}
}
