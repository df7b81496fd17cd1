package telemetry

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelscope/eval-scope/infrastructure/predictor"
	"github.com/modelscope/eval-scope/internal/arena"
	"github.com/modelscope/eval-scope/internal/ports"
)

func TestPrometheusMetrics_ArenaMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := NewPrometheusMetrics(reg)

	pm.RecordCounter(arena.MetricJudgments, 1, map[string]string{"mode": "pairwise_all", "winner": "model_a"})
	pm.RecordCounter(arena.MetricJudgments, 1, map[string]string{"mode": "pairwise_all", "winner": "model_a"})
	pm.RecordCounter(arena.MetricJudgments, 1, map[string]string{"mode": "pairwise_all", "winner": "tie"})
	pm.RecordCounter(arena.MetricCacheHits, 3, map[string]string{"mode": "pairwise_all"})
	pm.RecordCounter(arena.MetricParseFailures, 1, map[string]string{"parser": "lmsys_pairwise"})
	pm.RecordLatency(arena.MetricJudgeLatency, 200*time.Millisecond, map[string]string{"mode": "pairwise_all", "judge": "gpt-4o"})

	assert.Equal(t, 2.0, testutil.ToFloat64(pm.judgments.WithLabelValues("pairwise_all", "model_a")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.judgments.WithLabelValues("pairwise_all", "tie")))
	assert.Equal(t, 3.0, testutil.ToFloat64(pm.cacheHits.WithLabelValues("pairwise_all")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.parseFailures.WithLabelValues("lmsys_pairwise")))
	assert.Equal(t, 1, testutil.CollectAndCount(pm.judgeLatency))
}

func TestPrometheusMetrics_FallbackVectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := NewPrometheusMetrics(reg)

	pm.RecordCounter("custom_total", 2, nil)
	pm.RecordGauge("custom_gauge", 7, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(pm.events.WithLabelValues("custom_total")))
	assert.Equal(t, 7.0, testutil.ToFloat64(pm.state.WithLabelValues("custom_gauge")))
}

func TestPrometheusMetrics_PredictorMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := NewPrometheusMetrics(reg)

	client := predictor.NewWithBackend("dummy", predictor.NewDummyBackend(),
		predictor.Resilience{Budget: predictor.Budget{MaxCalls: 5}}.Middleware("dummy", pm)...)
	for range 2 {
		_, err := client.Predict(context.Background(), ports.PredictRequest{UserPrompt: "q"})
		require.NoError(t, err)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(pm.requests.WithLabelValues("dummy", predictor.DummyModel, "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(pm.budget.WithLabelValues(predictor.DummyModel, "calls")))
	assert.Greater(t, testutil.ToFloat64(pm.tokens.WithLabelValues("dummy", predictor.DummyModel, "input")), 0.0)

	err := testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP judge_requests_total Judge provider requests by outcome.
# TYPE judge_requests_total counter
judge_requests_total{model="dummy",provider="dummy",status="success"} 2
`), predictor.MetricRequests)
	require.NoError(t, err)
}

func TestNewPrometheusMetrics_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewPrometheusMetrics(prometheus.NewRegistry())
		NewPrometheusMetrics(prometheus.NewRegistry())
	})
}
