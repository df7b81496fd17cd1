package predictor

import (
	"context"
	"errors"
	"time"

	"github.com/modelscope/eval-scope/internal/ports"
)

// Metric names recorded by MetricsMiddleware.
const (
	MetricRequestLatency = "judge_request_duration_seconds"
	MetricRequests       = "judge_requests_total"
	MetricTokens         = "judge_tokens_total"
)

type metricsBackend struct {
	next      Backend
	provider  string
	collector ports.MetricsCollector
}

// MetricsMiddleware records latency, request counts by status and token
// usage for every call.
func MetricsMiddleware(collector ports.MetricsCollector, provider string) Middleware {
	return func(next Backend) Backend {
		return &metricsBackend{next: next, provider: provider, collector: collector}
	}
}

func (m *metricsBackend) Generate(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	resp, err := m.next.Generate(ctx, req)

	labels := map[string]string{
		"provider": m.provider,
		"model":    m.next.Model(),
		"status":   requestStatus(err),
	}
	m.collector.RecordHistogram(MetricRequestLatency, time.Since(start).Seconds(), labels)
	m.collector.RecordCounter(MetricRequests, 1, labels)
	if err == nil {
		m.collector.RecordCounter(MetricTokens, float64(resp.TokensIn), tokenLabels(labels, "input"))
		m.collector.RecordCounter(MetricTokens, float64(resp.TokensOut), tokenLabels(labels, "output"))
	}
	return resp, err
}

func (m *metricsBackend) Model() string { return m.next.Model() }

func tokenLabels(base map[string]string, kind string) map[string]string {
	out := make(map[string]string, len(base)+1)
	for k, v := range base {
		out[k] = v
	}
	out["token_type"] = kind
	return out
}

func requestStatus(err error) string {
	var provErr *ProviderError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, ports.ErrBudgetExceeded):
		return "budget_exceeded"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &provErr) && provErr.Type != ErrorTypeUnknown:
		return provErr.Type.String()
	default:
		return "error"
	}
}
