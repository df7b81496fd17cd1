package predictor

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/modelscope/eval-scope/internal/ports"
)

// Resilience configures the standard middleware stack. Zero values
// disable the corresponding layer.
type Resilience struct {
	RequestsPerSecond float64
	Burst             int

	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	// AttemptTimeout bounds one provider attempt.
	AttemptTimeout time.Duration

	BreakerFailures int
	BreakerCooldown time.Duration

	Budget Budget
}

// Middleware assembles the stack, outermost first:
// tracing, metrics, budget, retry, rate limit, circuit breaker, timeout.
// Retries are paced by the rate limiter and each counts against the
// breaker, but a retried judgment costs one call of budget.
func (r Resilience) Middleware(provider string, metrics ports.MetricsCollector) []Middleware {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	chain := []Middleware{
		TracingMiddleware("eval-scope/predictor"),
		MetricsMiddleware(metrics, provider),
	}
	if r.Budget.MaxCalls > 0 || r.Budget.MaxTokens > 0 {
		chain = append(chain, BudgetMiddleware(NewBudgetManager(r.Budget, metrics)))
	}
	if r.MaxRetries > 0 {
		base, maxDelay := r.BaseDelay, r.MaxDelay
		if base <= 0 {
			base = DefaultBaseDelay
		}
		if maxDelay <= 0 {
			maxDelay = DefaultMaxDelay
		}
		chain = append(chain, RetryMiddleware(r.MaxRetries, base, maxDelay))
	}
	if r.RequestsPerSecond > 0 {
		chain = append(chain, RateLimitMiddleware(rate.Limit(r.RequestsPerSecond), max(r.Burst, 1)))
	}
	if r.BreakerFailures > 0 {
		chain = append(chain, CircuitBreakerMiddleware(NewCircuitBreaker(r.BreakerFailures, r.BreakerCooldown)))
	}
	if r.AttemptTimeout > 0 {
		chain = append(chain, TimeoutMiddleware(r.AttemptTimeout))
	}
	return chain
}
