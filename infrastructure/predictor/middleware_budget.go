package predictor

import (
	"context"
	"fmt"
	"sync"

	"github.com/chainguard-dev/clog"

	"github.com/modelscope/eval-scope/internal/ports"
)

// Budget caps the judge spend of one run. Zero fields are unlimited.
type Budget struct {
	MaxCalls  int64
	MaxTokens int64
}

// BudgetExceededError reports which limit stopped the run.
type BudgetExceededError struct {
	LimitType string
	Limit     int64
	Used      int64
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("judge budget exceeded: %s limit %d, used %d", e.LimitType, e.Limit, e.Used)
}

// Unwrap makes the error match ports.ErrBudgetExceeded.
func (e *BudgetExceededError) Unwrap() error { return ports.ErrBudgetExceeded }

// BudgetManager tracks spend across every backend it wraps.
type BudgetManager struct {
	mu      sync.Mutex
	budget  Budget
	calls   int64
	tokens  int64
	metrics ports.MetricsCollector
}

// Budget gauges reported after every call.
const (
	MetricBudgetCalls  = "judge_budget_calls_used"
	MetricBudgetTokens = "judge_budget_tokens_used"
)

// NewBudgetManager returns a manager for budget. metrics may be nil.
func NewBudgetManager(budget Budget, metrics ports.MetricsCollector) *BudgetManager {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &BudgetManager{budget: budget, metrics: metrics}
}

// Usage returns the calls and tokens spent so far.
func (bm *BudgetManager) Usage() (calls, tokens int64) {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	return bm.calls, bm.tokens
}

// reserve admits one call if both limits still have room.
func (bm *BudgetManager) reserve() error {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	if bm.budget.MaxCalls > 0 && bm.calls >= bm.budget.MaxCalls {
		return &BudgetExceededError{LimitType: "calls", Limit: bm.budget.MaxCalls, Used: bm.calls}
	}
	if bm.budget.MaxTokens > 0 && bm.tokens >= bm.budget.MaxTokens {
		return &BudgetExceededError{LimitType: "tokens", Limit: bm.budget.MaxTokens, Used: bm.tokens}
	}
	bm.calls++
	return nil
}

func (bm *BudgetManager) record(tokens int) (calls, total int64) {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	bm.tokens += int64(tokens)
	return bm.calls, bm.tokens
}

type budgetBackend struct {
	next Backend
	bm   *BudgetManager
}

// BudgetMiddleware refuses calls once the budget is spent. A call that
// pushes token usage over the limit still returns its result; the next
// call is refused.
func BudgetMiddleware(bm *BudgetManager) Middleware {
	return func(next Backend) Backend {
		return &budgetBackend{next: next, bm: bm}
	}
}

func (b *budgetBackend) Generate(ctx context.Context, req Request) (Response, error) {
	if err := b.bm.reserve(); err != nil {
		clog.FromContext(ctx).With("error", err.Error()).Error("Judge budget exhausted")
		return Response{}, err
	}
	resp, err := b.next.Generate(ctx, req)
	calls, tokens := b.bm.record(resp.TokensIn + resp.TokensOut)

	labels := map[string]string{"model": b.next.Model()}
	b.bm.metrics.RecordGauge(MetricBudgetCalls, float64(calls), labels)
	b.bm.metrics.RecordGauge(MetricBudgetTokens, float64(tokens), labels)
	return resp, err
}

func (b *budgetBackend) Model() string { return b.next.Model() }
