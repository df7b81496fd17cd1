package predictor

import (
	"context"
	"time"
)

type timeoutBackend struct {
	next    Backend
	timeout time.Duration
}

// TimeoutMiddleware bounds each attempt. Placed inside RetryMiddleware it
// limits single attempts; outside, the whole retry sequence.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next Backend) Backend {
		return &timeoutBackend{next: next, timeout: timeout}
	}
}

func (t *timeoutBackend) Generate(ctx context.Context, req Request) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Generate(ctx, req)
}

func (t *timeoutBackend) Model() string { return t.next.Model() }
