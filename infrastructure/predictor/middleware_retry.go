package predictor

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/chainguard-dev/clog"
)

// Default retry settings.
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 1 * time.Second
	DefaultMaxDelay   = 30 * time.Second
)

type retryBackend struct {
	next       Backend
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	sleep      func(context.Context, time.Duration) error
}

// RetryMiddleware retries retryable ProviderErrors with exponential backoff
// and jitter, up to maxRetries extra attempts. A server-provided
// Retry-After takes precedence over the computed delay when it is longer.
// Circuit breaker rejections, budget errors and cancellations are not
// retried.
func RetryMiddleware(maxRetries int, baseDelay, maxDelay time.Duration) Middleware {
	return func(next Backend) Backend {
		return &retryBackend{
			next:       next,
			maxRetries: maxRetries,
			baseDelay:  baseDelay,
			maxDelay:   maxDelay,
			sleep:      sleepContext,
		}
	}
}

func (r *retryBackend) Generate(ctx context.Context, req Request) (Response, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		resp, err := r.next.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var provErr *ProviderError
		if !errors.As(err, &provErr) || !provErr.IsRetryable() || ctx.Err() != nil {
			return Response{}, err
		}
		if attempt == r.maxRetries {
			break
		}

		delay := r.delay(attempt)
		if provErr.RetryAfter != nil && *provErr.RetryAfter > delay {
			delay = *provErr.RetryAfter
		}
		clog.FromContext(ctx).With("model", r.next.Model()).With("attempt", attempt+1).
			With("delay", delay.String()).With("error", err.Error()).
			Warn("Retrying judge request")
		if err := r.sleep(ctx, delay); err != nil {
			return Response{}, err
		}
	}
	return Response{}, fmt.Errorf("request failed after %d attempts: %w", r.maxRetries+1, lastErr)
}

func (r *retryBackend) Model() string { return r.next.Model() }

// delay is base*2^attempt with ±25% jitter, capped at maxDelay.
func (r *retryBackend) delay(attempt int) time.Duration {
	attempt = min(max(attempt, 0), 30)
	d := r.baseDelay * time.Duration(1<<attempt)
	// #nosec G404 - jitter does not need a cryptographic source
	jitter := time.Duration(rand.Float64() * float64(d) * 0.5)
	d = d + jitter - d/4
	if r.maxDelay > 0 && d > r.maxDelay {
		d = r.maxDelay
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
