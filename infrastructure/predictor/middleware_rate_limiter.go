package predictor

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

type rateLimitedBackend struct {
	next    Backend
	limiter *rate.Limiter
}

// RateLimitMiddleware paces requests with a token bucket: limit requests
// per second with bursts of up to burst. Every backend wrapped by the
// returned middleware shares the same bucket.
func RateLimitMiddleware(limit rate.Limit, burst int) Middleware {
	limiter := rate.NewLimiter(limit, burst)
	return func(next Backend) Backend {
		return &rateLimitedBackend{next: next, limiter: limiter}
	}
}

func (r *rateLimitedBackend) Generate(ctx context.Context, req Request) (Response, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return Response{}, fmt.Errorf("rate limit: %w", err)
	}
	return r.next.Generate(ctx, req)
}

func (r *rateLimitedBackend) Model() string { return r.next.Model() }
