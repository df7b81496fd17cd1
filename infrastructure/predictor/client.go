// Package predictor implements ports.JudgePredictor on top of remote LLM
// providers (OpenAI, Anthropic, Gemini) and an offline dummy backend.
//
// A Client wraps a provider Backend with a middleware chain for the
// operational concerns of long judging runs: rate limiting, retries,
// timeouts, circuit breaking, budgets, metrics and tracing.
//
//	judge, err := predictor.New(predictor.Config{
//	    Provider: "openai",
//	    APIKey:   os.Getenv("OPENAI_API_KEY"),
//	    Model:    "gpt-4o",
//	    Middleware: []predictor.Middleware{
//	        predictor.RateLimitMiddleware(2, 4),
//	        predictor.RetryMiddleware(3, time.Second, 30*time.Second),
//	    },
//	})
package predictor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/modelscope/eval-scope/internal/domain"
	"github.com/modelscope/eval-scope/internal/ports"
)

// Request is what a Backend receives for one judge call.
type Request struct {
	System   string
	Prompt   string
	Format   domain.OutputFormat
	Settings ports.GenerationSettings
}

// Response is a backend completion with token accounting.
type Response struct {
	Text      string
	TokensIn  int
	TokensOut int
}

// Backend is the minimal contract a provider implements. Middleware wraps
// Backends, so every cross-cutting concern sees the same shape.
type Backend interface {
	// Generate returns the completion for req.
	Generate(ctx context.Context, req Request) (Response, error)

	// Model returns the configured model name.
	Model() string
}

// Middleware wraps a Backend to add behaviour around Generate.
type Middleware func(Backend) Backend

// Config selects and configures a backend.
type Config struct {
	// Provider is a registered backend name: "openai", "anthropic",
	// "google" or "dummy".
	Provider string

	// APIKey authenticates against remote providers. Unused by "dummy".
	APIKey string

	// Model is the judge model. Each provider has its own default.
	Model string

	// BaseURL overrides the provider endpoint.
	BaseURL string

	// Timeout bounds the HTTP client of remote providers.
	Timeout time.Duration

	// Middleware is applied in order; the first entry is outermost.
	Middleware []Middleware
}

// BackendFactory builds a Backend from configuration.
type BackendFactory func(Config) (Backend, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]BackendFactory{}
)

// RegisterBackendFactory makes a provider available to New.
func RegisterBackendFactory(name string, factory BackendFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = factory
}

// Providers returns the registered provider names, sorted.
func Providers() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

var _ ports.JudgePredictor = (*Client)(nil)

// Client implements ports.JudgePredictor.
type Client struct {
	provider string
	backend  Backend
}

// New builds the backend for cfg.Provider and wraps it with cfg.Middleware.
func New(cfg Config) (*Client, error) {
	factoriesMu.RLock()
	factory, ok := factories[cfg.Provider]
	factoriesMu.RUnlock()
	if !ok {
		return nil, domain.NewConfigurationError("judge.provider",
			fmt.Errorf("unknown provider %q (known: %v)", cfg.Provider, Providers()))
	}

	backend, err := factory(cfg)
	if err != nil {
		return nil, domain.NewConfigurationError("judge", fmt.Errorf("creating %s backend: %w", cfg.Provider, err))
	}
	return NewWithBackend(cfg.Provider, backend, cfg.Middleware...), nil
}

// NewWithBackend wraps an existing backend. It is how tests and custom
// providers plug in without registering a factory.
func NewWithBackend(provider string, backend Backend, middleware ...Middleware) *Client {
	for i := len(middleware) - 1; i >= 0; i-- {
		backend = middleware[i](backend)
	}
	return &Client{provider: provider, backend: backend}
}

// Predict implements ports.JudgePredictor. Failures are reported as
// *ports.PredictorError so callers can test retryability without knowing
// the provider.
func (c *Client) Predict(ctx context.Context, req ports.PredictRequest) (string, error) {
	resp, err := c.backend.Generate(ctx, Request{
		System:   req.SystemPrompt,
		Prompt:   req.UserPrompt,
		Format:   req.OutputFormat,
		Settings: req.Settings,
	})
	if err != nil {
		perr := ports.NewPredictorError(c.backend.Model(), "predict", err)
		var provErr *ProviderError
		if errors.As(err, &provErr) {
			perr.RetryAfter = provErr.RetryAfter
		}
		return "", perr
	}
	return resp.Text, nil
}

// Model implements ports.JudgePredictor.
func (c *Client) Model() string { return c.backend.Model() }

// Provider returns the backend name the client was built with.
func (c *Client) Provider() string { return c.provider }
