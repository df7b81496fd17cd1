// Package testutils holds test doubles and fixtures shared across packages.
package testutils

import (
	"context"
	"strings"
	"sync"

	"github.com/modelscope/eval-scope/internal/ports"
)

// MockResponse is a canned completion returned when Pattern occurs in the
// user prompt.
type MockResponse struct {
	Pattern  string
	Response string
}

// MockPredictor implements ports.JudgePredictor with deterministic
// responses and records every request it receives.
type MockPredictor struct {
	mu sync.Mutex

	model     string
	responses []MockResponse
	fallback  string

	// Respond, when set, overrides pattern matching.
	Respond func(req ports.PredictRequest) (string, error)

	// FailAfter makes every call after the first FailAfter calls return
	// Err. Zero disables.
	FailAfter int
	Err       error

	requests []ports.PredictRequest
}

// NewMockPredictor returns a predictor answering fallback to every prompt
// that matches no added pattern.
func NewMockPredictor(model, fallback string) *MockPredictor {
	return &MockPredictor{model: model, fallback: fallback}
}

// AddResponse registers a pattern. Patterns are tried in insertion order.
func (m *MockPredictor) AddResponse(r MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, r)
}

// Predict implements ports.JudgePredictor.
func (m *MockPredictor) Predict(ctx context.Context, req ports.PredictRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	m.requests = append(m.requests, req)
	n := len(m.requests)
	respond := m.Respond
	failAfter, failErr := m.FailAfter, m.Err
	responses := m.responses
	m.mu.Unlock()

	if failErr != nil && n > failAfter {
		return "", failErr
	}
	if respond != nil {
		return respond(req)
	}
	for _, r := range responses {
		if strings.Contains(req.UserPrompt, r.Pattern) {
			return r.Response, nil
		}
	}
	return m.fallback, nil
}

// Model implements ports.JudgePredictor.
func (m *MockPredictor) Model() string { return m.model }

// Calls returns the number of Predict invocations.
func (m *MockPredictor) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of every request received.
func (m *MockPredictor) Requests() []ports.PredictRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ports.PredictRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// Reset forgets recorded requests.
func (m *MockPredictor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}

var _ ports.JudgePredictor = (*MockPredictor)(nil)
