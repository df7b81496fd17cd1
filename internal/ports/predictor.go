// Package ports defines the core interfaces that form the contract between
// the arena core and the infrastructure layer.
// These interfaces enable dependency inversion and make the system testable.
package ports

import (
	"context"

	"github.com/modelscope/eval-scope/internal/domain"
)

// GenerationSettings are the judge model knobs forwarded with every request.
// Zero values mean "provider default" except MaxTokens, which backends
// replace with their own default when zero.
type GenerationSettings struct {
	// MaxTokens limits the length of the judge completion.
	MaxTokens int

	// Temperature controls sampling randomness. Nil uses the provider default.
	Temperature *float64

	// TopP is nucleus sampling mass. Nil uses the provider default.
	TopP *float64

	// Seed requests reproducible sampling where the provider supports it.
	Seed *int64

	// Extra holds provider-specific options.
	Extra map[string]any
}

// PredictRequest is one judge invocation.
type PredictRequest struct {
	// SystemPrompt frames the judge's role. May be empty.
	SystemPrompt string

	// UserPrompt carries the rendered question and answers.
	UserPrompt string

	// OutputFormat is the verdict grammar the prompt asks for. Remote
	// backends ignore it; the offline backend uses it to shape its output.
	OutputFormat domain.OutputFormat

	// Settings are the generation parameters.
	Settings GenerationSettings
}

// JudgePredictor turns a judge prompt into free text.
// Implementations own transport, retries and timeouts; the arena treats any
// returned error as fatal to the run.
type JudgePredictor interface {
	// Predict returns the judge completion for req.
	Predict(ctx context.Context, req PredictRequest) (string, error)

	// Model returns the judge model identifier, for logging.
	Model() string
}
