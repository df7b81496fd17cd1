package ports

import (
	"context"

	"github.com/modelscope/eval-scope/internal/domain"
)

// CompletionParser reads a judge completion into a verdict.
//
// Parse must be total: malformed completions are logged through the logger
// carried by ctx and degrade to domain.WinnerUnknown or domain.InvalidScore.
// It never returns an error and never panics on any input.
type CompletionParser interface {
	// Name returns the configuration name of the grammar.
	Name() string

	// Parse interprets completion under the declared output format.
	Parse(ctx context.Context, completion string, format domain.OutputFormat) domain.Verdict
}
