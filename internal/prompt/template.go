// Package prompt selects and renders judge prompt templates.
package prompt

import (
	"fmt"

	"github.com/modelscope/eval-scope/internal/domain"
)

// Template is one entry of the prompt template set.
type Template struct {
	Name         string              `json:"name,omitempty" yaml:"name,omitempty"`
	Type         domain.TaskType     `json:"type,omitempty" yaml:"type,omitempty" validate:"omitempty,oneof=pairwise single"`
	Category     domain.Categories   `json:"category" yaml:"category"`
	SystemPrompt string              `json:"system_prompt" yaml:"system_prompt"`
	Template     string              `json:"prompt_template" yaml:"prompt_template" validate:"required"`
	Defaults     map[string]any      `json:"defaults,omitempty" yaml:"defaults,omitempty"`
	OutputFormat domain.OutputFormat `json:"output_format,omitempty" yaml:"output_format,omitempty"`
	Description  string              `json:"description,omitempty" yaml:"description,omitempty"`
}

// TaskType returns the declared type, "pairwise" when unset.
func (t Template) TaskType() domain.TaskType {
	if t.Type == "" {
		return domain.TaskPairwise
	}
	return t.Type
}

// Format returns the declared output format. Single-answer templates
// default to a single rating, all others to a score pair.
func (t Template) Format() domain.OutputFormat {
	switch {
	case t.OutputFormat != "":
		return t.OutputFormat
	case t.TaskType() == domain.TaskSingle:
		return domain.FormatRating
	default:
		return domain.DefaultOutputFormat
	}
}

// label identifies the template in logs and errors.
func (t Template) label(idx int) string {
	if t.Name != "" {
		return t.Name
	}
	return fmt.Sprintf("#%d", idx)
}
