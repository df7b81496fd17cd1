package prompt

import (
	"fmt"
	"slices"

	"github.com/go-playground/validator/v10"

	"github.com/modelscope/eval-scope/internal/domain"
)

// Placeholder names bound by the builder. Template defaults may add more.
const (
	VarQuestion  = "question"
	VarAnswerA   = "answer_a"
	VarAnswerB   = "answer_b"
	VarAnswer    = "answer"
	VarReference = "ref_answer_1"
)

var boundVars = []string{VarQuestion, VarAnswerA, VarAnswerB, VarAnswer, VarReference}

var knownFormats = []domain.OutputFormat{
	domain.FormatRating,
	domain.FormatRatingPair,
	domain.FormatChoice,
}

// Input is what the arena knows about one judgment.
type Input struct {
	Task     domain.TaskType
	Category domain.Categories
	Question string
	AnswerA  string
	AnswerB  string

	// Reference is nil when no reference file is configured.
	Reference *string
}

// Prompt is a rendered judge request.
type Prompt struct {
	Template string
	System   string
	User     string
	Format   domain.OutputFormat
}

// Builder holds a validated template set.
type Builder struct {
	templates []Template
}

// NewBuilder validates templates and returns a builder over them.
// The first template is the fallback for every unmatched selection.
func NewBuilder(templates []Template) (*Builder, error) {
	if len(templates) == 0 {
		return nil, domain.NewConfigurationError("prompts", domain.ErrNoTemplates)
	}

	validate := validator.New()
	var errs []string
	for i, t := range templates {
		if err := validate.Struct(t); err != nil {
			errs = append(errs, fmt.Sprintf("template %s: %v", t.label(i), err))
			continue
		}
		if t.OutputFormat != "" && !slices.Contains(knownFormats, t.OutputFormat) {
			errs = append(errs, fmt.Sprintf("template %s: unsupported output_format %q", t.label(i), t.OutputFormat))
		}
		for _, name := range Placeholders(t.Template) {
			if _, ok := t.Defaults[name]; ok || slices.Contains(boundVars, name) {
				continue
			}
			errs = append(errs, fmt.Sprintf("template %s: placeholder {%s} has no value", t.label(i), name))
		}
	}
	if len(errs) > 0 {
		return nil, &domain.ValidationError{Entity: "prompt templates", Errors: errs}
	}

	return &Builder{templates: slices.Clone(templates)}, nil
}

// Templates returns the template set in order.
func (b *Builder) Templates() []Template { return slices.Clone(b.templates) }

// Select returns the first template whose category matches and whose type
// equals task, else the first template. It never fails.
func (b *Builder) Select(task domain.TaskType, category domain.Categories) Template {
	for _, t := range b.templates {
		if t.TaskType() == task && t.Category.Matches(category) {
			return t
		}
	}
	return b.templates[0]
}

// Build selects a template for in and renders it. Defaults have the lowest
// precedence; a missing reference renders as an empty string. The system
// prompt is used verbatim.
func (b *Builder) Build(in Input) (Prompt, error) {
	task := in.Task
	if task == "" {
		task = domain.TaskPairwise
	}
	t := b.Select(task, in.Category)

	vars := make(map[string]string, len(t.Defaults)+len(boundVars))
	for k, v := range t.Defaults {
		vars[k] = fmt.Sprint(v)
	}
	vars[VarQuestion] = in.Question
	vars[VarAnswerA] = in.AnswerA
	vars[VarAnswerB] = in.AnswerB
	vars[VarAnswer] = in.AnswerA
	vars[VarReference] = ""
	if in.Reference != nil {
		vars[VarReference] = *in.Reference
	}

	user, err := Format(t.Template, vars)
	if err != nil {
		return Prompt{}, fmt.Errorf("rendering template %q: %w", t.Name, err)
	}

	return Prompt{
		Template: t.Name,
		System:   t.SystemPrompt,
		User:     user,
		Format:   t.Format(),
	}, nil
}
