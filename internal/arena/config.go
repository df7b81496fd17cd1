package arena

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/modelscope/eval-scope/internal/domain"
	"github.com/modelscope/eval-scope/internal/ports"
)

// Mode selects how competitors are compared.
type Mode string

// Supported arena modes.
const (
	ModePairwiseAll      Mode = "pairwise_all"
	ModePairwiseBaseline Mode = "pairwise_baseline"
	ModeSingle           Mode = "single"
)

// Default settings applied by DefaultConfig.
const (
	DefaultMaxTokens   = 1024
	DefaultTemperature = 0.2
	DefaultSeed        = 123
)

// Config controls one arena run.
type Config struct {
	// Mode is the comparison mode.
	Mode Mode `validate:"required,oneof=pairwise_all pairwise_baseline single"`

	// Baseline is the model id every other competitor is compared with in
	// pairwise_baseline mode.
	Baseline string `validate:"required_if=Mode pairwise_baseline"`

	// Randomize enables per-question presentation swaps.
	Randomize bool

	// Seed feeds the presentation randomizer and, when set in Settings,
	// the judge.
	Seed int64

	// Settings are forwarded to the judge on every call.
	Settings ports.GenerationSettings
}

// DefaultConfig returns the settings used when none are given: all pairs,
// randomized presentation with seed 123, and 1024 tokens at temperature 0.2.
func DefaultConfig() Config {
	temp := DefaultTemperature
	return Config{
		Mode:      ModePairwiseAll,
		Randomize: true,
		Seed:      DefaultSeed,
		Settings: ports.GenerationSettings{
			MaxTokens:   DefaultMaxTokens,
			Temperature: &temp,
		},
	}
}

// Validate checks the configuration. Errors unwrap to
// domain.ErrInvalidConfiguration.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Field() == "Mode" && fe.Tag() == "oneof" {
					return domain.NewConfigurationError("mode",
						fmt.Errorf("%w: %q", domain.ErrUnsupportedMode, c.Mode))
				}
			}
		}
		return domain.NewConfigurationError("arena", err)
	}
	if c.Settings.MaxTokens < 0 {
		return domain.NewConfigurationError("max_tokens", fmt.Errorf("must be >= 0, got %d", c.Settings.MaxTokens))
	}
	if t := c.Settings.Temperature; t != nil && (*t < 0 || *t > 2) {
		return domain.NewConfigurationError("temperature", fmt.Errorf("must be within [0, 2], got %v", *t))
	}
	if p := c.Settings.TopP; p != nil && (*p <= 0 || *p > 1) {
		return domain.NewConfigurationError("top_p", fmt.Errorf("must be within (0, 1], got %v", *p))
	}
	return nil
}

// TaskType is the template type requested by the mode.
func (c Config) TaskType() domain.TaskType {
	if c.Mode == ModeSingle {
		return domain.TaskSingle
	}
	return domain.TaskPairwise
}
