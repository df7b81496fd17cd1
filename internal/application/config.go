package application

import (
	"time"

	"github.com/modelscope/eval-scope/infrastructure/predictor"
	"github.com/modelscope/eval-scope/infrastructure/resultlog"
	"github.com/modelscope/eval-scope/internal/arena"
	"github.com/modelscope/eval-scope/internal/parser"
	"github.com/modelscope/eval-scope/internal/ports"
)

// DefaultBreakerCooldown applies when a circuit breaker is configured
// without a cooldown.
const DefaultBreakerCooldown = 30 * time.Second

// RunConfig is the complete description of one arena run and the entry
// point of the YAML configuration file.
type RunConfig struct {
	// Version is the configuration schema version. Optional; when present
	// it must be semantic (X.Y.Z).
	Version string `yaml:"version,omitempty" validate:"omitempty,semver"`
	// Judge selects and tunes the judge model.
	Judge JudgeConfig `yaml:"judge"`
	// Arena controls pairing, presentation and verdict parsing.
	Arena ArenaConfig `yaml:"arena"`
	// Files names every input and output of the run.
	Files FilesConfig `yaml:"files"`
}

// JudgeConfig describes the judge model and the resilience layers wrapped
// around it.
type JudgeConfig struct {
	// Provider is a registered predictor backend.
	Provider string `yaml:"provider" validate:"required,judgeprovider"`
	// Model overrides the provider's default model.
	Model string `yaml:"model,omitempty" validate:"omitempty,max=200"`
	// BaseURL points the provider SDK at a compatible endpoint.
	BaseURL string `yaml:"base_url,omitempty" validate:"omitempty,url"`
	// TimeoutSeconds bounds the provider's HTTP client.
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty" validate:"omitempty,min=1,max=600"`

	// MaxTokens limits the judge completion. Defaults to 1024.
	MaxTokens int `yaml:"max_tokens,omitempty" validate:"omitempty,min=1,max=200000"`
	// Temperature defaults to 0.2.
	Temperature *float64 `yaml:"temperature,omitempty" validate:"omitempty,min=0,max=2"`
	TopP        *float64 `yaml:"top_p,omitempty" validate:"omitempty,gt=0,max=1"`
	// Seed is forwarded to providers that support reproducible sampling.
	Seed *int64 `yaml:"seed,omitempty"`
	// Extra carries provider-specific options such as presence_penalty.
	Extra map[string]any `yaml:"extra,omitempty"`

	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	Retry          RetryConfig          `yaml:"retry"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	Budget         BudgetConfig         `yaml:"budget"`
	// AttemptTimeoutSeconds bounds a single judge attempt, retries
	// excluded.
	AttemptTimeoutSeconds int `yaml:"attempt_timeout_seconds,omitempty" validate:"omitempty,min=1,max=3600"`
}

// RateLimitConfig paces judge requests. Zero disables the limiter.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"min=0,max=10000"`
	Burst             int     `yaml:"burst" validate:"min=0,max=10000"`
}

// RetryConfig specifies how transient judge failures are retried.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first.
	// Zero or one disables retries.
	MaxAttempts int `yaml:"max_attempts" validate:"min=0,max=10"`
	// InitialWait is the base backoff delay in milliseconds.
	InitialWait int `yaml:"initial_wait_ms" validate:"omitempty,min=0,max=60000"`
	// MaxWait caps the backoff delay in milliseconds.
	MaxWait int `yaml:"max_wait_ms" validate:"omitempty,min=0,max=300000"`
}

// CircuitBreakerConfig stops calling a failing judge for a cooldown.
type CircuitBreakerConfig struct {
	MaxFailures     int `yaml:"max_failures" validate:"min=0,max=1000"`
	CooldownSeconds int `yaml:"cooldown_seconds" validate:"omitempty,min=1,max=3600"`
}

// BudgetConfig caps what one run may spend on the judge.
type BudgetConfig struct {
	// MaxCalls limits the number of judgments requested.
	MaxCalls int64 `yaml:"max_calls" validate:"min=0"`
	// MaxTokens limits prompt plus completion tokens.
	MaxTokens int64 `yaml:"max_tokens" validate:"min=0"`
}

// ArenaConfig controls how competitors meet and how verdicts are read.
type ArenaConfig struct {
	Mode arena.Mode `yaml:"mode,omitempty" validate:"omitempty,oneof=pairwise_all pairwise_baseline single"`
	// Baseline is the model id compared against in pairwise_baseline mode.
	Baseline string `yaml:"baseline,omitempty" validate:"required_if=Mode pairwise_baseline"`
	// Randomize defaults to true.
	Randomize *bool `yaml:"randomize,omitempty"`
	// Seed feeds the presentation randomizer. Defaults to 123.
	Seed *int64 `yaml:"seed,omitempty"`
	// Parser names the completion parser. Defaults by mode.
	Parser       string         `yaml:"parser,omitempty" validate:"omitempty,parsername"`
	ParserKwargs map[string]any `yaml:"parser_kwargs,omitempty"`
	// PersistMode selects how the result log is written.
	PersistMode resultlog.Mode `yaml:"persist_mode,omitempty" validate:"omitempty,oneof=rewrite append"`
}

// FilesConfig lists the run's files. Any of them may be gzip-compressed
// JSON lines with a .gz suffix.
type FilesConfig struct {
	// Answers holds one answer file per competitor.
	Answers []string `yaml:"answers" validate:"required,min=1,dive,required"`
	// BaselineAnswers is appended as the last competitor when set.
	BaselineAnswers string `yaml:"baseline_answers,omitempty"`
	// References enables reference-guided prompts.
	References string `yaml:"references,omitempty"`
	// Prompts is the template set, JSON lines or YAML.
	Prompts string `yaml:"prompts" validate:"required"`
	// Cache seeds the result log. Defaults to Output.
	Cache string `yaml:"cache,omitempty"`
	// Output receives every verdict.
	Output string `yaml:"output" validate:"required"`
}

// AnswerPaths returns the competitor answer files in competitor order.
func (f FilesConfig) AnswerPaths() []string {
	paths := append([]string(nil), f.Answers...)
	if f.BaselineAnswers != "" {
		paths = append(paths, f.BaselineAnswers)
	}
	return paths
}

// ArenaSettings converts the file configuration into arena.Config,
// starting from arena.DefaultConfig.
func (c *RunConfig) ArenaSettings() arena.Config {
	cfg := arena.DefaultConfig()
	if c.Arena.Mode != "" {
		cfg.Mode = c.Arena.Mode
	}
	cfg.Baseline = c.Arena.Baseline
	if c.Arena.Randomize != nil {
		cfg.Randomize = *c.Arena.Randomize
	}
	if c.Arena.Seed != nil {
		cfg.Seed = *c.Arena.Seed
	}

	j := c.Judge
	if j.MaxTokens > 0 {
		cfg.Settings.MaxTokens = j.MaxTokens
	}
	if j.Temperature != nil {
		t := *j.Temperature
		cfg.Settings.Temperature = &t
	}
	if j.TopP != nil {
		p := *j.TopP
		cfg.Settings.TopP = &p
	}
	if j.Seed != nil {
		s := *j.Seed
		cfg.Settings.Seed = &s
	}
	if len(j.Extra) > 0 {
		cfg.Settings.Extra = make(map[string]any, len(j.Extra))
		for k, v := range j.Extra {
			cfg.Settings.Extra[k] = v
		}
	}
	return cfg
}

// ParserName is the configured parser, or the default for the mode.
func (c *RunConfig) ParserName() string {
	if c.Arena.Parser != "" {
		return c.Arena.Parser
	}
	if c.Arena.Mode == arena.ModeSingle {
		return parser.NameLMSYSSingle
	}
	return parser.DefaultName
}

// NewParser builds the configured completion parser.
func (c *RunConfig) NewParser() (ports.CompletionParser, error) {
	return parser.New(c.ParserName(), c.Arena.ParserKwargs)
}

// PredictorConfig selects the judge backend. The API key comes from
// secrets, never from the file.
func (c *RunConfig) PredictorConfig(secrets Secrets) predictor.Config {
	return predictor.Config{
		Provider: c.Judge.Provider,
		APIKey:   secrets.APIKey(c.Judge.Provider),
		Model:    c.Judge.Model,
		BaseURL:  c.Judge.BaseURL,
		Timeout:  time.Duration(c.Judge.TimeoutSeconds) * time.Second,
	}
}

// Resilience converts the judge's rate limit, retry, breaker, budget and
// timeout sections into the predictor middleware settings.
func (c *RunConfig) Resilience() predictor.Resilience {
	j := c.Judge
	r := predictor.Resilience{
		RequestsPerSecond: j.RateLimit.RequestsPerSecond,
		Burst:             j.RateLimit.Burst,
		BaseDelay:         time.Duration(j.Retry.InitialWait) * time.Millisecond,
		MaxDelay:          time.Duration(j.Retry.MaxWait) * time.Millisecond,
		AttemptTimeout:    time.Duration(j.AttemptTimeoutSeconds) * time.Second,
		BreakerFailures:   j.CircuitBreaker.MaxFailures,
		BreakerCooldown:   time.Duration(j.CircuitBreaker.CooldownSeconds) * time.Second,
		Budget: predictor.Budget{
			MaxCalls:  j.Budget.MaxCalls,
			MaxTokens: j.Budget.MaxTokens,
		},
	}
	if j.Retry.MaxAttempts > 1 {
		r.MaxRetries = j.Retry.MaxAttempts - 1
	}
	if r.BreakerFailures > 0 && r.BreakerCooldown == 0 {
		r.BreakerCooldown = DefaultBreakerCooldown
	}
	return r
}

// ResultLogOptions returns how the output file is opened.
func (c *RunConfig) ResultLogOptions() resultlog.Options {
	return resultlog.Options{
		CachePath: c.Files.Cache,
		Mode:      c.Arena.PersistMode,
	}
}
