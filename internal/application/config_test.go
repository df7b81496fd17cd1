package application

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelscope/eval-scope/infrastructure/resultlog"
	"github.com/modelscope/eval-scope/internal/arena"
	"github.com/modelscope/eval-scope/internal/domain"
	"github.com/modelscope/eval-scope/internal/parser"
)

const minimalConfig = `
judge:
  provider: dummy
files:
  answers: [a.jsonl, b.jsonl]
  prompts: prompts.yaml
  output: review.jsonl
`

func loadString(t *testing.T, yamlText string) (*RunConfig, error) {
	t.Helper()
	l, err := NewConfigLoader()
	require.NoError(t, err)
	return l.LoadFromReader(strings.NewReader(yamlText))
}

func TestConfigLoader_LoadFromReader(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
		verify  func(t *testing.T, cfg *RunConfig)
	}{
		{
			name: "minimal config uses defaults",
			yaml: minimalConfig,
			verify: func(t *testing.T, cfg *RunConfig) {
				s := cfg.ArenaSettings()
				assert.Equal(t, arena.ModePairwiseAll, s.Mode)
				assert.True(t, s.Randomize)
				assert.Equal(t, int64(arena.DefaultSeed), s.Seed)
				assert.Equal(t, arena.DefaultMaxTokens, s.Settings.MaxTokens)
				require.NotNil(t, s.Settings.Temperature)
				assert.InDelta(t, arena.DefaultTemperature, *s.Settings.Temperature, 1e-9)
				assert.Equal(t, parser.NameLMSYSPairwise, cfg.ParserName())
			},
		},
		{
			name: "full config",
			yaml: `
version: "1.2.0"
judge:
  provider: openai
  model: gpt-4o-mini
  base_url: https://proxy.example.com/v1
  timeout_seconds: 30
  max_tokens: 512
  temperature: 0
  top_p: 0.9
  seed: 7
  extra:
    presence_penalty: 0.5
  rate_limit:
    requests_per_second: 2.5
    burst: 3
  retry:
    max_attempts: 4
    initial_wait_ms: 200
    max_wait_ms: 5000
  circuit_breaker:
    max_failures: 5
  budget:
    max_calls: 100
    max_tokens: 50000
  attempt_timeout_seconds: 60
arena:
  mode: pairwise_baseline
  baseline: gpt-4
  randomize: false
  seed: 42
  parser: lmsys_pairwise
  parser_kwargs:
    output_format: "[[A]]"
  persist_mode: append
files:
  answers: [a.jsonl]
  baseline_answers: base.jsonl
  references: refs.jsonl
  prompts: prompts.jsonl
  cache: old.jsonl
  output: review.jsonl.gz
`,
			verify: func(t *testing.T, cfg *RunConfig) {
				s := cfg.ArenaSettings()
				assert.Equal(t, arena.ModePairwiseBaseline, s.Mode)
				assert.Equal(t, "gpt-4", s.Baseline)
				assert.False(t, s.Randomize)
				assert.Equal(t, int64(42), s.Seed)
				assert.Equal(t, 512, s.Settings.MaxTokens)
				assert.InDelta(t, 0.0, *s.Settings.Temperature, 1e-9)
				assert.InDelta(t, 0.9, *s.Settings.TopP, 1e-9)
				assert.Equal(t, int64(7), *s.Settings.Seed)
				assert.Equal(t, 0.5, s.Settings.Extra["presence_penalty"])

				assert.Equal(t, []string{"a.jsonl", "base.jsonl"}, cfg.Files.AnswerPaths())

				r := cfg.Resilience()
				assert.Equal(t, 2.5, r.RequestsPerSecond)
				assert.Equal(t, 3, r.Burst)
				assert.Equal(t, 3, r.MaxRetries)
				assert.Equal(t, 200*time.Millisecond, r.BaseDelay)
				assert.Equal(t, 5*time.Second, r.MaxDelay)
				assert.Equal(t, time.Minute, r.AttemptTimeout)
				assert.Equal(t, 5, r.BreakerFailures)
				assert.Equal(t, DefaultBreakerCooldown, r.BreakerCooldown)
				assert.Equal(t, int64(100), r.Budget.MaxCalls)
				assert.Equal(t, int64(50000), r.Budget.MaxTokens)

				pc := cfg.PredictorConfig(Secrets{OpenAIAPIKey: "sk-test"})
				assert.Equal(t, "openai", pc.Provider)
				assert.Equal(t, "sk-test", pc.APIKey)
				assert.Equal(t, "gpt-4o-mini", pc.Model)
				assert.Equal(t, 30*time.Second, pc.Timeout)

				assert.Equal(t, resultlog.Options{CachePath: "old.jsonl", Mode: resultlog.ModeAppend}, cfg.ResultLogOptions())
			},
		},
		{
			name: "single mode defaults to the single rating parser",
			yaml: `
judge: {provider: dummy}
arena: {mode: single}
files: {answers: [a.jsonl], prompts: p.yaml, output: out.jsonl}
`,
			verify: func(t *testing.T, cfg *RunConfig) {
				assert.Equal(t, parser.NameLMSYSSingle, cfg.ParserName())
				assert.Equal(t, domain.TaskSingle, cfg.ArenaSettings().TaskType())
			},
		},
		{
			name:    "unknown field is rejected",
			yaml:    minimalConfig + "  extra_field: true\n",
			wantErr: "field extra_field not found",
		},
		{
			name:    "empty document",
			yaml:    "",
			wantErr: "config is empty",
		},
		{
			name: "unknown provider",
			yaml: `
judge: {provider: cohere}
files: {answers: [a.jsonl, b.jsonl], prompts: p.yaml, output: out.jsonl}
`,
			wantErr: "judgeprovider",
		},
		{
			name: "unknown parser",
			yaml: `
judge: {provider: dummy}
arena: {parser: regex}
files: {answers: [a.jsonl, b.jsonl], prompts: p.yaml, output: out.jsonl}
`,
			wantErr: "parsername",
		},
		{
			name: "bad parser kwargs",
			yaml: `
judge: {provider: dummy}
arena: {parser_kwargs: {strict: true}}
files: {answers: [a.jsonl, b.jsonl], prompts: p.yaml, output: out.jsonl}
`,
			wantErr: "parser_kwargs",
		},
		{
			name: "unsupported mode",
			yaml: `
judge: {provider: dummy}
arena: {mode: tournament}
files: {answers: [a.jsonl, b.jsonl], prompts: p.yaml, output: out.jsonl}
`,
			wantErr: "oneof",
		},
		{
			name: "baseline mode needs a baseline",
			yaml: `
judge: {provider: dummy}
arena: {mode: pairwise_baseline}
files: {answers: [a.jsonl, b.jsonl], prompts: p.yaml, output: out.jsonl}
`,
			wantErr: "required_if",
		},
		{
			name: "baseline file outside baseline mode",
			yaml: `
judge: {provider: dummy}
files: {answers: [a.jsonl, b.jsonl], baseline_answers: c.jsonl, prompts: p.yaml, output: out.jsonl}
`,
			wantErr: "baseline_answers requires",
		},
		{
			name: "pairwise needs two competitors",
			yaml: `
judge: {provider: dummy}
files: {answers: [a.jsonl], prompts: p.yaml, output: out.jsonl}
`,
			wantErr: "at least two answer files",
		},
		{
			name: "output overwrites an answer file",
			yaml: `
judge: {provider: dummy}
files: {answers: [a.jsonl, b.jsonl], prompts: p.yaml, output: b.jsonl}
`,
			wantErr: "is also an answer file",
		},
		{
			name: "duplicate answer file",
			yaml: `
judge: {provider: dummy}
files: {answers: [a.jsonl, a.jsonl], prompts: p.yaml, output: out.jsonl}
`,
			wantErr: "listed twice",
		},
		{
			name: "temperature out of range",
			yaml: `
judge: {provider: dummy, temperature: 3}
files: {answers: [a.jsonl, b.jsonl], prompts: p.yaml, output: out.jsonl}
`,
			wantErr: "Temperature",
		},
		{
			name: "bad version",
			yaml: `
version: v1
judge: {provider: dummy}
files: {answers: [a.jsonl, b.jsonl], prompts: p.yaml, output: out.jsonl}
`,
			wantErr: "semver",
		},
		{
			name: "missing files",
			yaml: `
judge: {provider: dummy}
`,
			wantErr: "Answers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := loadString(t, tt.yaml)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
				return
			}
			require.NoError(t, err)
			if tt.verify != nil {
				tt.verify(t, cfg)
			}
		})
	}
}

func TestLoadConfig_ResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
judge: {provider: dummy}
files:
  answers: [answers/a.jsonl, /abs/b.jsonl]
  prompts: prompts.yaml
  output: out/review.jsonl
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(dir, "answers/a.jsonl"), "/abs/b.jsonl"}, cfg.Files.Answers)
	assert.Equal(t, filepath.Join(dir, "prompts.yaml"), cfg.Files.Prompts)
	assert.Equal(t, filepath.Join(dir, "out/review.jsonl"), cfg.Files.Output)
	assert.Empty(t, cfg.Files.Cache)
	assert.Empty(t, cfg.Files.References)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfigLoader_ValidateOverrides(t *testing.T) {
	cfg, err := loadString(t, minimalConfig)
	require.NoError(t, err)

	l, err := NewConfigLoader()
	require.NoError(t, err)

	cfg.Arena.Mode = arena.ModeSingle
	require.NoError(t, l.Validate(cfg))

	cfg.Judge.Provider = "nope"
	assert.ErrorIs(t, l.Validate(cfg), domain.ErrInvalidConfiguration)
}

func TestLoadSecrets(t *testing.T) {
	s, err := loadSecrets(context.Background(), envconfig.MapLookuper(map[string]string{
		"OPENAI_API_KEY":    "sk-openai",
		"ANTHROPIC_API_KEY": "sk-ant",
	}))
	require.NoError(t, err)

	assert.Equal(t, "sk-openai", s.APIKey("openai"))
	assert.Equal(t, "sk-ant", s.APIKey("anthropic"))
	assert.Empty(t, s.APIKey("google"))
	assert.Empty(t, s.APIKey("dummy"))
}

func TestValidateSemver(t *testing.T) {
	l, err := NewConfigLoader()
	require.NoError(t, err)

	for _, v := range []string{"1.0.0", "0.12.3"} {
		assert.NoError(t, l.validator.Var(v, "semver"), v)
	}
	for _, v := range []string{"1.0", "1.0.0-rc1", "v1.0.0", "1.0.0.0", "x"} {
		assert.Error(t, l.validator.Var(v, "semver"), v)
	}
}
