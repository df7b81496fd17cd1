package application

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelscope/eval-scope/infrastructure/dataset"
	"github.com/modelscope/eval-scope/internal/arena"
	"github.com/modelscope/eval-scope/internal/domain"
	"github.com/modelscope/eval-scope/internal/testutils"
)

const choicePrompts = `
- name: choice
  category: general
  system_prompt: You are a fair judge.
  prompt_template: "Q: {question}\nA: {answer_a}\nB: {answer_b}"
  output_format: "[[A]]"
- name: single
  type: single
  category: general
  system_prompt: Grade the answer.
  prompt_template: "Q: {question}\nAnswer: {answer}"
`

// writeRun lays out answer files for models plus a prompt set in a temp
// dir and returns a validated pairwise_all configuration over them.
func writeRun(t *testing.T, questions int, models ...string) *RunConfig {
	t.Helper()
	dir := t.TempDir()

	var answers []string
	for _, m := range models {
		p := filepath.Join(dir, m+".jsonl")
		require.NoError(t, dataset.WriteJSONL(p, testutils.AnswerSet(m, questions)))
		answers = append(answers, p)
	}
	prompts := filepath.Join(dir, "prompts.yaml")
	require.NoError(t, os.WriteFile(prompts, []byte(choicePrompts), 0o600))

	randomize := false
	cfg := &RunConfig{
		Judge: JudgeConfig{Provider: "dummy"},
		Arena: ArenaConfig{Randomize: &randomize},
		Files: FilesConfig{
			Answers: answers,
			Prompts: prompts,
			Output:  filepath.Join(dir, "out", "review.jsonl"),
		},
	}

	l, err := NewConfigLoader()
	require.NoError(t, err)
	require.NoError(t, l.Validate(cfg))
	return cfg
}

func TestRun_JudgesAndResumes(t *testing.T) {
	ctx := context.Background()
	cfg := writeRun(t, 3, "alpha", "beta")

	judge := testutils.NewMockPredictor("judge", "Verdict: [[A]]")
	res, err := Run(ctx, cfg, Options{Judge: judge})
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha", "beta"}, res.Summary.Competitors)
	assert.Equal(t, 3, res.Summary.Judged)
	assert.Equal(t, 0, res.Summary.Skipped)
	assert.Equal(t, 3, judge.Calls())
	assert.Equal(t, cfg.Files.Output, res.Output)
	require.Len(t, res.Tally, 1)
	assert.Equal(t, arena.PairTally{ModelA: "alpha", ModelB: "beta", WinsA: 3}, res.Tally[0])

	recs, err := dataset.ReadJSONL[domain.VerdictRecord](cfg.Files.Output)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	for _, r := range recs {
		assert.Equal(t, domain.WinnerModelA, r.Win)
		assert.Equal(t, "Verdict: [[A]]", r.ReviewText)
	}

	again := testutils.NewMockPredictor("judge", "[[B]]")
	res, err = Run(ctx, cfg, Options{Judge: again})
	require.NoError(t, err)
	assert.Equal(t, 0, again.Calls())
	assert.Equal(t, 3, res.Summary.Skipped)
	assert.Equal(t, 3, res.Tally[0].WinsA)
}

func TestRun_JudgeErrorKeepsProgress(t *testing.T) {
	ctx := context.Background()
	cfg := writeRun(t, 4, "alpha", "beta")

	judge := testutils.NewMockPredictor("judge", "[[C]]")
	judge.FailAfter = 2
	judge.Err = errors.New("connection reset")

	_, err := Run(ctx, cfg, Options{Judge: judge})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	recs, err := dataset.ReadJSONL[domain.VerdictRecord](cfg.Files.Output)
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	judge = testutils.NewMockPredictor("judge", "[[C]]")
	res, err := Run(ctx, cfg, Options{Judge: judge})
	require.NoError(t, err)
	assert.Equal(t, 2, judge.Calls())
	assert.Equal(t, 2, res.Summary.Skipped)
	assert.Equal(t, 4, res.Tally[0].Ties)
}

func TestRun_DummyProvider(t *testing.T) {
	ctx := context.Background()
	cfg := writeRun(t, 3, "alpha", "beta", "gamma")
	cfg.Arena.PersistMode = "append"

	res, err := Run(ctx, cfg, Options{})
	require.NoError(t, err)
	assert.Equal(t, 9, res.Summary.Judged)
	assert.Len(t, res.Tally, 3)

	first, err := os.ReadFile(cfg.Files.Output)
	require.NoError(t, err)

	// The same inputs give the same verdicts from a fresh output.
	require.NoError(t, os.Remove(cfg.Files.Output))
	_, err = Run(ctx, cfg, Options{})
	require.NoError(t, err)
	second, err := os.ReadFile(cfg.Files.Output)
	require.NoError(t, err)

	strip := func(data []byte) []domain.VerdictRecord {
		recs, err := dataset.DecodeJSONL[domain.VerdictRecord](bytes.NewReader(data), "review")
		require.NoError(t, err)
		for i := range recs {
			recs[i].Tstamp = 0
		}
		return recs
	}
	assert.Equal(t, strip(first), strip(second))
}

func TestRun_SingleMode(t *testing.T) {
	ctx := context.Background()
	cfg := writeRun(t, 2, "alpha", "beta")
	cfg.Arena.Mode = arena.ModeSingle

	judge := testutils.NewMockPredictor("judge", "Rating: [[6]]")
	res, err := Run(ctx, cfg, Options{Judge: judge})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Summary.Judged)
	assert.Empty(t, res.Tally)

	for _, req := range judge.Requests() {
		assert.Equal(t, "Grade the answer.", req.SystemPrompt)
		assert.Equal(t, domain.FormatRating, req.OutputFormat)
	}

	recs, err := dataset.ReadJSONL[domain.VerdictRecord](cfg.Files.Output)
	require.NoError(t, err)
	require.Len(t, recs, 4)
	for _, r := range recs {
		assert.Empty(t, r.ModelB)
		require.NotNil(t, r.Score)
		assert.Equal(t, 6.0, *r.Score)
	}
}

func TestRun_ConfigurationErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown baseline", func(t *testing.T) {
		cfg := writeRun(t, 2, "alpha", "beta")
		cfg.Arena.Mode = arena.ModePairwiseBaseline
		cfg.Arena.Baseline = "gpt-9"

		judge := testutils.NewMockPredictor("judge", "[[A]]")
		_, err := Run(ctx, cfg, Options{Judge: judge})
		assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
		assert.Zero(t, judge.Calls())
	})

	t.Run("missing answers file", func(t *testing.T) {
		cfg := writeRun(t, 2, "alpha", "beta")
		cfg.Files.Answers[1] = filepath.Join(t.TempDir(), "absent.jsonl")

		_, err := Run(ctx, cfg, Options{Judge: testutils.NewMockPredictor("judge", "[[A]]")})
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.NoFileExists(t, cfg.Files.Output)
	})

	t.Run("remote provider without a key", func(t *testing.T) {
		cfg := writeRun(t, 2, "alpha", "beta")
		cfg.Judge.Provider = "openai"

		_, err := Run(ctx, cfg, Options{})
		assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	})
}

func TestPlanRun(t *testing.T) {
	ctx := context.Background()

	cfg := writeRun(t, 5, "alpha", "beta", "gamma")
	plan, err := PlanRun(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, plan.Competitors)
	assert.Equal(t, []domain.BattlePair{{A: 0, B: 1}, {A: 0, B: 2}, {A: 1, B: 2}}, plan.Pairs)
	assert.Equal(t, 5, plan.Questions)
	assert.Equal(t, 15, plan.Judgments(arena.ModePairwiseAll))
	assert.Equal(t, 15, plan.Judgments(arena.ModeSingle))

	cfg.Arena.Mode = arena.ModePairwiseBaseline
	cfg.Arena.Baseline = "beta"
	plan, err = PlanRun(ctx, cfg)
	require.NoError(t, err)
	assert.Len(t, plan.Pairs, 2)
	assert.NoFileExists(t, cfg.Files.Output)
}
