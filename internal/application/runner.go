// Package application wires configuration, datasets, the judge and the
// result log into arena runs.
package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"

	"github.com/modelscope/eval-scope/infrastructure/dataset"
	"github.com/modelscope/eval-scope/infrastructure/predictor"
	"github.com/modelscope/eval-scope/infrastructure/resultlog"
	"github.com/modelscope/eval-scope/internal/arena"
	"github.com/modelscope/eval-scope/internal/domain"
	"github.com/modelscope/eval-scope/internal/ports"
	"github.com/modelscope/eval-scope/internal/prompt"
)

// Options supply the collaborators that do not come from the file.
type Options struct {
	Secrets Secrets

	// Metrics defaults to ports.NopMetrics.
	Metrics ports.MetricsCollector

	// Judge replaces the configured provider when set.
	Judge ports.JudgePredictor

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Result describes a finished run.
type Result struct {
	Summary arena.Summary
	Tally   []arena.PairTally
	Output  string
}

// Plan is the work a configuration implies, computed without a judge.
type Plan struct {
	Competitors []string
	Pairs       []domain.BattlePair
	Questions   int
}

// Judgments is the number of verdicts a complete run holds.
func (p Plan) Judgments(mode arena.Mode) int {
	if mode == arena.ModeSingle {
		return len(p.Competitors) * p.Questions
	}
	return len(p.Pairs) * p.Questions
}

// LoadInputs reads the answer sets and, when configured, the references.
func LoadInputs(ctx context.Context, cfg *RunConfig) (arena.Inputs, error) {
	sets, err := dataset.LoadAnswerSets(ctx, cfg.Files.AnswerPaths())
	if err != nil {
		return arena.Inputs{}, fmt.Errorf("loading answers: %w", err)
	}
	in := arena.Inputs{Answers: sets}
	if cfg.Files.References != "" {
		refs, err := dataset.LoadReferences(ctx, cfg.Files.References)
		if err != nil {
			return arena.Inputs{}, fmt.Errorf("loading references: %w", err)
		}
		in.References = refs
	}
	return in, nil
}

// LoadPrompts reads and validates the template set.
func LoadPrompts(cfg *RunConfig) (*prompt.Builder, error) {
	ts, err := dataset.LoadTemplates(cfg.Files.Prompts)
	if err != nil {
		return nil, fmt.Errorf("loading prompts: %w", err)
	}
	return prompt.NewBuilder(ts)
}

// NewJudge builds the configured predictor wrapped in its resilience
// middleware.
func NewJudge(cfg *RunConfig, opts Options) (*predictor.Client, error) {
	pc := cfg.PredictorConfig(opts.Secrets)
	pc.Middleware = cfg.Resilience().Middleware(pc.Provider, opts.Metrics)
	return predictor.New(pc)
}

// PlanRun merges the answers and lists the battle pairs.
func PlanRun(ctx context.Context, cfg *RunConfig) (Plan, error) {
	in, err := LoadInputs(ctx, cfg)
	if err != nil {
		return Plan{}, err
	}
	rows, ids, err := arena.MergeAnswers(ctx, in.Answers)
	if err != nil {
		return Plan{}, err
	}

	settings := cfg.ArenaSettings()
	var pairs []domain.BattlePair
	switch settings.Mode {
	case arena.ModePairwiseAll:
		pairs, err = arena.GeneratePairs(ids, "")
	case arena.ModePairwiseBaseline:
		pairs, err = arena.GeneratePairs(ids, settings.Baseline)
	}
	if err != nil {
		return Plan{}, err
	}
	return Plan{Competitors: ids, Pairs: pairs, Questions: len(rows)}, nil
}

// Run executes one arena run. Verdicts judged before an error stay in the
// output file, so a re-run with the same configuration resumes.
func Run(ctx context.Context, cfg *RunConfig, opts Options) (res Result, err error) {
	log := clog.FromContext(ctx)
	settings := cfg.ArenaSettings()

	in, err := LoadInputs(ctx, cfg)
	if err != nil {
		return Result{}, err
	}
	prompts, err := LoadPrompts(cfg)
	if err != nil {
		return Result{}, err
	}
	parse, err := cfg.NewParser()
	if err != nil {
		return Result{}, err
	}

	judge := opts.Judge
	if judge == nil {
		client, err := NewJudge(cfg, opts)
		if err != nil {
			return Result{}, err
		}
		log.With("provider", client.Provider()).With("model", client.Model()).Info("Judge ready")
		judge = client
	}

	rl, err := resultlog.Open(ctx, cfg.Files.Output, cfg.ResultLogOptions())
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if cerr := rl.Close(ctx); cerr != nil {
			err = errors.Join(err, fmt.Errorf("closing result log: %w", cerr))
		}
	}()

	a, err := arena.New(settings, arena.Dependencies{
		Judge:   judge,
		Parser:  parse,
		Prompts: prompts,
		Log:     rl,
		Metrics: opts.Metrics,
		Clock:   opts.Clock,
	})
	if err != nil {
		return Result{}, err
	}

	sum, runErr := a.Run(ctx, in)
	res = Result{
		Summary: sum,
		Tally:   arena.Tally(rl.Records()),
		Output:  rl.Path(),
	}
	return res, runErr
}
