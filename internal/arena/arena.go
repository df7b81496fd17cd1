// Package arena runs pairwise and single-answer judge evaluations with a
// resumable result log.
//
// A run merges the competitors' answer sets on question id, forms battle
// pairs, and for every (pair, question) either reuses a verdict already in
// the log or asks the judge, parses the completion and appends the verdict.
// Judge errors abort the run; everything judged so far stays in the log, so
// re-running with the same log only pays for the remainder.
package arena

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/modelscope/eval-scope/internal/domain"
	"github.com/modelscope/eval-scope/internal/ports"
	"github.com/modelscope/eval-scope/internal/prompt"
)

// Metric names reported through ports.MetricsCollector.
const (
	MetricJudgments     = "arena_judgments_total"
	MetricCacheHits     = "arena_cache_hits_total"
	MetricParseFailures = "arena_parse_failures_total"
	MetricJudgeLatency  = "arena_judgment"
)

// Dependencies are the collaborators of an Arena.
type Dependencies struct {
	Judge   ports.JudgePredictor
	Parser  ports.CompletionParser
	Prompts *prompt.Builder
	Log     ports.ResultLog

	// Metrics defaults to ports.NopMetrics.
	Metrics ports.MetricsCollector

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Inputs are the loaded answer data for one run.
type Inputs struct {
	// Answers holds one answer set per competitor, in competitor order.
	Answers [][]domain.AnswerRecord

	// References is nil when no reference file is configured. When non-nil
	// every judged question must have a reference with a non-empty answer.
	References []domain.AnswerRecord
}

// Summary describes a finished run.
type Summary struct {
	Competitors []string
	Pairs       []domain.BattlePair
	Questions   int
	Judged      int
	Skipped     int
	Unresolved  int
}

// Arena drives one evaluation run. It is not safe for concurrent use; it is
// the only writer of its result log.
type Arena struct {
	cfg     Config
	deps    Dependencies
	rnd     *Randomizer
	tracer  trace.Tracer
	metrics ports.MetricsCollector
	now     func() time.Time
}

// New validates cfg and deps and returns an Arena.
func New(cfg Config, deps Dependencies) (*Arena, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch {
	case deps.Judge == nil:
		return nil, domain.NewConfigurationError("judge", errors.New("judge predictor is required"))
	case deps.Parser == nil:
		return nil, domain.NewConfigurationError("parser", errors.New("completion parser is required"))
	case deps.Prompts == nil:
		return nil, domain.NewConfigurationError("prompts", domain.ErrNoTemplates)
	case deps.Log == nil:
		return nil, domain.NewConfigurationError("output", errors.New("result log is required"))
	}

	a := &Arena{
		cfg:     cfg,
		deps:    deps,
		rnd:     NewRandomizer(cfg.Seed, cfg.Randomize && cfg.Mode != ModeSingle),
		tracer:  otel.Tracer("arena"),
		metrics: deps.Metrics,
		now:     deps.Clock,
	}
	if a.metrics == nil {
		a.metrics = ports.NopMetrics{}
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a, nil
}

// Plan merges the answers and computes the battle pairs without judging.
// In single mode the pair list is empty.
func (a *Arena) Plan(ctx context.Context, in Inputs) ([]domain.MergedRow, []string, []domain.BattlePair, error) {
	rows, ids, err := MergeAnswers(ctx, in.Answers)
	if err != nil {
		return nil, nil, nil, err
	}

	var pairs []domain.BattlePair
	switch a.cfg.Mode {
	case ModePairwiseAll:
		pairs, err = GeneratePairs(ids, "")
	case ModePairwiseBaseline:
		pairs, err = GeneratePairs(ids, a.cfg.Baseline)
	case ModeSingle:
	default:
		err = domain.NewConfigurationError("mode", fmt.Errorf("%w: %q", domain.ErrUnsupportedMode, a.cfg.Mode))
	}
	if err != nil {
		return nil, nil, nil, err
	}
	return rows, ids, pairs, nil
}

// Run judges every pending (pair, question) combination in order: pairs
// outer, questions inner. Single mode iterates competitors instead of
// pairs. Context cancellation is checked between judgments.
func (a *Arena) Run(ctx context.Context, in Inputs) (Summary, error) {
	log := clog.FromContext(ctx).With("mode", string(a.cfg.Mode))
	ctx = clog.WithLogger(ctx, log)

	rows, ids, pairs, err := a.Plan(ctx, in)
	if err != nil {
		return Summary{}, err
	}
	refs := indexReferences(in.References)

	sum := Summary{Competitors: ids, Pairs: pairs, Questions: len(rows)}
	log.Infof("Running arena: %d competitors, %d pairs, %d questions", len(ids), len(pairs), len(rows))

	if a.cfg.Mode == ModeSingle {
		for i, id := range ids {
			for _, row := range rows {
				if err := ctx.Err(); err != nil {
					return sum, err
				}
				if err := a.gradeSingle(ctx, id, row.Answers[i], row.QuestionID, refs, &sum); err != nil {
					return sum, err
				}
			}
		}
	} else {
		for _, p := range pairs {
			for _, row := range rows {
				if err := ctx.Err(); err != nil {
					return sum, err
				}
				if err := a.judgePair(ctx, ids, p, row, refs, &sum); err != nil {
					return sum, err
				}
			}
		}
	}

	log.With("judged", sum.Judged).With("skipped", sum.Skipped).
		With("unresolved", sum.Unresolved).Info("Arena run complete")
	return sum, nil
}

func (a *Arena) judgePair(
	ctx context.Context,
	ids []string,
	p domain.BattlePair,
	row domain.MergedRow,
	refs referenceIndex,
	sum *Summary,
) error {
	realA, realB := row.Answers[p.A], row.Answers[p.B]
	key := domain.VerdictKey{ModelA: ids[p.A], ModelB: ids[p.B], Question: realA.Text}
	log := clog.FromContext(ctx).With("model_a", key.ModelA).With("model_b", key.ModelB).
		With("question_id", string(row.QuestionID))

	if a.deps.Log.Contains(key) {
		log.Info("Using cached verdict")
		sum.Skipped++
		a.metrics.RecordCounter(MetricCacheHits, 1, map[string]string{"mode": string(a.cfg.Mode)})
		return nil
	}

	switched := a.rnd.IsSwitched(realA.Text)
	shownA, shownB := realA, realB
	if switched {
		shownA, shownB = realB, realA
	}

	ctx, span := a.tracer.Start(ctx, "Arena.Judge", trace.WithAttributes(
		attribute.String("arena.pair", p.String()),
		attribute.String("arena.model_a", key.ModelA),
		attribute.String("arena.model_b", key.ModelB),
		attribute.String("arena.question_id", string(row.QuestionID)),
		attribute.Bool("arena.switched", switched),
	))
	defer span.End()

	ref, err := refs.lookup(row.QuestionID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	pr, err := a.deps.Prompts.Build(prompt.Input{
		Task:      domain.TaskPairwise,
		Category:  realA.Category,
		Question:  realA.Text,
		AnswerA:   shownA.Answer,
		AnswerB:   shownB.Answer,
		Reference: ref,
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return domain.NewConfigurationError("prompts", err)
	}

	text, err := a.predict(ctx, pr)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	verdict := a.deps.Parser.Parse(ctx, text, pr.Format)
	if switched {
		verdict = verdict.Swapped()
	}
	span.SetAttributes(attribute.String("arena.winner", string(verdict.Winner)))

	rec := domain.NewVerdictRecord(realA)
	rec.ModelA, rec.ModelB = key.ModelA, key.ModelB
	rec.Win = verdict.Winner
	rec.Tstamp = domain.Timestamp(a.now())
	rec.ReviewText = text
	if err := a.persist(ctx, rec, verdict.Winner == domain.WinnerUnknown, sum); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	log.With("switched", switched).With("winner", string(verdict.Winner)).Debug("Judged pair")
	return nil
}

func (a *Arena) gradeSingle(
	ctx context.Context,
	model string,
	ans domain.AnswerRecord,
	qid domain.QuestionID,
	refs referenceIndex,
	sum *Summary,
) error {
	key := domain.VerdictKey{ModelA: model, Question: ans.Text}
	log := clog.FromContext(ctx).With("model", model).With("question_id", string(qid))

	if a.deps.Log.Contains(key) {
		log.Info("Using cached verdict")
		sum.Skipped++
		a.metrics.RecordCounter(MetricCacheHits, 1, map[string]string{"mode": string(a.cfg.Mode)})
		return nil
	}

	ctx, span := a.tracer.Start(ctx, "Arena.Grade", trace.WithAttributes(
		attribute.String("arena.model", model),
		attribute.String("arena.question_id", string(qid)),
	))
	defer span.End()

	ref, err := refs.lookup(qid)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	pr, err := a.deps.Prompts.Build(prompt.Input{
		Task:      domain.TaskSingle,
		Category:  ans.Category,
		Question:  ans.Text,
		AnswerA:   ans.Answer,
		Reference: ref,
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return domain.NewConfigurationError("prompts", err)
	}

	text, err := a.predict(ctx, pr)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	verdict := a.deps.Parser.Parse(ctx, text, pr.Format)
	score := verdict.Rating()
	span.SetAttributes(attribute.Float64("arena.score", score))

	rec := domain.NewVerdictRecord(ans)
	rec.ModelA = model
	rec.Win = verdict.Winner
	rec.Tstamp = domain.Timestamp(a.now())
	rec.ReviewText = text
	rec.Score = &score
	if err := a.persist(ctx, rec, score == domain.InvalidScore, sum); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	log.With("score", score).Debug("Graded answer")
	return nil
}

func (a *Arena) predict(ctx context.Context, pr prompt.Prompt) (string, error) {
	start := time.Now()
	text, err := a.deps.Judge.Predict(ctx, ports.PredictRequest{
		SystemPrompt: pr.System,
		UserPrompt:   pr.User,
		OutputFormat: pr.Format,
		Settings:     a.cfg.Settings,
	})
	labels := map[string]string{"mode": string(a.cfg.Mode), "judge": a.deps.Judge.Model()}
	a.metrics.RecordLatency(MetricJudgeLatency, time.Since(start), labels)
	if err != nil {
		return "", fmt.Errorf("judge %s: %w", a.deps.Judge.Model(), err)
	}
	return text, nil
}

func (a *Arena) persist(ctx context.Context, rec domain.VerdictRecord, unresolved bool, sum *Summary) error {
	if err := a.deps.Log.Append(ctx, rec); err != nil {
		return fmt.Errorf("persisting verdict: %w", err)
	}
	sum.Judged++
	labels := map[string]string{"mode": string(a.cfg.Mode), "winner": string(rec.Win)}
	a.metrics.RecordCounter(MetricJudgments, 1, labels)
	if unresolved {
		sum.Unresolved++
		a.metrics.RecordCounter(MetricParseFailures, 1, map[string]string{"parser": a.deps.Parser.Name()})
	}
	return nil
}

type referenceIndex struct {
	configured bool
	byID       map[domain.QuestionID]domain.AnswerRecord
}

// indexReferences keeps the first reference per question id.
func indexReferences(refs []domain.AnswerRecord) referenceIndex {
	idx := referenceIndex{configured: refs != nil, byID: make(map[domain.QuestionID]domain.AnswerRecord, len(refs))}
	for _, r := range refs {
		if _, ok := idx.byID[r.QuestionID]; !ok {
			idx.byID[r.QuestionID] = r
		}
	}
	return idx
}

func (r referenceIndex) lookup(qid domain.QuestionID) (*string, error) {
	if !r.configured {
		return nil, nil
	}
	ref, ok := r.byID[qid]
	if !ok {
		return nil, &domain.ReferenceMismatchError{QuestionID: qid, Reason: "no reference record"}
	}
	if ref.Answer == "" {
		return nil, &domain.ReferenceMismatchError{QuestionID: qid, Reason: "reference answer is empty"}
	}
	return &ref.Answer, nil
}
