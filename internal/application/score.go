package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainguard-dev/clog"

	"github.com/modelscope/eval-scope/infrastructure/dataset"
	"github.com/modelscope/eval-scope/internal/domain"
	"github.com/modelscope/eval-scope/internal/scoring"
)

// ScoreOptions configure ScoreFiles.
type ScoreOptions struct {
	// Scorers are scorer names. Empty means ROUGE only.
	Scorers []string
}

// ScoreFiles scores every prediction against the reference with the same
// question id. Predictions are grouped under their categories; a
// prediction without a category uses its reference's. A prediction with
// no reference fails the whole computation.
func ScoreFiles(ctx context.Context, predictionsPath, referencesPath string, opts ScoreOptions) (scoring.Report, error) {
	names := opts.Scorers
	if len(names) == 0 {
		names = []string{scoring.NameRouge}
	}
	scorers := make([]scoring.Scorer, 0, len(names))
	var keys []string
	for _, n := range names {
		s, err := scoring.New(n)
		if err != nil {
			return scoring.Report{}, domain.NewConfigurationError("scorers", err)
		}
		scorers = append(scorers, s)
		keys = append(keys, s.Keys()...)
	}

	preds, err := dataset.LoadAnswers(ctx, predictionsPath)
	if err != nil {
		return scoring.Report{}, fmt.Errorf("loading predictions: %w", err)
	}
	refs, err := dataset.LoadReferences(ctx, referencesPath)
	if err != nil {
		return scoring.Report{}, fmt.Errorf("loading references: %w", err)
	}

	byID := make(map[domain.QuestionID]domain.AnswerRecord, len(refs))
	for _, r := range refs {
		if _, dup := byID[r.QuestionID]; dup {
			clog.FromContext(ctx).With("question_id", string(r.QuestionID)).
				Warn("Duplicate reference, keeping the first")
			continue
		}
		byID[r.QuestionID] = r
	}

	samples := make([]scoring.Sample, 0, len(preds))
	var missing []error
	for _, p := range preds {
		ref, ok := byID[p.QuestionID]
		if !ok {
			missing = append(missing, &domain.ReferenceMismatchError{QuestionID: p.QuestionID, Reason: "no reference with this question id"})
			continue
		}
		scores := make(map[string]float64, len(keys))
		for _, s := range scorers {
			for k, v := range s.Score(p.Answer, ref.Answer) {
				scores[k] = v
			}
		}
		cats := p.Category.Values()
		if len(cats) == 0 {
			cats = ref.Category.Values()
		}
		samples = append(samples, scoring.Sample{Categories: cats, Scores: scores})
	}
	if len(missing) > 0 {
		return scoring.Report{}, errors.Join(missing...)
	}

	clog.FromContext(ctx).With("samples", len(samples)).With("scorers", names).Info("Scored predictions")
	return scoring.Aggregate(samples, keys), nil
}
