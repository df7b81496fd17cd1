package arena

import (
	"context"
	"fmt"

	"github.com/chainguard-dev/clog"

	"github.com/modelscope/eval-scope/internal/domain"
)

// MergeAnswers inner-joins the answer sets on question id. Rows follow the
// order of the first set; a question missing from any set is dropped. The
// returned ids hold each set's model id in input order.
//
// Each set must be non-empty and name a single model, and model ids must be
// distinct across sets. A question id repeated within one set keeps its
// first record.
func MergeAnswers(ctx context.Context, sets [][]domain.AnswerRecord) ([]domain.MergedRow, []string, error) {
	log := clog.FromContext(ctx)

	ids := make([]string, len(sets))
	indexes := make([]map[domain.QuestionID]domain.AnswerRecord, len(sets))
	owner := make(map[string]int, len(sets))

	for i, set := range sets {
		if len(set) == 0 {
			return nil, nil, domain.NewConfigurationError("answers",
				fmt.Errorf("answer set %d is empty", i))
		}
		id := set[0].ModelID
		if id == "" {
			return nil, nil, domain.NewConfigurationError("answers",
				fmt.Errorf("answer set %d has no model_id", i))
		}
		if prev, dup := owner[id]; dup {
			return nil, nil, domain.NewConfigurationError("answers",
				fmt.Errorf("model_id %q appears in answer sets %d and %d", id, prev, i))
		}
		owner[id] = i
		ids[i] = id

		idx := make(map[domain.QuestionID]domain.AnswerRecord, len(set))
		for _, rec := range set {
			if rec.ModelID != id {
				return nil, nil, domain.NewConfigurationError("answers",
					fmt.Errorf("answer set %d mixes model ids %q and %q", i, id, rec.ModelID))
			}
			if _, seen := idx[rec.QuestionID]; seen {
				log.With("model_id", id).With("question_id", string(rec.QuestionID)).
					Warn("Duplicate question id in answer set, keeping the first record")
				continue
			}
			idx[rec.QuestionID] = rec
		}
		indexes[i] = idx
	}

	if len(sets) == 0 {
		return nil, ids, nil
	}

	var rows []domain.MergedRow
	emitted := make(map[domain.QuestionID]bool)
	for _, rec := range sets[0] {
		qid := rec.QuestionID
		if emitted[qid] {
			continue
		}
		emitted[qid] = true

		answers := make([]domain.AnswerRecord, len(sets))
		complete := true
		for i, idx := range indexes {
			a, ok := idx[qid]
			if !ok {
				complete = false
				break
			}
			answers[i] = a
		}
		if !complete {
			log.With("question_id", string(qid)).Debug("Dropping question missing from some answer sets")
			continue
		}
		rows = append(rows, domain.MergedRow{QuestionID: qid, Answers: answers})
	}
	return rows, ids, nil
}
