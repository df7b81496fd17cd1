package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Winner is the outcome of judging one pair on one question.
type Winner string

// Winner values as persisted in the result log.
const (
	WinnerModelA  Winner = "model_a"
	WinnerModelB  Winner = "model_b"
	WinnerTie     Winner = "tie"
	WinnerUnknown Winner = "unknown"
)

// Valid reports whether w is one of the four known outcomes.
func (w Winner) Valid() bool {
	switch w {
	case WinnerModelA, WinnerModelB, WinnerTie, WinnerUnknown:
		return true
	}
	return false
}

// Swapped maps a verdict given on swapped presentation back to the real
// order. Ties and unknowns are symmetric.
func (w Winner) Swapped() Winner {
	switch w {
	case WinnerModelA:
		return WinnerModelB
	case WinnerModelB:
		return WinnerModelA
	default:
		return w
	}
}

// OutputFormat declares how the judge is asked to state its verdict.
type OutputFormat string

// Supported output formats.
const (
	FormatRating     OutputFormat = "[[rating]]"
	FormatRatingPair OutputFormat = "[[rating_a,rating_b]]"
	FormatChoice     OutputFormat = "[[A]]"
)

// DefaultOutputFormat applies when a template does not declare one.
const DefaultOutputFormat = FormatRatingPair

// TaskType selects between head-to-head and single-answer templates.
type TaskType string

// Task types understood by the prompt builder.
const (
	TaskPairwise TaskType = "pairwise"
	TaskSingle   TaskType = "single"
)

// InvalidScore marks a rating the parser could not recover.
const InvalidScore = -1.0

// Verdict is the structured reading of one judge completion.
// Scores holds one rating for FormatRating, two for FormatRatingPair and
// is nil for the letter and ranking grammars.
type Verdict struct {
	Winner Winner
	Scores []float64
}

// Rating returns the single rating or InvalidScore.
func (v Verdict) Rating() float64 {
	if len(v.Scores) != 1 {
		return InvalidScore
	}
	return v.Scores[0]
}

// Swapped returns the verdict with winner and score order restored to the
// real competitor order.
func (v Verdict) Swapped() Verdict {
	out := Verdict{Winner: v.Winner.Swapped()}
	if len(v.Scores) == 2 {
		out.Scores = []float64{v.Scores[1], v.Scores[0]}
	} else if v.Scores != nil {
		out.Scores = append([]float64(nil), v.Scores...)
	}
	return out
}

// BattlePair is an unordered pair of competitor indices, stored with
// A < B except in baseline mode where A is the baseline.
type BattlePair struct {
	A int `json:"a"`
	B int `json:"b"`
}

func (p BattlePair) String() string { return fmt.Sprintf("(%d,%d)", p.A, p.B) }

// VerdictRecord is one persisted judgment. Model identities are always
// the real ones, independent of presentation order.
type VerdictRecord struct {
	ModelA     string     `json:"model_a"`
	ModelB     string     `json:"model_b"`
	Win        Winner     `json:"win"`
	Anony      bool       `json:"anony"`
	Tstamp     float64    `json:"tstamp"`
	Language   string     `json:"language"`
	QuestionID QuestionID `json:"question_id"`
	Category   Categories `json:"category"`
	Question   string     `json:"question"`
	ReviewText string     `json:"review_text"`

	// Score is only written by single-answer grading.
	Score *float64 `json:"score,omitempty"`

	idQuoted bool
}

// NewVerdictRecord starts a record about ans's question. The question
// fields, including the form of the question id, are copied from ans.
func NewVerdictRecord(ans AnswerRecord) VerdictRecord {
	return VerdictRecord{
		Anony:      true,
		Language:   ans.LanguageOrDefault(),
		QuestionID: ans.QuestionID,
		Category:   ans.Category,
		Question:   ans.Text,
		idQuoted:   ans.idQuoted,
	}
}

// MarshalJSON writes question_id in the form it was read in.
func (r VerdictRecord) MarshalJSON() ([]byte, error) {
	type plain VerdictRecord
	id, err := encodeQuestionID(r.QuestionID, r.idQuoted)
	if err != nil {
		return nil, err
	}
	return marshalRecord(struct {
		QuestionID json.RawMessage `json:"question_id"`
		plain
	}{id, plain(r)})
}

// UnmarshalJSON records whether question_id was a string or a number.
func (r *VerdictRecord) UnmarshalJSON(data []byte) error {
	type plain VerdictRecord
	aux := struct {
		QuestionID json.RawMessage `json:"question_id"`
		*plain
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	q, quoted, err := decodeQuestionID(aux.QuestionID)
	if err != nil {
		return err
	}
	r.QuestionID, r.idQuoted = q, quoted
	return nil
}

// Key returns the resume-cache identity of the record.
func (r VerdictRecord) Key() VerdictKey {
	return VerdictKey{ModelA: r.ModelA, ModelB: r.ModelB, Question: r.Question}
}

// VerdictKey identifies a judgment for caching: real model identities and
// the literal question text.
type VerdictKey struct {
	ModelA   string
	ModelB   string
	Question string
}

// Timestamp converts t to the fractional-seconds form used by Tstamp.
func Timestamp(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
