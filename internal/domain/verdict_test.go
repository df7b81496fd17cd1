package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWinner_Swapped(t *testing.T) {
	tests := []struct {
		in   Winner
		want Winner
	}{
		{WinnerModelA, WinnerModelB},
		{WinnerModelB, WinnerModelA},
		{WinnerTie, WinnerTie},
		{WinnerUnknown, WinnerUnknown},
	}
	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Swapped())
			assert.Equal(t, tt.in, tt.in.Swapped().Swapped())
			assert.True(t, tt.in.Valid())
		})
	}
	assert.False(t, Winner("draw").Valid())
}

func TestVerdict_Swapped(t *testing.T) {
	v := Verdict{Winner: WinnerModelA, Scores: []float64{8, 3}}
	got := v.Swapped()
	assert.Equal(t, Verdict{Winner: WinnerModelB, Scores: []float64{3, 8}}, got)
	assert.Equal(t, []float64{8, 3}, v.Scores, "receiver must not change")

	single := Verdict{Winner: WinnerUnknown, Scores: []float64{7}}
	assert.Equal(t, single, single.Swapped())
	assert.Nil(t, Verdict{Winner: WinnerTie}.Swapped().Scores)
}

func TestVerdict_Rating(t *testing.T) {
	assert.Equal(t, 7.5, Verdict{Scores: []float64{7.5}}.Rating())
	assert.Equal(t, InvalidScore, Verdict{Scores: []float64{1, 2}}.Rating())
	assert.Equal(t, InvalidScore, Verdict{}.Rating())
}

func TestVerdictRecord_JSON(t *testing.T) {
	rec := VerdictRecord{
		ModelA:     "gpt-4",
		ModelB:     "llama",
		Win:        WinnerTie,
		Anony:      true,
		Tstamp:     Timestamp(time.Unix(1700000000, 500_000_000)),
		Language:   DefaultLanguage,
		QuestionID: "12",
		Category:   CategoryList("math", "reasoning"),
		Question:   "What is 2+2?",
		ReviewText: "[[C]]",
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Len(t, fields, 10)
	assert.NotContains(t, fields, "score")
	assert.Equal(t, 12.0, fields["question_id"])
	assert.Equal(t, []any{"math", "reasoning"}, fields["category"])
	assert.InDelta(t, 1700000000.5, fields["tstamp"], 1e-6)

	var back VerdictRecord
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, rec.Key(), back.Key())
	assert.Equal(t, VerdictKey{ModelA: "gpt-4", ModelB: "llama", Question: "What is 2+2?"}, back.Key())

	score := 6.0
	rec.ModelB, rec.Score = "", &score
	data, err = json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"score":6`)
}

func TestBattlePair_String(t *testing.T) {
	assert.Equal(t, "(0,2)", BattlePair{A: 0, B: 2}.String())
}

func TestNewVerdictRecord_KeepsQuestionIDForm(t *testing.T) {
	var ans AnswerRecord
	require.NoError(t, json.Unmarshal([]byte(`{"question_id": "7", "model_id": "m", "text": "q", "answer": "a"}`), &ans))

	rec := NewVerdictRecord(ans)
	assert.True(t, rec.Anony)
	assert.Equal(t, DefaultLanguage, rec.Language)
	assert.Equal(t, "q", rec.Question)
	assert.True(t, rec.Category.IsZero())

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"question_id":"7"`)

	var back VerdictRecord
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, QuestionID("7"), back.QuestionID)
	assert.True(t, back.Category.IsZero())

	again, err := json.Marshal(back)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
}
