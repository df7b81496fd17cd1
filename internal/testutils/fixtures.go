package testutils

import (
	"fmt"

	"github.com/modelscope/eval-scope/internal/domain"
)

// FixtureQuestions are the question texts used by AnswerSet, indexed by
// question number.
var FixtureQuestions = []string{
	"What is the capital of France?",
	"Explain the difference between a process and a thread.",
	"Write a haiku about autumn.",
	"What is 17 * 23?",
	"Summarise the plot of Hamlet in two sentences.",
	"Why is the sky blue?",
}

// AnswerSet returns n answer records for model, one per fixture question,
// with question ids "1".."n". Category is "general".
func AnswerSet(model string, n int) []domain.AnswerRecord {
	set := make([]domain.AnswerRecord, 0, n)
	for i := range n {
		set = append(set, domain.AnswerRecord{
			QuestionID: domain.QuestionID(fmt.Sprint(i + 1)),
			ModelID:    model,
			Text:       FixtureQuestions[i%len(FixtureQuestions)],
			Answer:     fmt.Sprintf("%s answer to question %d", model, i+1),
			Category:   domain.Category("general"),
		})
	}
	return set
}

// References returns reference records for question ids "1".."n".
func References(n int) []domain.AnswerRecord {
	refs := make([]domain.AnswerRecord, 0, n)
	for i := range n {
		refs = append(refs, domain.AnswerRecord{
			QuestionID: domain.QuestionID(fmt.Sprint(i + 1)),
			ModelID:    "reference",
			Text:       FixtureQuestions[i%len(FixtureQuestions)],
			Answer:     fmt.Sprintf("reference answer %d", i+1),
		})
	}
	return refs
}
