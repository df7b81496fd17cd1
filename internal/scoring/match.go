package scoring

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
)

// Score keys of the matching scorers.
const (
	ExactMatchKey  = "exact_match"
	LevenshteinKey = "levenshtein_similarity"
)

// ExactMatch scores 1 when prediction and reference are equal after
// trimming and Unicode case folding.
type ExactMatch struct {
	caser cases.Caser
}

// NewExactMatch returns a case-insensitive exact-match scorer.
func NewExactMatch() ExactMatch { return ExactMatch{caser: cases.Fold()} }

// Name implements Scorer.
func (ExactMatch) Name() string { return NameExactMatch }

// Keys implements Scorer.
func (ExactMatch) Keys() []string { return []string{ExactMatchKey} }

// Score implements Scorer.
func (m ExactMatch) Score(prediction, reference string) map[string]float64 {
	p := m.caser.String(strings.TrimSpace(prediction))
	r := m.caser.String(strings.TrimSpace(reference))
	if p == r {
		return map[string]float64{ExactMatchKey: 1}
	}
	return map[string]float64{ExactMatchKey: 0}
}

// Levenshtein scores 1 - distance/maxRunes over case-folded text. Two empty
// strings are identical.
type Levenshtein struct{}

// Name implements Scorer.
func (Levenshtein) Name() string { return NameLevenshtein }

// Keys implements Scorer.
func (Levenshtein) Keys() []string { return []string{LevenshteinKey} }

// Score implements Scorer.
func (Levenshtein) Score(prediction, reference string) map[string]float64 {
	caser := cases.Fold()
	return map[string]float64{LevenshteinKey: Similarity(
		caser.String(strings.TrimSpace(prediction)),
		caser.String(strings.TrimSpace(reference)),
	)}
}

// Similarity is the normalised edit similarity of a and b, in [0, 1].
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 1
	}
	sim := 1 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
	if sim < 0 {
		return 0
	}
	return sim
}
