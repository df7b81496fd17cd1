// Package scoring computes reference-based text metrics for generated
// answers: ROUGE-1/2/L, case-folded exact match and normalised Levenshtein
// similarity.
package scoring

import (
	"fmt"
	"sort"
	"strings"
)

// Scorer reduces a prediction and its reference to named scores in [0, 1].
type Scorer interface {
	// Name identifies the scorer in configuration.
	Name() string

	// Keys lists the score names Score returns, in report order.
	Keys() []string

	// Score compares one prediction with its reference.
	Score(prediction, reference string) map[string]float64
}

// Tokenize splits on whitespace. Callers wanting language-aware
// tokenisation should pre-tokenise and join with spaces.
func Tokenize(s string) []string { return strings.Fields(s) }

// Names of the built-in scorers.
const (
	NameRouge       = "rouge"
	NameExactMatch  = "exact_match"
	NameLevenshtein = "levenshtein"
)

// New returns the named scorer.
func New(name string) (Scorer, error) {
	switch name {
	case NameRouge:
		return Rouge{}, nil
	case NameExactMatch:
		return NewExactMatch(), nil
	case NameLevenshtein:
		return Levenshtein{}, nil
	default:
		return nil, fmt.Errorf("unknown scorer %q (known: %s, %s, %s)", name, NameRouge, NameExactMatch, NameLevenshtein)
	}
}

// Sample is one scored prediction with the categories it counts towards.
type Sample struct {
	Categories []string
	Scores     map[string]float64
}

// Report holds mean scores scaled to percentages.
type Report struct {
	Count      int                           `json:"count"`
	Total      map[string]float64            `json:"total"`
	ByCategory map[string]map[string]float64 `json:"by_category"`
	Counts     map[string]int                `json:"category_counts"`
}

// Categories returns the category names in sorted order.
func (r Report) Categories() []string {
	out := make([]string, 0, len(r.ByCategory))
	for c := range r.ByCategory {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Aggregate averages every key over all samples and per category, scaled
// by 100. With no samples every key is reported as 0.
func Aggregate(samples []Sample, keys []string) Report {
	r := Report{
		Count:      len(samples),
		Total:      make(map[string]float64, len(keys)),
		ByCategory: make(map[string]map[string]float64),
		Counts:     make(map[string]int),
	}
	for _, k := range keys {
		r.Total[k] = 0
	}
	if len(samples) == 0 {
		return r
	}

	sums := make(map[string]map[string]float64)
	for _, s := range samples {
		for _, k := range keys {
			r.Total[k] += s.Scores[k]
		}
		for _, c := range s.Categories {
			if sums[c] == nil {
				sums[c] = make(map[string]float64, len(keys))
			}
			r.Counts[c]++
			for _, k := range keys {
				sums[c][k] += s.Scores[k]
			}
		}
	}

	for _, k := range keys {
		r.Total[k] = r.Total[k] / float64(len(samples)) * 100
	}
	for c, byKey := range sums {
		means := make(map[string]float64, len(keys))
		for _, k := range keys {
			means[k] = byKey[k] / float64(r.Counts[c]) * 100
		}
		r.ByCategory[c] = means
	}
	return r
}
