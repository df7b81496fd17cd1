package arena

import (
	"sort"

	"github.com/modelscope/eval-scope/internal/domain"
)

// PairTally counts the outcomes of one (model_a, model_b) matchup.
type PairTally struct {
	ModelA  string `json:"model_a"`
	ModelB  string `json:"model_b"`
	WinsA   int    `json:"wins_a"`
	WinsB   int    `json:"wins_b"`
	Ties    int    `json:"ties"`
	Unknown int    `json:"unknown"`
}

// Total is the number of verdicts counted.
func (t PairTally) Total() int { return t.WinsA + t.WinsB + t.Ties + t.Unknown }

// WinRateA is model_a's share of resolved verdicts, ties counting half.
// It is zero when nothing was resolved.
func (t PairTally) WinRateA() float64 {
	resolved := t.WinsA + t.WinsB + t.Ties
	if resolved == 0 {
		return 0
	}
	return (float64(t.WinsA) + 0.5*float64(t.Ties)) / float64(resolved)
}

// Tally groups pairwise records by matchup, sorted by model_a then
// model_b. Single-answer records are ignored.
func Tally(records []domain.VerdictRecord) []PairTally {
	byPair := make(map[[2]string]*PairTally)
	for _, r := range records {
		if r.ModelB == "" {
			continue
		}
		k := [2]string{r.ModelA, r.ModelB}
		t, ok := byPair[k]
		if !ok {
			t = &PairTally{ModelA: r.ModelA, ModelB: r.ModelB}
			byPair[k] = t
		}
		switch r.Win {
		case domain.WinnerModelA:
			t.WinsA++
		case domain.WinnerModelB:
			t.WinsB++
		case domain.WinnerTie:
			t.Ties++
		default:
			t.Unknown++
		}
	}

	out := make([]PairTally, 0, len(byPair))
	for _, t := range byPair {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ModelA != out[j].ModelA {
			return out[i].ModelA < out[j].ModelA
		}
		return out[i].ModelB < out[j].ModelB
	})
	return out
}
