package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouge_Score(t *testing.T) {
	tests := []struct {
		name       string
		prediction string
		reference  string
		want       map[string]float64
	}{
		{
			name:       "identical",
			prediction: "the cat sat on the mat",
			reference:  "the cat sat on the mat",
			want: map[string]float64{
				Rouge1Recall: 1, Rouge1Precision: 1, Rouge1F: 1,
				Rouge2Recall: 1, Rouge2Precision: 1, Rouge2F: 1,
				RougeLRecall: 1, RougeLPrecision: 1, RougeLF: 1,
			},
		},
		{
			name:       "partial overlap",
			prediction: "the cat was found under the bed",
			reference:  "the cat was under the bed",
			want: map[string]float64{
				Rouge1Recall: 1, Rouge1Precision: 6.0 / 7, Rouge1F: 12.0 / 13,
				Rouge2Recall: 4.0 / 5, Rouge2Precision: 4.0 / 6, Rouge2F: 2 * (4.0 / 5) * (4.0 / 6) / (4.0/5 + 4.0/6),
				RougeLRecall: 1, RougeLPrecision: 6.0 / 7, RougeLF: 12.0 / 13,
			},
		},
		{
			name:       "disjoint",
			prediction: "alpha beta",
			reference:  "gamma delta",
			want: map[string]float64{
				Rouge1Recall: 0, Rouge1Precision: 0, Rouge1F: 0,
				Rouge2Recall: 0, Rouge2Precision: 0, Rouge2F: 0,
				RougeLRecall: 0, RougeLPrecision: 0, RougeLF: 0,
			},
		},
		{
			name:       "empty prediction",
			prediction: "",
			reference:  "some words",
			want: map[string]float64{
				Rouge1Recall: 0, Rouge1Precision: 0, Rouge1F: 0,
				Rouge2Recall: 0, Rouge2Precision: 0, Rouge2F: 0,
				RougeLRecall: 0, RougeLPrecision: 0, RougeLF: 0,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rouge{}.Score(tt.prediction, tt.reference)
			require.Len(t, got, len(RougeKeys))
			for k, want := range tt.want {
				assert.InDelta(t, want, got[k], 1e-9, k)
			}
		})
	}
}

func TestRouge_LCSOrder(t *testing.T) {
	got := Rouge{}.Score("c b a", "a b c")
	assert.InDelta(t, 1.0, got[Rouge1F], 1e-9)
	assert.InDelta(t, 1.0/3, got[RougeLRecall], 1e-9)
	assert.InDelta(t, 0.0, got[Rouge2F], 1e-9)
}

func TestExactMatch(t *testing.T) {
	m := NewExactMatch()
	assert.Equal(t, 1.0, m.Score("  Paris ", "paris")[ExactMatchKey])
	assert.Equal(t, 1.0, m.Score("ÉCOLE", "école")[ExactMatchKey])
	assert.Equal(t, 0.0, m.Score("Paris, France", "Paris")[ExactMatchKey])
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("", ""))
	assert.Equal(t, 0.0, Similarity("", "abc"))
	assert.InDelta(t, 0.75, Similarity("café", "cafe"), 1e-9)
	assert.InDelta(t, 1-3.0/7, Similarity("kitten", "sitting"), 1e-9)

	got := Levenshtein{}.Score("HELLO", "hello ")
	assert.Equal(t, 1.0, got[LevenshteinKey])
}

func TestNew(t *testing.T) {
	for _, name := range []string{NameRouge, NameExactMatch, NameLevenshtein} {
		s, err := New(name)
		require.NoError(t, err)
		assert.Equal(t, name, s.Name())
		assert.NotEmpty(t, s.Keys())
	}
	_, err := New("bleu")
	assert.Error(t, err)
}

func TestAggregate(t *testing.T) {
	t.Run("empty input reports zeros", func(t *testing.T) {
		r := Aggregate(nil, RougeKeys)
		assert.Equal(t, 0, r.Count)
		require.Len(t, r.Total, len(RougeKeys))
		for _, k := range RougeKeys {
			assert.Equal(t, 0.0, r.Total[k])
		}
		assert.Empty(t, r.ByCategory)
	})

	t.Run("means scaled by 100", func(t *testing.T) {
		keys := []string{ExactMatchKey}
		samples := []Sample{
			{Categories: []string{"math"}, Scores: map[string]float64{ExactMatchKey: 1}},
			{Categories: []string{"math", "hard"}, Scores: map[string]float64{ExactMatchKey: 0}},
			{Categories: []string{"writing"}, Scores: map[string]float64{ExactMatchKey: 1}},
			{Scores: map[string]float64{ExactMatchKey: 1}},
		}
		r := Aggregate(samples, keys)
		assert.Equal(t, 4, r.Count)
		assert.InDelta(t, 75, r.Total[ExactMatchKey], 1e-9)
		assert.InDelta(t, 50, r.ByCategory["math"][ExactMatchKey], 1e-9)
		assert.InDelta(t, 0, r.ByCategory["hard"][ExactMatchKey], 1e-9)
		assert.InDelta(t, 100, r.ByCategory["writing"][ExactMatchKey], 1e-9)
		assert.Equal(t, 2, r.Counts["math"])
		assert.Equal(t, []string{"hard", "math", "writing"}, r.Categories())
	})
}
