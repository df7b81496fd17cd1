package arena

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelscope/eval-scope/internal/domain"
)

func competitorIDs(k int) []string {
	ids := make([]string, k)
	for i := range ids {
		ids[i] = fmt.Sprintf("model-%d", i)
	}
	return ids
}

func TestGeneratePairs_AllPairs(t *testing.T) {
	for k := 0; k <= 7; k++ {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			pairs, err := GeneratePairs(competitorIDs(k), "")
			require.NoError(t, err)
			assert.Len(t, pairs, k*(k-1)/2)

			seen := make(map[[2]int]bool)
			for i, p := range pairs {
				assert.NotEqual(t, p.A, p.B, "self pair %v", p)
				assert.Less(t, p.A, p.B)
				lo, hi := min(p.A, p.B), max(p.A, p.B)
				assert.False(t, seen[[2]int{lo, hi}], "duplicate pair %v", p)
				seen[[2]int{lo, hi}] = true

				if i > 0 {
					prev := pairs[i-1]
					assert.True(t, prev.A < p.A || (prev.A == p.A && prev.B < p.B), "pairs out of order at %d", i)
				}
			}
		})
	}
}

func TestGeneratePairs_Order(t *testing.T) {
	pairs, err := GeneratePairs([]string{"a", "b", "c"}, "")
	require.NoError(t, err)
	assert.Equal(t, []domain.BattlePair{{A: 0, B: 1}, {A: 0, B: 2}, {A: 1, B: 2}}, pairs)
}

func TestGeneratePairs_Baseline(t *testing.T) {
	for k := 1; k <= 6; k++ {
		ids := competitorIDs(k)
		baseline := ids[k-1]
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			pairs, err := GeneratePairs(ids, baseline)
			require.NoError(t, err)
			assert.Len(t, pairs, k-1)
			for _, p := range pairs {
				assert.Equal(t, baseline, ids[p.A])
				assert.NotEqual(t, baseline, ids[p.B])
			}
		})
	}

	pairs, err := GeneratePairs([]string{"a", "base", "c"}, "base")
	require.NoError(t, err)
	assert.Equal(t, []domain.BattlePair{{A: 1, B: 0}, {A: 1, B: 2}}, pairs)
}

func TestGeneratePairs_UnknownBaseline(t *testing.T) {
	pairs, err := GeneratePairs([]string{"a", "b"}, "gpt-4")
	require.Error(t, err)
	assert.Nil(t, pairs)
	assert.True(t, errors.Is(err, domain.ErrUnknownBaseline))
	assert.True(t, errors.Is(err, domain.ErrInvalidConfiguration))
}
