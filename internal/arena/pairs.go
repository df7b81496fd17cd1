package arena

import (
	"fmt"

	"github.com/modelscope/eval-scope/internal/domain"
)

// GeneratePairs returns the battle pairs over competitor indices.
//
// With an empty baseline it returns every 2-combination in lexicographic
// index order: (0,1), (0,2), ..., (1,2), ... for K(K-1)/2 pairs. With a
// baseline it returns (baseline, other) for every other competitor in index
// order, K-1 pairs. An unknown baseline is a configuration error.
func GeneratePairs(ids []string, baseline string) ([]domain.BattlePair, error) {
	if baseline == "" {
		pairs := make([]domain.BattlePair, 0, len(ids)*(len(ids)-1)/2)
		for i := range ids {
			for j := i + 1; j < len(ids); j++ {
				pairs = append(pairs, domain.BattlePair{A: i, B: j})
			}
		}
		return pairs, nil
	}

	base := -1
	for i, id := range ids {
		if id == baseline {
			base = i
			break
		}
	}
	if base < 0 {
		return nil, domain.NewConfigurationError("baseline",
			fmt.Errorf("%w: %q not in %v", domain.ErrUnknownBaseline, baseline, ids))
	}

	pairs := make([]domain.BattlePair, 0, len(ids)-1)
	for i := range ids {
		if i != base {
			pairs = append(pairs, domain.BattlePair{A: base, B: i})
		}
	}
	return pairs, nil
}
