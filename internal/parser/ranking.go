package parser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/chainguard-dev/clog"

	"github.com/modelscope/eval-scope/internal/domain"
	"github.com/modelscope/eval-scope/internal/ports"
)

const defaultRankingModelKey = "model_a"

var _ ports.CompletionParser = (*Ranking)(nil)

// Ranking reads a list of {"model": ..., "rank": ...} entries. The rank of
// the entry whose model matches ModelKey decides: 1 means model_a won,
// 2 means model_b won.
type Ranking struct {
	modelKey string
}

// NewRanking returns a ranking parser keyed on modelKey, or on "model_a"
// when modelKey is empty.
func NewRanking(modelKey string) *Ranking {
	if modelKey == "" {
		modelKey = defaultRankingModelKey
	}
	return &Ranking{modelKey: modelKey}
}

// Name implements ports.CompletionParser.
func (p *Ranking) Name() string { return NameRanking }

// RankEntry is one element of a ranking completion.
type RankEntry struct {
	Model string `json:"model"`
	Rank  any    `json:"rank"`
}

// Parse accepts JSON as well as Python-literal lists such as
// [{'model': 'model_a', 'rank': 1}]. The format argument is ignored.
func (p *Ranking) Parse(ctx context.Context, completion string, _ domain.OutputFormat) domain.Verdict {
	entries, err := decodeRanking(completion)
	if err != nil {
		clog.FromContext(ctx).With("completion", completion).
			With("error", err.Error()).
			Error("Malformed ranking in judge output, you must manually fix the verdict")
		return domain.Verdict{Winner: domain.WinnerUnknown}
	}
	return domain.Verdict{Winner: p.ParseEntries(ctx, entries)}
}

// ParseEntries resolves an already structured ranking.
func (p *Ranking) ParseEntries(ctx context.Context, entries []RankEntry) domain.Winner {
	for _, e := range entries {
		if e.Model != p.modelKey {
			continue
		}
		switch rank, ok := integralRank(e.Rank); {
		case ok && rank == 1:
			return domain.WinnerModelA
		case ok && rank == 2:
			return domain.WinnerModelB
		default:
			clog.FromContext(ctx).With("model", e.Model).
				With("rank", fmt.Sprint(e.Rank)).
				Error("Ranking for model is neither 1 nor 2, you must manually fix the verdict")
			return domain.WinnerUnknown
		}
	}

	clog.FromContext(ctx).With("model_key", p.modelKey).
		Error("No ranking entry for model, you must manually fix the verdict")
	return domain.WinnerUnknown
}

func integralRank(v any) (int, bool) {
	switch r := v.(type) {
	case float64:
		if r != math.Trunc(r) {
			return 0, false
		}
		return int(r), true
	case int:
		return r, true
	case json.Number:
		i, err := r.Int64()
		return int(i), err == nil
	default:
		return 0, false
	}
}

func decodeRanking(completion string) ([]RankEntry, error) {
	s := strings.TrimSpace(completion)
	if s == "" {
		return nil, errors.New("empty ranking")
	}

	var entries []RankEntry
	if err := json.Unmarshal([]byte(s), &entries); err == nil {
		return entries, nil
	}

	converted, err := pythonLiteralToJSON(s)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(converted), &entries); err != nil {
		return nil, fmt.Errorf("decoding ranking: %w", err)
	}
	return entries, nil
}

// pythonLiteralToJSON rewrites the subset of Python literal syntax judges
// emit for rankings: single-quoted strings, True/False/None and trailing
// commas.
func pythonLiteralToJSON(s string) (string, error) {
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\'' || c == '"':
			end, lit, err := readQuoted(s, i)
			if err != nil {
				return "", err
			}
			quoted, _ := json.Marshal(lit)
			b.Write(quoted)
			i = end
		case c == ',':
			j := i + 1
			for j < len(s) && isSpace(s[j]) {
				j++
			}
			if j < len(s) && (s[j] == ']' || s[j] == '}') {
				continue
			}
			b.WriteByte(c)
		case isIdentStart(c):
			j := i
			for j < len(s) && isIdentStart(s[j]) {
				j++
			}
			switch word := s[i:j]; word {
			case "True":
				b.WriteString("true")
			case "False":
				b.WriteString("false")
			case "None":
				b.WriteString("null")
			default:
				return "", fmt.Errorf("unexpected identifier %q", word)
			}
			i = j - 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

func readQuoted(s string, start int) (int, string, error) {
	quote := s[start]
	var lit strings.Builder
	for i := start + 1; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			if i+1 >= len(s) {
				return 0, "", errors.New("unterminated escape")
			}
			i++
			switch e := s[i]; e {
			case 'n':
				lit.WriteByte('\n')
			case 't':
				lit.WriteByte('\t')
			default:
				lit.WriteByte(e)
			}
		case quote:
			return i, lit.String(), nil
		default:
			lit.WriteByte(c)
		}
	}
	return 0, "", errors.New("unterminated string")
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

func isIdentStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}
