package parser

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/chainguard-dev/clog"

	"github.com/modelscope/eval-scope/internal/domain"
	"github.com/modelscope/eval-scope/internal/ports"
)

var (
	ratingPattern         = regexp.MustCompile(`\[\[(\d+\.?\d*)\]\]`)
	ratingPatternFallback = regexp.MustCompile(`\[(\d+\.?\d*)\]`)
)

var _ ports.CompletionParser = (*LMSYS)(nil)

// LMSYS implements the FastChat-style judge grammars: a single bracketed
// rating, a leading score pair, or a bracketed letter choice.
type LMSYS struct {
	name          string
	defaultFormat domain.OutputFormat
	override      domain.OutputFormat
}

func newLMSYS(name string, defaultFormat, override domain.OutputFormat) *LMSYS {
	return &LMSYS{name: name, defaultFormat: defaultFormat, override: override}
}

// NewLMSYS returns the pairwise flavour with no format override.
func NewLMSYS() *LMSYS { return newLMSYS(NameLMSYSPairwise, domain.FormatRatingPair, "") }

// Name returns the configured parser name.
func (p *LMSYS) Name() string { return p.name }

// Parse dispatches on the effective output format. An override configured
// through parser options wins over the template's format; an empty format
// falls back to the parser's default.
func (p *LMSYS) Parse(ctx context.Context, completion string, format domain.OutputFormat) domain.Verdict {
	switch {
	case p.override != "":
		format = p.override
	case format == "":
		format = p.defaultFormat
	}

	switch format {
	case domain.FormatRating:
		rating := ParseRating(ctx, completion)
		return domain.Verdict{Winner: domain.WinnerUnknown, Scores: []float64{rating}}
	case domain.FormatRatingPair:
		return ParseRatingPair(ctx, completion)
	case domain.FormatChoice:
		return domain.Verdict{Winner: ParseChoice(ctx, completion)}
	default:
		clog.FromContext(ctx).With("parser", p.name).
			With("format", string(format)).
			With("completion", completion).
			Error("Unsupported output format, you must manually fix the verdict")
		return domain.Verdict{Winner: domain.WinnerUnknown}
	}
}

// ParseRating extracts "[[n]]", falling back to "[n]". It returns
// domain.InvalidScore when neither is present.
func ParseRating(ctx context.Context, completion string) float64 {
	match := ratingPattern.FindStringSubmatch(completion)
	if match == nil {
		match = ratingPatternFallback.FindStringSubmatch(completion)
	}
	if match != nil {
		if v, err := strconv.ParseFloat(match[1], 64); err == nil {
			return v
		}
	}

	clog.FromContext(ctx).With("completion", completion).
		Error("No rating found in judge output, you must manually fix the score")
	return domain.InvalidScore
}

// ParseRatingPair reads two scores from the first line of completion.
// Commas count as separators. The higher score wins; equal scores tie,
// except two invalid scores which yield an unknown winner.
func ParseRatingPair(ctx context.Context, completion string) domain.Verdict {
	first, _, _ := strings.Cut(completion, "\n")
	fields := strings.Fields(strings.ReplaceAll(first, ",", " "))

	fail := func(reason string) domain.Verdict {
		clog.FromContext(ctx).With("completion", completion).
			With("reason", reason).
			Error("Invalid score pair in judge output, you must manually fix the score pair")
		return domain.Verdict{
			Winner: domain.WinnerUnknown,
			Scores: []float64{domain.InvalidScore, domain.InvalidScore},
		}
	}

	if len(fields) != 2 {
		return fail("expected exactly two scores, got " + strconv.Itoa(len(fields)))
	}
	scoreA, err := parseScore(fields[0])
	if err != nil {
		return fail(err.Error())
	}
	scoreB, err := parseScore(fields[1])
	if err != nil {
		return fail(err.Error())
	}

	v := domain.Verdict{Scores: []float64{scoreA, scoreB}}
	switch {
	case scoreA > scoreB:
		v.Winner = domain.WinnerModelA
	case scoreA < scoreB:
		v.Winner = domain.WinnerModelB
	case scoreA == domain.InvalidScore:
		v.Winner = domain.WinnerUnknown
	default:
		v.Winner = domain.WinnerTie
	}
	return v
}

func parseScore(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, strconv.ErrSyntax
	}
	return v, nil
}

// ParseChoice looks for "[[A]]", "[[B]]" then "[[C]]"; the first found
// decides. C is a tie.
func ParseChoice(ctx context.Context, completion string) domain.Winner {
	switch {
	case strings.Contains(completion, "[[A]]"):
		return domain.WinnerModelA
	case strings.Contains(completion, "[[B]]"):
		return domain.WinnerModelB
	case strings.Contains(completion, "[[C]]"):
		return domain.WinnerTie
	}

	clog.FromContext(ctx).With("completion", completion).
		Error("No choice found in judge output, you must manually fix the verdict")
	return domain.WinnerUnknown
}
