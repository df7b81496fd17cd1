// Package parser turns free-text judge completions into structured verdicts.
//
// Three grammars are available, selected by name at startup:
//
//   - lmsys_pairwise: bracketed score pairs ("8 9") or letter choices
//     ("[[A]]"), defaulting to the score-pair format.
//   - lmsys_single: bracketed single ratings ("[[7]]"), defaulting to the
//     rating format. It shares the lmsys grammar and accepts the other
//     formats when a template declares them.
//   - ranking: a list of {model, rank} entries.
//
// Every parser is total. Malformed input is logged at error level through
// the clog logger on the context and degrades to domain.WinnerUnknown or
// domain.InvalidScore.
package parser

import (
	"fmt"
	"slices"
	"sort"

	"github.com/go-viper/mapstructure/v2"

	"github.com/modelscope/eval-scope/internal/domain"
	"github.com/modelscope/eval-scope/internal/ports"
)

// Parser names accepted by New.
const (
	NameLMSYSPairwise = "lmsys_pairwise"
	NameLMSYSSingle   = "lmsys_single"
	NameRanking       = "ranking"
)

// DefaultName is used when no parser is configured.
const DefaultName = NameLMSYSPairwise

// Options are the recognised parser keyword options.
type Options struct {
	// OutputFormat, when set, overrides the format declared by the prompt
	// template for every completion.
	OutputFormat domain.OutputFormat `mapstructure:"output_format"`

	// ModelKey is the entry the ranking grammar reads the rank from.
	// Defaults to "model_a".
	ModelKey string `mapstructure:"model_key"`
}

type factory func(Options) ports.CompletionParser

var factories = map[string]factory{
	NameLMSYSPairwise: func(o Options) ports.CompletionParser {
		return newLMSYS(NameLMSYSPairwise, domain.FormatRatingPair, o.OutputFormat)
	},
	NameLMSYSSingle: func(o Options) ports.CompletionParser {
		return newLMSYS(NameLMSYSSingle, domain.FormatRating, o.OutputFormat)
	},
	NameRanking: func(o Options) ports.CompletionParser {
		return NewRanking(o.ModelKey)
	},
}

// Names lists the registered parser names in sorted order.
func Names() []string {
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New builds the named parser. kwargs are decoded into Options; unknown keys
// are rejected so that typos surface as configuration errors before any
// judge call is made.
func New(name string, kwargs map[string]any) (ports.CompletionParser, error) {
	if name == "" {
		name = DefaultName
	}
	f, ok := factories[name]
	if !ok {
		return nil, domain.NewConfigurationError("parser",
			fmt.Errorf("unknown completion parser %q (known: %v)", name, Names()))
	}

	opts, err := DecodeOptions(kwargs)
	if err != nil {
		return nil, err
	}
	return f(opts), nil
}

// DecodeOptions converts a loosely typed kwargs map into Options.
func DecodeOptions(kwargs map[string]any) (Options, error) {
	var opts Options
	if len(kwargs) == 0 {
		return opts, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &opts,
		ErrorUnused: true,
	})
	if err != nil {
		return opts, fmt.Errorf("creating parser options decoder: %w", err)
	}
	if err := dec.Decode(kwargs); err != nil {
		return opts, domain.NewConfigurationError("parser_kwargs", err)
	}

	if opts.OutputFormat != "" && !slices.Contains(supportedFormats, opts.OutputFormat) {
		return opts, domain.NewConfigurationError("parser_kwargs.output_format",
			fmt.Errorf("unsupported output format %q", opts.OutputFormat))
	}
	return opts, nil
}

var supportedFormats = []domain.OutputFormat{
	domain.FormatRating,
	domain.FormatRatingPair,
	domain.FormatChoice,
}

// SupportedFormats lists the output formats the lmsys grammar understands.
func SupportedFormats() []domain.OutputFormat { return slices.Clone(supportedFormats) }
