package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/modelscope/eval-scope/infrastructure/telemetry"
	"github.com/modelscope/eval-scope/internal/application"
	"github.com/modelscope/eval-scope/internal/arena"
)

type runFlags struct {
	config      string
	output      string
	provider    string
	mode        string
	metricsFile string
}

func newRunCommand() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run --config <run.yaml>",
		Short: "Judge every pending matchup and append the verdicts",
		Long: `Run loads the answer files named by the configuration, judges every
(pair, question) not yet in the output log and prints the win/tie tally.

Provider keys are read from OPENAI_API_KEY, ANTHROPIC_API_KEY and
GOOGLE_API_KEY.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runArena(cmd, f)
		},
	}

	cmd.Flags().StringVarP(&f.config, "config", "c", "", "Run configuration file (required)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Override files.output")
	cmd.Flags().StringVar(&f.provider, "provider", "", "Override judge.provider")
	cmd.Flags().StringVar(&f.mode, "mode", "", "Override arena.mode")
	cmd.Flags().StringVar(&f.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file when the run ends")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

// runReport is printed to stdout when the run ends.
type runReport struct {
	Output      string            `json:"output"`
	Competitors []string          `json:"competitors"`
	Questions   int               `json:"questions"`
	Judged      int               `json:"judged"`
	Skipped     int               `json:"skipped"`
	Unresolved  int               `json:"unresolved"`
	Tally       []arena.PairTally `json:"tally"`
}

func runArena(cmd *cobra.Command, f runFlags) (err error) {
	ctx := cmd.Context()
	log := clog.FromContext(ctx)

	cfg, err := loadWithOverrides(f.config, func(cfg *application.RunConfig) {
		if f.output != "" {
			cfg.Files.Output = f.output
		}
		if f.provider != "" {
			cfg.Judge.Provider = f.provider
		}
		if f.mode != "" {
			cfg.Arena.Mode = arena.Mode(f.mode)
		}
	})
	if err != nil {
		return err
	}

	secrets, err := application.LoadSecrets(ctx)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	if f.metricsFile != "" {
		defer func() {
			if werr := prometheus.WriteToTextfile(f.metricsFile, reg); werr != nil {
				err = errors.Join(err, fmt.Errorf("writing metrics: %w", werr))
			}
		}()
	}

	res, err := application.Run(ctx, cfg, application.Options{
		Secrets: secrets,
		Metrics: telemetry.NewPrometheusMetrics(reg),
	})
	for _, t := range res.Tally {
		log.With("model_a", t.ModelA).With("model_b", t.ModelB).
			With("wins_a", t.WinsA).With("wins_b", t.WinsB).
			With("ties", t.Ties).With("unknown", t.Unknown).
			With("win_rate_a", t.WinRateA()).Info("Tally")
	}
	if err != nil {
		return err
	}

	return writeJSON(cmd, runReport{
		Output:      res.Output,
		Competitors: res.Summary.Competitors,
		Questions:   res.Summary.Questions,
		Judged:      res.Summary.Judged,
		Skipped:     res.Summary.Skipped,
		Unresolved:  res.Summary.Unresolved,
		Tally:       res.Tally,
	})
}

// loadWithOverrides loads path, applies the flag overrides and validates
// the result again.
func loadWithOverrides(path string, override func(*application.RunConfig)) (*application.RunConfig, error) {
	loader, err := application.NewConfigLoader()
	if err != nil {
		return nil, err
	}
	cfg, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	if override != nil {
		override(cfg)
		if err := loader.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
