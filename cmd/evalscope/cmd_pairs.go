package main

import (
	"github.com/spf13/cobra"

	"github.com/modelscope/eval-scope/internal/application"
)

type pairView struct {
	A      int    `json:"a"`
	B      int    `json:"b"`
	ModelA string `json:"model_a"`
	ModelB string `json:"model_b"`
}

type plannedRun struct {
	Mode        string     `json:"mode"`
	Competitors []string   `json:"competitors"`
	Pairs       []pairView `json:"pairs"`
	Questions   int        `json:"questions"`
	Judgments   int        `json:"judgments"`
}

func newPairsCommand() *cobra.Command {
	var config string
	cmd := &cobra.Command{
		Use:   "pairs --config <run.yaml>",
		Short: "Print the battle pairs a configuration implies without judging",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadWithOverrides(config, nil)
			if err != nil {
				return err
			}
			plan, err := application.PlanRun(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			mode := cfg.ArenaSettings().Mode
			out := plannedRun{
				Mode:        string(mode),
				Competitors: plan.Competitors,
				Pairs:       make([]pairView, 0, len(plan.Pairs)),
				Questions:   plan.Questions,
				Judgments:   plan.Judgments(mode),
			}
			for _, p := range plan.Pairs {
				out.Pairs = append(out.Pairs, pairView{
					A: p.A, B: p.B,
					ModelA: plan.Competitors[p.A], ModelB: plan.Competitors[p.B],
				})
			}
			return writeJSON(cmd, out)
		},
	}
	cmd.Flags().StringVarP(&config, "config", "c", "", "Run configuration file (required)")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}
