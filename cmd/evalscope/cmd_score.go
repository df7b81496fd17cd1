package main

import (
	"github.com/spf13/cobra"

	"github.com/modelscope/eval-scope/internal/application"
	"github.com/modelscope/eval-scope/internal/scoring"
)

func newScoreCommand() *cobra.Command {
	var (
		predictions string
		references  string
		scorers     []string
	)
	cmd := &cobra.Command{
		Use:   "score --predictions <file> --references <file>",
		Short: "Score generated answers against references",
		Long: `Score joins predictions and references on question_id and reports mean
ROUGE, exact match and Levenshtein similarity, in percent, overall and per
category. Text is tokenised on whitespace.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := application.ScoreFiles(cmd.Context(), predictions, references,
				application.ScoreOptions{Scorers: scorers})
			if err != nil {
				return err
			}
			return writeJSON(cmd, report)
		},
	}
	cmd.Flags().StringVarP(&predictions, "predictions", "p", "", "Answer file with the predictions (required)")
	cmd.Flags().StringVarP(&references, "references", "r", "", "Answer file with the references (required)")
	cmd.Flags().StringSliceVarP(&scorers, "scorers", "s", []string{scoring.NameRouge},
		"Scorers: rouge, exact_match, levenshtein")
	_ = cmd.MarkFlagRequired("predictions")
	_ = cmd.MarkFlagRequired("references")
	return cmd
}
