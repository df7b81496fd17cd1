package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evalscope",
		Short: "Pairwise arena evaluation with a judge model",
		Long: `evalscope compares model answer files question by question with a
judge model and records one verdict per matchup in a resumable JSON-lines log.

Re-running with the same output file only judges what is missing.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	logLevel := cmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")
	logFormat := cmd.PersistentFlags().String("log-format", "text", "Log format: text or json")
	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		logger, err := newLogger(cmd.ErrOrStderr(), *logLevel, *logFormat)
		if err != nil {
			return err
		}
		cmd.SetContext(clog.WithLogger(cmd.Context(), logger))
		return nil
	}

	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newPairsCommand())
	cmd.AddCommand(newScoreCommand())

	return cmd
}

func newLogger(w io.Writer, level, format string) (*clog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch format {
	case "text":
		return clog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return clog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid --log-format %q: must be text or json", format)
	}
}
