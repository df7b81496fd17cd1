// Command evalscope runs judge-model arenas over answer files.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelscope/eval-scope/internal/domain"
)

// Exit codes.
const (
	ExitSuccess     = 0
	ExitError       = 1 // Run failed
	ExitConfigError = 2 // Configuration was rejected before judging
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := execute(ctx, os.Args[1:])
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, domain.ErrInvalidConfiguration):
		return ExitConfigError
	default:
		return ExitError
	}
}

func execute(ctx context.Context, args []string) error {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}
