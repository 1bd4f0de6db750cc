package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gatienc/transcribe-cli/internal/cli"
	"github.com/gatienc/transcribe-cli/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand(cli.DefaultHandlers()).ExecuteContext(ctx); err != nil {
		logging.Base().Errorf("%v", err)
		stop()
		os.Exit(1)
	}
}
