package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"data-pipeline-tool/cmd"
)

func main() {
	// An interrupt cancels the run mid-poll; no rollback is attempted.
	// Re-running any command converges from wherever this run stopped.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Execute(ctx)
}
