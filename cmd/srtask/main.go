// Package main is the entry point for the srtask CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"srtask/internal/cli"
	"srtask/internal/commands"
)

func main() {
	// Cancel on interrupt; a batch in flight records the rest as skipped.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, cli.OpenBackend)

	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
