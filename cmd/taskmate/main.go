// Package main is the entry point for the taskmate CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"taskmate/internal/cli"
	"taskmate/internal/commands"
)

func main() {
	// Create context that cancels on interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	// A nil factory builds the client from the loaded config.
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, nil)

	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}
