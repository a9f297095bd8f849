// Package cli parses the command line and runs commands through the router.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"taskmate/internal/app"
	"taskmate/internal/apperr"
	"taskmate/internal/commands"
	"taskmate/internal/config"
	"taskmate/internal/exitcode"
	"taskmate/internal/router"
)

// AppFactory builds the client from config.
// Used to inject test transports during dispatch.
type AppFactory func(cfg *config.Config, out, errOut io.Writer) (*app.App, error)

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  AppFactory
}

// NewDispatcher creates a new dispatcher with the given registry and app factory.
// A nil factory builds the client with app.New.
func NewDispatcher(registry *commands.Registry, factory AppFactory) *Dispatcher {
	if factory == nil {
		factory = func(cfg *config.Config, out, errOut io.Writer) (*app.App, error) {
			return app.New(cfg, out, errOut)
		}
	}
	return &Dispatcher{
		registry: registry,
		factory:  factory,
	}
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	// No args -> dispatch to "list" command with no args
	if len(args) == 0 {
		return d.dispatch(ctx, "list", nil, out, errOut)
	}

	cmdName := args[0]

	// If first token starts with -, it's an error (flags require a command)
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	// Look up command
	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	// Parse flags
	remaining := args[1:]
	return d.dispatchCommand(ctx, cmd, remaining, out, errOut)
}

func (d *Dispatcher) dispatch(ctx context.Context, cmdName string, args []string, out, errOut io.Writer) int {
	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}
	return d.dispatchCommand(ctx, cmd, args, out, errOut)
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	// Create flag set with custom error handling
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard) // We handle errors ourselves

	// Common flags
	var configDir string
	var quiet bool
	var debug bool

	fs.StringVar(&configDir, "config", "", "")
	fs.BoolVar(&quiet, "quiet", false, "")
	fs.BoolVar(&debug, "debug", false, "")

	// Register command-specific flags
	cmd.RegisterFlags(fs)

	// Parse flags
	if err := fs.Parse(args); err != nil {
		// Handle specific error types
		errStr := err.Error()

		// Check for missing flag value: "flag needs an argument: -name"
		if strings.HasPrefix(errStr, "flag needs an argument:") {
			flagName := strings.TrimSpace(strings.TrimPrefix(errStr, "flag needs an argument:"))
			fmt.Fprintf(errOut, "error: flag needs an argument: %s\n", flagName)
			return exitcode.UserError
		}

		// Check for unknown flag
		if strings.HasPrefix(errStr, "flag provided but not defined:") {
			flagName := strings.TrimPrefix(errStr, "flag provided but not defined: ")
			fmt.Fprintf(errOut, "error: unknown flag: %s\n", flagName)
			return exitcode.UserError
		}

		// Generic error handling for bad flag values
		if strings.Contains(errStr, "invalid value") {
			fmt.Fprintf(errOut, "error: %s\n", errStr)
			return exitcode.UserError
		}

		fmt.Fprintf(errOut, "error: %s\n", errStr)
		return exitcode.UserError
	}

	// Check if first positional arg starts with - (should have been parsed as flag)
	positionalArgs := fs.Args()
	if len(positionalArgs) > 0 && strings.HasPrefix(positionalArgs[0], "-") {
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", positionalArgs[0])
		return exitcode.UserError
	}

	// Create config
	cfg, err := config.New(configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	cfg.Quiet = quiet
	cfg.Debug = debug

	a, err := d.factory(cfg, out, errOut)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	defer a.Close()

	// Enter the command's route; the guard may redirect.
	if route := cmd.Route(); route != "" {
		landed, err := a.Enter(ctx, route)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.BackendError
		}
		if landed.Name != route {
			return d.redirected(a, landed, out, errOut)
		}
	}

	// Run command
	return cmd.Run(ctx, a, positionalArgs, out, errOut)
}

// redirected reports a guard redirect and returns the exit code.
func (d *Dispatcher) redirected(a *app.App, landed router.Route, out, errOut io.Writer) int {
	switch landed.Name {
	case router.Landing:
		// Guest-only command while signed in.
		if !a.Config.Quiet {
			fmt.Fprintln(out, "already logged in")
		}
		return exitcode.Success
	case router.Login:
		if e := a.Session.Err(); e != nil && (e.Kind == apperr.Network || e.Kind == apperr.Internal) {
			fmt.Fprintf(errOut, "error: backend error: %s\n", e.Message)
			return exitcode.BackendError
		}
		fmt.Fprintln(errOut, "error: not logged in (run: taskmate login)")
		return exitcode.AuthError
	}
	fmt.Fprintf(errOut, "error: redirected to %s\n", landed.Name)
	return exitcode.UserError
}
