package commands

import (
	"context"
	"flag"
	"io"

	"taskmate/internal/app"
	"taskmate/internal/exitcode"
	"taskmate/internal/router"
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct{}

func (c *RmCmd) Name() string      { return "rm" }
func (c *RmCmd) Aliases() []string { return []string{"delete"} }
func (c *RmCmd) Synopsis() string  { return "Delete a task" }
func (c *RmCmd) Usage() string     { return "taskmate rm <ref>" }
func (c *RmCmd) Route() string     { return router.Tasks }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RmCmd) Run(ctx context.Context, a *app.App, args []string, out, errOut io.Writer) int {
	id, code := resolveTaskID(ctx, a, args, errOut)
	if code != exitcode.Success {
		return code
	}
	return exitcode.FromError(a.Tasks.DeleteTask(ctx, id))
}
