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
	Register(&DoneCmd{})
}

// DoneCmd implements the done command.
type DoneCmd struct{}

func (c *DoneCmd) Name() string      { return "done" }
func (c *DoneCmd) Aliases() []string { return nil }
func (c *DoneCmd) Synopsis() string  { return "Mark a task completed" }
func (c *DoneCmd) Usage() string     { return "taskmate done <ref>" }
func (c *DoneCmd) Route() string     { return router.Tasks }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *DoneCmd) Run(ctx context.Context, a *app.App, args []string, out, errOut io.Writer) int {
	id, code := resolveTaskID(ctx, a, args, errOut)
	if code != exitcode.Success {
		return code
	}
	_, err := a.Tasks.CompleteTask(ctx, id)
	return exitcode.FromError(err)
}
