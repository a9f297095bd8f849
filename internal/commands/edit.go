package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"taskmate/internal/app"
	"taskmate/internal/exitcode"
	"taskmate/internal/router"
	"taskmate/internal/service"
)

func init() {
	Register(&EditCmd{})
}

// EditCmd implements the edit command. Only the fields given as flags
// are sent.
type EditCmd struct {
	title       string
	description string
	status      string
	priority    string
	due         string
}

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return nil }
func (c *EditCmd) Synopsis() string  { return "Change a task" }
func (c *EditCmd) Usage() string {
	return "taskmate edit [--title <t>] [--description <d>] [--status <s>] [--priority <p>] [--due YYYY-MM-DD] <ref>"
}
func (c *EditCmd) Route() string { return router.Tasks }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.title, "title", "", "")
	fs.StringVar(&c.description, "description", "", "")
	fs.StringVar(&c.status, "status", "", "")
	fs.StringVar(&c.priority, "priority", "", "")
	fs.StringVar(&c.due, "due", "", "")
}

func (c *EditCmd) Run(ctx context.Context, a *app.App, args []string, out, errOut io.Writer) int {
	var input service.TaskInput
	if c.title != "" {
		if strings.TrimSpace(c.title) == "" {
			fmt.Fprintln(errOut, "error: title required")
			return exitcode.UserError
		}
		input.Title = service.String(c.title)
	}
	if c.description != "" {
		input.Description = service.String(c.description)
	}
	if c.status != "" {
		if !validStatus(c.status) {
			fmt.Fprintf(errOut, "error: invalid status: %s\n", c.status)
			return exitcode.UserError
		}
		input.Status = service.String(c.status)
	}
	if c.priority != "" {
		input.Priority = service.String(c.priority)
	}
	if c.due != "" {
		due, err := parseDue(c.due)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		input.DueDate = &due
	}
	if input == (service.TaskInput{}) {
		fmt.Fprintln(errOut, "error: nothing to change")
		return exitcode.UserError
	}

	id, code := resolveTaskID(ctx, a, args, errOut)
	if code != exitcode.Success {
		return code
	}
	_, err := a.Tasks.UpdateTask(ctx, id, input)
	return exitcode.FromError(err)
}
