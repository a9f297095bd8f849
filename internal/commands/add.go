package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"taskmate/internal/app"
	"taskmate/internal/exitcode"
	"taskmate/internal/output"
	"taskmate/internal/router"
	"taskmate/internal/service"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	description string
	priority    string
	due         string
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string {
	return "taskmate add [--description <d>] [--priority <p>] [--due YYYY-MM-DD] <title...>"
}
func (c *AddCmd) Route() string { return router.Tasks }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.description, "description", "", "")
	fs.StringVar(&c.priority, "priority", "", "")
	fs.StringVar(&c.due, "due", "", "")
}

func (c *AddCmd) Run(ctx context.Context, a *app.App, args []string, out, errOut io.Writer) int {
	title := strings.Join(args, " ")
	if strings.TrimSpace(title) == "" {
		fmt.Fprintln(errOut, "error: title required")
		return exitcode.UserError
	}

	input := service.TaskInput{Title: service.String(title)}
	if c.description != "" {
		input.Description = service.String(c.description)
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

	_, err := a.Tasks.AddTask(ctx, input)
	return exitcode.FromError(err)
}

func parseDue(s string) (time.Time, error) {
	due, err := time.Parse(output.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due date: %s (want YYYY-MM-DD)", s)
	}
	return due, nil
}
