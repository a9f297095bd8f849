package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskmate/internal/app"
	"taskmate/internal/exitcode"
	"taskmate/internal/output"
	"taskmate/internal/router"
	"taskmate/internal/service"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `taskmate` (no args) and `taskmate list [filters]`.
type ListCmd struct {
	status   string
	priority string
	search   string
	sort     string
	ids      bool
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List tasks" }
func (c *ListCmd) Usage() string {
	return "taskmate list [--status <s>] [--priority <p>] [--search <q>] [--sort <field>] [--ids]"
}
func (c *ListCmd) Route() string { return router.Tasks }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.status, "status", "", "")
	fs.StringVar(&c.priority, "priority", "", "")
	fs.StringVar(&c.search, "search", "", "")
	fs.StringVar(&c.sort, "sort", "", "")
	fs.BoolVar(&c.ids, "ids", false, "")
}

func (c *ListCmd) Run(ctx context.Context, a *app.App, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}
	if c.status != "" && !validStatus(c.status) {
		fmt.Fprintf(errOut, "error: invalid status: %s\n", c.status)
		return exitcode.UserError
	}

	filters := service.Filters{
		Status:   c.status,
		Priority: c.priority,
		Search:   c.search,
		SortBy:   c.sort,
	}
	if err := a.Tasks.FetchTasks(ctx, filters); err != nil {
		return exitcode.FromError(err)
	}

	tasks := a.Tasks.Tasks()
	for i, task := range tasks {
		output.FormatTask(out, i+1, task, c.ids)
	}
	if len(tasks) == 0 && !a.Config.Quiet {
		fmt.Fprintln(out, "no tasks found")
	}
	return exitcode.Success
}

func validStatus(s string) bool {
	switch s {
	case service.StatusPending, service.StatusInProgress, service.StatusCompleted:
		return true
	}
	return false
}
