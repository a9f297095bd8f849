package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskmate/internal/app"
	"taskmate/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "taskmate help" }
func (c *HelpCmd) Route() string     { return "" }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, a *app.App, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  taskmate                                   List tasks
  taskmate list [common flags] [--status <s>] [--priority <p>] [--search <q>] [--sort <field>] [--ids]
  taskmate add [common flags] [--description <d>] [--priority <p>] [--due YYYY-MM-DD] <title...>
  taskmate edit [common flags] [--title <t>] [--description <d>] [--status <s>] [--priority <p>] [--due YYYY-MM-DD] <ref>
  taskmate done [common flags] <ref>
  taskmate rm [common flags] <ref>
  taskmate whoami [common flags]
  taskmate login [common flags] --email <email> [--password <password>]
  taskmate register [common flags] --name <name> --email <email> [--password <password>]
  taskmate logout [common flags]
  taskmate help
  taskmate version

A <ref> is a task number as printed by list, or a task id (#<id> for ids
made only of digits). Passwords default to $TASKMATE_PASSWORD.
Statuses: pending, in-progress, completed.

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
