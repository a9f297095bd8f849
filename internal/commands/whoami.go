package commands

import (
	"context"
	"flag"
	"io"

	"taskmate/internal/app"
	"taskmate/internal/exitcode"
	"taskmate/internal/output"
	"taskmate/internal/router"
)

func init() {
	Register(&WhoamiCmd{})
}

// WhoamiCmd implements the whoami command.
type WhoamiCmd struct{}

func (c *WhoamiCmd) Name() string      { return "whoami" }
func (c *WhoamiCmd) Aliases() []string { return []string{"profile"} }
func (c *WhoamiCmd) Synopsis() string  { return "Show the signed-in user" }
func (c *WhoamiCmd) Usage() string     { return "taskmate whoami [common flags]" }
func (c *WhoamiCmd) Route() string     { return router.Profile }

func (c *WhoamiCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *WhoamiCmd) Run(ctx context.Context, a *app.App, args []string, out, errOut io.Writer) int {
	output.FormatProfile(out, a.Session.User())
	return exitcode.Success
}
