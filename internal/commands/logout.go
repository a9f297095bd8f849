package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskmate/internal/app"
	"taskmate/internal/exitcode"
	"taskmate/internal/router"
)

func init() {
	Register(&LogoutCmd{})
}

// LogoutCmd implements the logout command.
type LogoutCmd struct{}

func (c *LogoutCmd) Name() string      { return "logout" }
func (c *LogoutCmd) Aliases() []string { return nil }
func (c *LogoutCmd) Synopsis() string  { return "Sign out and remove the stored credential" }
func (c *LogoutCmd) Usage() string     { return "taskmate logout [common flags]" }
func (c *LogoutCmd) Route() string     { return router.Home }

func (c *LogoutCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LogoutCmd) Run(ctx context.Context, a *app.App, args []string, out, errOut io.Writer) int {
	if !a.Session.IsAuthenticated() && !a.Session.HasCredential() {
		if !a.Config.Quiet {
			fmt.Fprintln(out, "not logged in")
		}
	}
	return exitcode.FromError(a.Session.Logout(ctx))
}
