package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"taskmate/internal/app"
	"taskmate/internal/exitcode"
	"taskmate/internal/router"
	"taskmate/internal/service"
)

// passwordEnvVar supplies the password when --password is not given.
const passwordEnvVar = "TASKMATE_PASSWORD"

func init() {
	Register(&LoginCmd{})
	Register(&RegisterCmd{})
}

// LoginCmd implements the login command.
type LoginCmd struct {
	email    string
	password string
}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Sign in" }
func (c *LoginCmd) Usage() string     { return "taskmate login --email <email> [--password <password>]" }
func (c *LoginCmd) Route() string     { return router.Login }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.email, "email", "", "")
	fs.StringVar(&c.password, "password", "", "")
}

func (c *LoginCmd) Run(ctx context.Context, a *app.App, args []string, out, errOut io.Writer) int {
	creds := service.Credentials{
		Email:    strings.TrimSpace(c.email),
		Password: passwordOrEnv(c.password),
	}
	if creds.Email == "" {
		fmt.Fprintln(errOut, "error: --email required")
		return exitcode.UserError
	}
	if creds.Password == "" {
		fmt.Fprintf(errOut, "error: --password or %s required\n", passwordEnvVar)
		return exitcode.UserError
	}

	// Success and failure are both reported by the session store.
	return exitcode.FromError(a.Session.Login(ctx, creds))
}

// RegisterCmd implements the register command.
type RegisterCmd struct {
	name     string
	email    string
	password string
}

func (c *RegisterCmd) Name() string      { return "register" }
func (c *RegisterCmd) Aliases() []string { return []string{"signup"} }
func (c *RegisterCmd) Synopsis() string  { return "Create an account and sign in" }
func (c *RegisterCmd) Usage() string {
	return "taskmate register --name <name> --email <email> [--password <password>]"
}
func (c *RegisterCmd) Route() string { return router.Register }

func (c *RegisterCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.name, "name", "", "")
	fs.StringVar(&c.email, "email", "", "")
	fs.StringVar(&c.password, "password", "", "")
}

func (c *RegisterCmd) Run(ctx context.Context, a *app.App, args []string, out, errOut io.Writer) int {
	reg := service.Registration{
		Name:     strings.TrimSpace(c.name),
		Email:    strings.TrimSpace(c.email),
		Password: passwordOrEnv(c.password),
	}
	switch {
	case reg.Name == "":
		fmt.Fprintln(errOut, "error: --name required")
		return exitcode.UserError
	case reg.Email == "":
		fmt.Fprintln(errOut, "error: --email required")
		return exitcode.UserError
	case reg.Password == "":
		fmt.Fprintf(errOut, "error: --password or %s required\n", passwordEnvVar)
		return exitcode.UserError
	}

	return exitcode.FromError(a.Session.Register(ctx, reg))
}

func passwordOrEnv(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(passwordEnvVar)
}
