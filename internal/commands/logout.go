package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"srtask/internal/backend/googletasks"
	"srtask/internal/config"
	"srtask/internal/exitcode"
	"srtask/internal/service"
)

func init() {
	Register(&LogoutCmd{})
}

// LogoutCmd implements the logout command.
type LogoutCmd struct{}

func (c *LogoutCmd) Name() string      { return "logout" }
func (c *LogoutCmd) Aliases() []string { return nil }
func (c *LogoutCmd) Synopsis() string  { return "Remove the stored Google token" }
func (c *LogoutCmd) Usage() string     { return "srtask logout [common flags]" }
func (c *LogoutCmd) NeedsAuth() bool   { return false }

func (c *LogoutCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LogoutCmd) Run(ctx context.Context, cfg *config.Config, _ service.Backend, args []string, out, errOut io.Writer) int {
	// Token backends keep their credentials in config.yaml or the environment.
	if name := cfg.Settings.Backend; name != "" && name != googletasks.Name {
		if !cfg.Quiet {
			fmt.Fprintf(out, "%s credentials are read from %s or the environment; nothing to remove\n", name, cfg.SettingsPath())
		}
		return exitcode.Success
	}

	if !cfg.HasToken() {
		if !cfg.Quiet {
			fmt.Fprintln(out, "not logged in")
		}
		return exitcode.Success
	}

	if err := cfg.RemoveToken(); err != nil {
		fmt.Fprintf(errOut, "error: failed to remove token: %v\n", err)
		return exitcode.AuthError
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
