package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"srtask/internal/config"
	"srtask/internal/exitcode"
	"srtask/internal/service"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "srtask help" }
func (c *HelpCmd) NeedsAuth() bool   { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, _ service.Backend, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, "Usage:\n  srtask <command> [common flags] [options] [args...]\n\nCommands:\n")
	for _, cmd := range DefaultRegistry.All() {
		line := fmt.Sprintf("  %-10s %s", cmd.Name(), cmd.Synopsis())
		if aliases := cmd.Aliases(); len(aliases) > 0 {
			line += " (alias: " + strings.Join(aliases, ", ") + ")"
		}
		fmt.Fprintln(out, line)
	}
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `
Options:
  --project, -p <name>    Target project, list or tag
  --note, -n <text>       Note attached to every task
  --priority <p>          1-4 or low, medium, high, urgent
  --retries <n>           Retry rate-limited and transport failures n times
  --timeout <d>           Per-call timeout (e.g. 10s)

Plan options:
  --offsets <days>        Comma-separated day offsets (default 2,7,14,30,90)
  --at <HH:MM>            Time of day for every due date (default 23:00)
  --from <YYYY-MM-DD>     Base date instead of today

Common flags:
  --config <dir>          Override config directory
  --backend <name>        googletasks, habitica or todoist
  --log-format <format>   text or json
  --quiet                 Suppress informational output
  --debug                 Print debug logs to stderr

Exit codes:
  0 all tasks created, 1 usage error, 2 auth error,
  3 no task created, 4 some tasks created
`
