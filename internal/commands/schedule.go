package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"srtask/internal/config"
	"srtask/internal/exitcode"
	"srtask/internal/output"
	"srtask/internal/service"
)

func init() {
	Register(&ScheduleCmd{})
}

// ScheduleCmd prints the due dates a reminder would get, without
// contacting a backend.
type ScheduleCmd struct {
	plan planFlags
}

func (c *ScheduleCmd) Name() string      { return "schedule" }
func (c *ScheduleCmd) Aliases() []string { return []string{"preview"} }
func (c *ScheduleCmd) Synopsis() string  { return "Print the due dates without creating tasks" }
func (c *ScheduleCmd) Usage() string {
	return "srtask schedule [common flags] [--offsets <days>] [--at <HH:MM>] [--from <YYYY-MM-DD>]"
}
func (c *ScheduleCmd) NeedsAuth() bool { return false }

func (c *ScheduleCmd) RegisterFlags(fs *flag.FlagSet) {
	c.plan.register(fs)
}

func (c *ScheduleCmd) Run(ctx context.Context, cfg *config.Config, b service.Backend, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	sched, err := c.plan.schedule(cfg)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	for _, d := range sched {
		output.FormatDueDate(out, d)
	}
	return exitcode.Success
}
