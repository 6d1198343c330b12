package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"srtask/internal/batch"
	"srtask/internal/config"
	"srtask/internal/exitcode"
	"srtask/internal/service"
)

func init() {
	Register(&RemindCmd{})
}

// RemindCmd implements the remind command: one task per due date.
type RemindCmd struct {
	project  string
	note     string
	priority string
	plan     planFlags
	run      runFlags

	retryPolicy func(maxRetries int) batch.RetryPolicy
}

// SetRetryPolicy replaces the retry policy constructor (for testing).
func (c *RemindCmd) SetRetryPolicy(fn func(maxRetries int) batch.RetryPolicy) {
	c.retryPolicy = fn
}

func (c *RemindCmd) Name() string      { return "remind" }
func (c *RemindCmd) Aliases() []string { return []string{"add"} }
func (c *RemindCmd) Synopsis() string  { return "Create review tasks for a reminder" }
func (c *RemindCmd) Usage() string {
	return "srtask remind [common flags] [--project <name>] [--note <text>] [--priority <p>] " +
		"[--offsets <days>] [--at <HH:MM>] [--from <YYYY-MM-DD>] [--retries <n>] [--timeout <d>] <content...>"
}
func (c *RemindCmd) NeedsAuth() bool { return true }

func (c *RemindCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.project, "project", "", "")
	fs.StringVar(&c.project, "p", "", "")
	fs.StringVar(&c.note, "note", "", "")
	fs.StringVar(&c.note, "n", "", "")
	fs.StringVar(&c.priority, "priority", "", "")
	c.plan.register(fs)
	c.run.register(fs)
}

func (c *RemindCmd) Run(ctx context.Context, cfg *config.Config, b service.Backend, args []string, out, errOut io.Writer) int {
	content := strings.TrimSpace(strings.Join(args, " "))
	if content == "" {
		fmt.Fprintln(errOut, "error: content required")
		return exitcode.UserError
	}

	priority, err := service.ParsePriority(c.priority)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	sched, err := c.plan.schedule(cfg)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	projectID, code := resolveProject(ctx, b, c.project, errOut)
	if code != exitcode.Success {
		return code
	}

	reminder := service.Reminder{
		Content:  content,
		Note:     c.note,
		Priority: priority,
		Project:  projectID,
	}

	creator := newCreator(cfg, c.run.timeout)
	results := []batch.Result{creator.Create(ctx, b, reminder, sched)}

	policy := batch.DefaultRetryPolicy
	if c.retryPolicy != nil {
		policy = c.retryPolicy
	}
	retryFailed(ctx, creator, b, results, policy(c.run.retries))

	report(cfg, out, errOut, results)
	return exitCodeFor(results)
}
