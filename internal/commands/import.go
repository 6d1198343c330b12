package commands

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"srtask/internal/batch"
	"srtask/internal/config"
	"srtask/internal/exitcode"
	"srtask/internal/service"
)

func init() {
	Register(&ImportCmd{})
}

// ImportFile is the YAML document read by the import command. Reminder
// fields left empty inherit the document-level project and priority.
type ImportFile struct {
	Project   string        `yaml:"project"`
	Priority  string        `yaml:"priority"`
	Reminders []ImportEntry `yaml:"reminders"`
}

// ImportEntry is one reminder in an ImportFile.
type ImportEntry struct {
	Content  string `yaml:"content"`
	Note     string `yaml:"note"`
	Priority string `yaml:"priority"`
	Project  string `yaml:"project"`
}

// ParseImportFile decodes and validates an import document.
// Unknown keys are rejected.
func ParseImportFile(data []byte) (ImportFile, error) {
	var f ImportFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return f, errors.New("no reminders")
		}
		return f, err
	}
	if len(f.Reminders) == 0 {
		return f, errors.New("no reminders")
	}
	for i, e := range f.Reminders {
		if strings.TrimSpace(e.Content) == "" {
			return f, fmt.Errorf("reminder %d: %w", i+1, service.ErrEmptyContent)
		}
		if _, err := service.ParsePriority(f.priorityOf(e)); err != nil {
			return f, fmt.Errorf("reminder %d: %w", i+1, err)
		}
	}
	return f, nil
}

func (f ImportFile) priorityOf(e ImportEntry) string {
	if e.Priority != "" {
		return e.Priority
	}
	return f.Priority
}

func (f ImportFile) projectOf(e ImportEntry) string {
	if e.Project != "" {
		return e.Project
	}
	return f.Project
}

// ImportCmd implements the import command.
type ImportCmd struct {
	project string
	plan    planFlags
	run     runFlags

	retryPolicy func(maxRetries int) batch.RetryPolicy
}

// SetRetryPolicy replaces the retry policy constructor (for testing).
func (c *ImportCmd) SetRetryPolicy(fn func(maxRetries int) batch.RetryPolicy) {
	c.retryPolicy = fn
}

func (c *ImportCmd) Name() string      { return "import" }
func (c *ImportCmd) Aliases() []string { return nil }
func (c *ImportCmd) Synopsis() string  { return "Create review tasks for every reminder in a YAML file" }
func (c *ImportCmd) Usage() string {
	return "srtask import [common flags] [--project <name>] [--offsets <days>] [--at <HH:MM>] " +
		"[--from <YYYY-MM-DD>] [--retries <n>] [--timeout <d>] <file.yaml>"
}
func (c *ImportCmd) NeedsAuth() bool { return true }

func (c *ImportCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.project, "project", "", "")
	fs.StringVar(&c.project, "p", "", "")
	c.plan.register(fs)
	c.run.register(fs)
}

func (c *ImportCmd) Run(ctx context.Context, cfg *config.Config, b service.Backend, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(errOut, "error: exactly one file required")
		return exitcode.UserError
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	file, err := ParseImportFile(data)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s: %v\n", args[0], err)
		return exitcode.UserError
	}
	if c.project != "" {
		file.Project = c.project
	}

	sched, err := c.plan.schedule(cfg)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	// Resolve each distinct project name once.
	projectIDs := make(map[string]string)
	reminders := make([]service.Reminder, 0, len(file.Reminders))
	for _, e := range file.Reminders {
		name := file.projectOf(e)
		id, seen := projectIDs[name]
		if !seen {
			var code int
			id, code = resolveProject(ctx, b, name, errOut)
			if code != exitcode.Success {
				return code
			}
			projectIDs[name] = id
		}

		priority, _ := service.ParsePriority(file.priorityOf(e)) // validated by ParseImportFile
		reminders = append(reminders, service.Reminder{
			Content:  strings.TrimSpace(e.Content),
			Note:     e.Note,
			Priority: priority,
			Project:  id,
		})
	}

	creator := newCreator(cfg, c.run.timeout)
	results := creator.CreateAll(ctx, b, reminders, sched)

	policy := batch.DefaultRetryPolicy
	if c.retryPolicy != nil {
		policy = c.retryPolicy
	}
	retryFailed(ctx, creator, b, results, policy(c.run.retries))

	report(cfg, out, errOut, results)
	return exitCodeFor(results)
}
