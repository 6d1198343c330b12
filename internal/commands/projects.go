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
	Register(&ProjectsCmd{})
}

// ProjectsCmd implements the projects command.
type ProjectsCmd struct{}

func (c *ProjectsCmd) Name() string      { return "projects" }
func (c *ProjectsCmd) Aliases() []string { return []string{"lists", "tags"} }
func (c *ProjectsCmd) Synopsis() string  { return "Print the projects --project can name" }
func (c *ProjectsCmd) Usage() string     { return "srtask projects [common flags]" }
func (c *ProjectsCmd) NeedsAuth() bool   { return true }

func (c *ProjectsCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ProjectsCmd) Run(ctx context.Context, cfg *config.Config, b service.Backend, args []string, out, errOut io.Writer) int {
	resolver, ok := b.(service.ProjectResolver)
	if !ok {
		fmt.Fprintf(errOut, "error: backend %s has no projects\n", b.Name())
		return exitcode.UserError
	}

	projects, err := resolver.ListProjects(ctx)
	if err != nil {
		return reportBackendError(errOut, err)
	}

	if len(projects) == 0 && !cfg.Quiet {
		fmt.Fprintln(out, "no projects found")
	}
	for _, p := range projects {
		output.FormatProject(out, p)
	}
	return exitcode.Success
}
