package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"srtask/internal/backend"
	"srtask/internal/commands"
	"srtask/internal/config"
	"srtask/internal/exitcode"
	"srtask/internal/logging"
	"srtask/internal/service"
	"srtask/internal/session"
)

// BackendFactory creates the backend named by cfg.Settings.Backend.
// Used to inject the backend during dispatch.
type BackendFactory func(ctx context.Context, cfg *config.Config) (service.Backend, error)

// OpenBackend is the production factory.
func OpenBackend(ctx context.Context, cfg *config.Config) (service.Backend, error) {
	return backend.Open(ctx, cfg, cfg.Settings.Backend)
}

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  BackendFactory
}

// NewDispatcher creates a new dispatcher with the given registry and backend factory.
// A nil factory uses OpenBackend.
func NewDispatcher(registry *commands.Registry, factory BackendFactory) *Dispatcher {
	if factory == nil {
		factory = OpenBackend
	}
	return &Dispatcher{
		registry: registry,
		factory:  factory,
	}
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	// No args -> help
	if len(args) == 0 {
		return d.dispatch(ctx, "help", nil, out, errOut)
	}

	cmdName := args[0]

	// If first token starts with -, it's an error (flags require a command)
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	return d.dispatch(ctx, cmdName, args[1:], out, errOut)
}

func (d *Dispatcher) dispatch(ctx context.Context, cmdName string, args []string, out, errOut io.Writer) int {
	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}
	return d.dispatchCommand(ctx, cmd, args, out, errOut)
}

// commonFlags are accepted by every command.
type commonFlags struct {
	configDir string
	backend   string
	logFormat string
	quiet     bool
	debug     bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configDir, "config", "", "")
	fs.StringVar(&c.backend, "backend", "", "")
	fs.StringVar(&c.logFormat, "log-format", "", "")
	fs.BoolVar(&c.quiet, "quiet", false, "")
	fs.BoolVar(&c.debug, "debug", false, "")
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	// Create flag set with custom error handling
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard) // We handle errors ourselves

	var common commonFlags
	common.register(fs)
	cmd.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		reportFlagError(errOut, err)
		return exitcode.UserError
	}

	// Check if first positional arg starts with - (should have been parsed as flag)
	positionalArgs := fs.Args()
	if len(positionalArgs) > 0 && strings.HasPrefix(positionalArgs[0], "-") {
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", positionalArgs[0])
		return exitcode.UserError
	}

	cfg, err := config.New(common.configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	cfg.Quiet = common.quiet
	cfg.Debug = common.debug
	if err := cfg.Load(); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	if common.backend != "" {
		cfg.Settings.Backend = common.backend
	}
	if common.logFormat != "" {
		cfg.Settings.LogFormat = common.logFormat
	}

	closeLog, err := setupLogger(cfg, errOut)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	defer closeLog()

	var b service.Backend
	if cmd.NeedsAuth() {
		b, err = d.factory(ctx, cfg)
		if err != nil {
			switch {
			case errors.Is(err, session.ErrNotConfigured):
				fmt.Fprintf(errOut, "error: auth error: %s\n", err)
				return exitcode.AuthError
			case errors.Is(err, backend.ErrUnknown):
				fmt.Fprintf(errOut, "error: %s\n", err)
				return exitcode.UserError
			}
			fmt.Fprintf(errOut, "error: backend error: %s\n", err)
			return exitcode.BackendError
		}
		cfg.Log().Debug("backend ready", "backend", b.Name())
	}

	return cmd.Run(ctx, cfg, b, positionalArgs, out, errOut)
}

// setupLogger sets cfg.Logger. Records go to errOut at warn level, or
// debug with --debug and error with --quiet. With log_file set they are
// appended to that file at info level instead.
func setupLogger(cfg *config.Config, errOut io.Writer) (func(), error) {
	format := cfg.Settings.LogFormat
	if err := logging.ValidateFormat(format); err != nil {
		return nil, err
	}

	opts := logging.Options{Level: "warn", Format: format, Output: errOut}
	switch {
	case cfg.Debug:
		opts.Level = "debug"
	case cfg.Quiet:
		opts.Level = "error"
	}

	closeLog := func() {}
	if path := cfg.Settings.LogFile; path != "" {
		f, err := logging.OpenFile(path)
		if err != nil {
			return nil, err
		}
		opts.Output = f
		if !cfg.Debug {
			opts.Level = "info"
		}
		closeLog = func() { f.Close() }
	}

	cfg.Logger = logging.New(opts)
	return closeLog, nil
}

func reportFlagError(errOut io.Writer, err error) {
	errStr := err.Error()

	// Check for missing flag value
	if strings.HasPrefix(errStr, "flag needs an argument:") {
		flagName := strings.TrimSpace(strings.TrimPrefix(errStr, "flag needs an argument:"))
		fmt.Fprintf(errOut, "error: flag needs an argument: %s\n", flagName)
		return
	}

	// Check for unknown flag
	if strings.HasPrefix(errStr, "flag provided but not defined:") {
		flagName := strings.TrimPrefix(errStr, "flag provided but not defined: ")
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", flagName)
		return
	}

	fmt.Fprintf(errOut, "error: %s\n", errStr)
}
