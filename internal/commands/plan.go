package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"golang.org/x/time/rate"

	"srtask/internal/batch"
	"srtask/internal/config"
	"srtask/internal/exitcode"
	"srtask/internal/output"
	"srtask/internal/schedule"
	"srtask/internal/service"
)

// FromLayout is the format of the --from flag.
const FromLayout = "2006-01-02"

// Now returns the base time for schedules. Replaced in tests.
var Now = time.Now

// planFlags select the due dates. Unset flags fall back to config.yaml.
type planFlags struct {
	offsets string
	at      string
	from    string
}

func (p *planFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&p.offsets, "offsets", "", "")
	fs.StringVar(&p.at, "at", "", "")
	fs.StringVar(&p.from, "from", "", "")
}

// schedule builds the due dates from the flags and settings.
func (p *planFlags) schedule(cfg *config.Config) (schedule.Schedule, error) {
	offsets := cfg.Settings.Offsets
	if p.offsets != "" {
		parsed, err := schedule.ParseOffsets(p.offsets)
		if err != nil {
			return nil, err
		}
		offsets = parsed
	}
	if len(offsets) == 0 {
		offsets = schedule.DefaultOffsets
	}

	at := schedule.DefaultTimeOfDay
	timeOfDay := cfg.Settings.TimeOfDay
	if p.at != "" {
		timeOfDay = p.at
	}
	if timeOfDay != "" {
		parsed, err := schedule.ParseTimeOfDay(timeOfDay)
		if err != nil {
			return nil, err
		}
		at = parsed
	}

	base := Now()
	if p.from != "" {
		from, err := time.ParseInLocation(FromLayout, p.from, base.Location())
		if err != nil {
			return nil, fmt.Errorf("invalid --from date %q (want YYYY-MM-DD)", p.from)
		}
		base = from
	}

	return schedule.Generate(base, offsets, at)
}

// runFlags tune how the batch is issued.
type runFlags struct {
	retries int
	timeout time.Duration
}

func (r *runFlags) register(fs *flag.FlagSet) {
	fs.IntVar(&r.retries, "retries", 0, "")
	fs.DurationVar(&r.timeout, "timeout", 0, "")
}

// newCreator builds a batch creator paced by requests_per_second.
func newCreator(cfg *config.Config, timeout time.Duration) *batch.Creator {
	if timeout <= 0 {
		timeout = cfg.Settings.Timeout
	}
	opts := []batch.Option{
		batch.WithLogger(cfg.Log()),
		batch.WithTimeout(timeout),
		batch.WithConcurrency(cfg.Settings.Concurrency),
	}
	if rps := cfg.Settings.RequestsPerSecond; rps > 0 {
		opts = append(opts, batch.WithLimiter(rate.NewLimiter(rate.Limit(rps), 1)))
	}
	return batch.New(opts...)
}

// resolveProject maps a project name to the backend's ID. Backends without
// a project lookup receive the name unchanged. Returns a non-zero exit code
// after reporting the error.
func resolveProject(ctx context.Context, b service.Backend, name string, errOut io.Writer) (string, int) {
	if name == "" {
		return "", exitcode.Success
	}
	resolver, ok := b.(service.ProjectResolver)
	if !ok {
		return name, exitcode.Success
	}

	project, err := resolver.ResolveProject(ctx, name)
	switch {
	case err == nil:
		return project.ID, exitcode.Success
	case errors.Is(err, service.ErrProjectNotFound):
		fmt.Fprintf(errOut, "error: project not found: %s\n", name)
		return "", exitcode.UserError
	case errors.Is(err, service.ErrProjectAmbiguous):
		fmt.Fprintf(errOut, "error: ambiguous project name: %s\n", name)
		return "", exitcode.UserError
	}
	return "", reportBackendError(errOut, err)
}

// reportBackendError prints err and returns AuthError for an expired
// session, BackendError otherwise.
func reportBackendError(errOut io.Writer, err error) int {
	if service.KindOf(err) == service.KindAuthExpired {
		fmt.Fprintf(errOut, "error: auth error: %v\n", err)
		return exitcode.AuthError
	}
	fmt.Fprintf(errOut, "error: backend error: %v\n", err)
	return exitcode.BackendError
}

// retryFailed retries the retryable slots of every result that is not OK.
func retryFailed(ctx context.Context, creator *batch.Creator, b service.Backend, results []batch.Result, policy batch.RetryPolicy) {
	if policy.MaxRetries <= 0 {
		return
	}
	for i, r := range results {
		if r.OK() || ctx.Err() != nil {
			continue
		}
		results[i] = creator.Retry(ctx, b, r, policy)
	}
}

// report prints each result. In quiet mode only failing results are
// printed, to errOut.
func report(cfg *config.Config, out, errOut io.Writer, results []batch.Result) {
	for _, r := range results {
		switch {
		case !cfg.Quiet:
			output.FormatResult(out, r)
		case !r.OK():
			output.FormatResult(errOut, r)
		}
	}
}

// exitCodeFor summarizes results: Success when every task was created,
// AuthError when the session expired, BackendError when nothing was created
// and PartialFailure otherwise.
func exitCodeFor(results []batch.Result) int {
	var succeeded, total int
	authExpired := false
	for _, r := range results {
		succeeded += r.Succeeded()
		total += len(r.Outcomes)
		if r.FailedByKind()[service.KindAuthExpired] > 0 {
			authExpired = true
		}
	}

	switch {
	case succeeded == total:
		return exitcode.Success
	case authExpired:
		return exitcode.AuthError
	case succeeded == 0:
		return exitcode.BackendError
	}
	return exitcode.PartialFailure
}
