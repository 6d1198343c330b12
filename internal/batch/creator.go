// Package batch creates one remote task per due date of a reminder and
// collects the per-call outcomes.
package batch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"srtask/internal/schedule"
	"srtask/internal/service"
)

const (
	// DefaultTimeout bounds a single CreateTask call.
	DefaultTimeout = 10 * time.Second

	// DefaultConcurrency is the number of reminders CreateAll runs at once.
	DefaultConcurrency = 2
)

// Creator issues the backend calls for reminder batches.
// A Creator is safe for concurrent use.
type Creator struct {
	logger      *slog.Logger
	timeout     time.Duration
	limiter     *rate.Limiter
	concurrency int
}

// Option configures a Creator.
type Option func(*Creator)

// WithLogger sets the structured logger that receives one record per outcome.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Creator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTimeout bounds each CreateTask call. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Creator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLimiter paces calls to the backend. The limiter is shared by every
// batch the Creator runs.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Creator) {
		c.limiter = l
	}
}

// WithConcurrency sets how many reminders CreateAll processes in parallel.
func WithConcurrency(n int) Option {
	return func(c *Creator) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// New creates a Creator.
func New(opts ...Option) *Creator {
	c := &Creator{
		logger:      slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)})),
		timeout:     DefaultTimeout,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create calls backend.CreateTask once per due date, sequentially and in
// schedule order. A failed call never stops the remaining ones. Once ctx is
// done, the slots not yet issued are recorded as skipped; tasks already
// created are left in place.
func (c *Creator) Create(ctx context.Context, backend service.Backend, reminder service.Reminder, sched schedule.Schedule) Result {
	logger := c.logger.With("backend", backend.Name(), "content", reminder.Content)
	result := Result{
		Reminder: reminder,
		Backend:  backend.Name(),
		Outcomes: make([]Outcome, len(sched)),
	}

	logger.Info("reminder scheduled", "tasks", len(sched), "due_dates", sched.Times())

	invalid := reminder.Validate()
	for i, due := range sched {
		out := Outcome{OffsetDays: due.OffsetDays, DueAt: due.DueAt}

		switch {
		case invalid != nil:
			out.Status = StatusFailed
			out.Kind = service.KindValidationRejected
			out.Err = invalid
		case ctx.Err() != nil:
			out.Status = StatusSkipped
			out.Err = ctx.Err()
		default:
			out = c.createOne(ctx, backend, reminder, due)
		}

		result.Outcomes[i] = out
		logOutcome(logger, out)
	}

	return result
}

func (c *Creator) createOne(ctx context.Context, backend service.Backend, reminder service.Reminder, due schedule.DueDate) Outcome {
	out := Outcome{OffsetDays: due.OffsetDays, DueAt: due.DueAt}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			out.Status = StatusSkipped
			out.Err = err
			return out
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	handle, err := backend.CreateTask(callCtx, reminder.Request(due.DueAt))
	if err != nil {
		out.Status = StatusFailed
		out.Err = err
		out.Kind = service.KindOf(err)
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			out.Kind = service.KindTransportFailure
		}
		return out
	}

	out.Status = StatusSucceeded
	out.Handle = handle
	return out
}

func logOutcome(logger *slog.Logger, out Outcome) {
	attrs := []any{
		"offset_days", out.OffsetDays,
		"due_at", out.DueAt,
	}
	switch out.Status {
	case StatusSucceeded:
		logger.Info("task created", append(attrs, "task_id", out.Handle.ID)...)
	case StatusFailed:
		logger.Error("task failed", append(attrs, "kind", out.Kind.String(), "error", out.Err)...)
	default:
		logger.Warn("task skipped", append(attrs, "error", out.Err)...)
	}
}

// CreateAll runs Create for every reminder, processing up to the configured
// number of reminders concurrently. Results are returned in input order.
func (c *Creator) CreateAll(ctx context.Context, backend service.Backend, reminders []service.Reminder, sched schedule.Schedule) []Result {
	results := make([]Result, len(reminders))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, reminder := range reminders {
		i, reminder := i, reminder // per-iteration copy (go1.21 loop semantics)
		g.Go(func() error {
			results[i] = c.Create(ctx, backend, reminder, sched)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	return results
}
