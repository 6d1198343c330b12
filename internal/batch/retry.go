package batch

import (
	"context"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"srtask/internal/service"
)

// RetryPolicy controls Retry. The zero value performs no retries.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy returns the policy used by the CLI when --retries is set.
func DefaultRetryPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries:      maxRetries,
		InitialInterval: 2 * time.Second,
		MaxInterval:     30 * time.Second,
	}
}

func (p RetryPolicy) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithMaxRetries(b, uint64(p.MaxRetries))
}

// Retry re-invokes Create for the rate-limited and transport-failed slots of
// prev until they succeed, the policy is exhausted or ctx is done. Other
// outcomes are kept as they are. The returned Result keeps prev's order.
//
// Task creation is not idempotent: a transport failure may hide a task the
// service already stored, so retrying can create duplicates.
func (c *Creator) Retry(ctx context.Context, backend service.Backend, prev Result, policy RetryPolicy) Result {
	result := Result{
		Reminder: prev.Reminder,
		Backend:  prev.Backend,
		Outcomes: append([]Outcome(nil), prev.Outcomes...),
	}
	if policy.MaxRetries <= 0 {
		return result
	}

	b := policy.backOff()
	for {
		idx, pending := result.Retryable()
		if len(pending) == 0 {
			return result
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return result
		}
		if ra := maxRetryAfter(result, idx); ra > wait {
			wait = ra
		}

		c.logger.Info("retrying failed tasks", "backend", backend.Name(),
			"content", prev.Reminder.Content, "tasks", len(pending), "wait", wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return result
		case <-timer.C:
		}

		retried := c.Create(ctx, backend, prev.Reminder, pending)
		merge(&result, idx, retried)
	}
}

func maxRetryAfter(r Result, idx []int) time.Duration {
	var longest time.Duration
	for _, i := range idx {
		if ra := service.RetryAfter(r.Outcomes[i].Err); ra > longest {
			longest = ra
		}
	}
	return longest
}

// merge writes retried outcomes back into their original slots. Skipped
// retries leave the previous failure in place.
func merge(r *Result, idx []int, retried Result) {
	for j, out := range retried.Outcomes {
		if out.Status == StatusSkipped {
			continue
		}
		r.Outcomes[idx[j]] = out
	}
}
