package batch

import (
	"time"

	"srtask/internal/schedule"
	"srtask/internal/service"
)

// Status is the state of one due-date slot after a batch run.
type Status int

const (
	StatusSucceeded Status = iota
	StatusFailed
	// StatusSkipped means the batch was cancelled before the call was issued.
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// Outcome is the result of creating the task for one due date.
type Outcome struct {
	OffsetDays int
	DueAt      time.Time
	Status     Status
	Handle     service.TaskHandle // set on success
	Kind       service.ErrorKind  // set on failure
	Err        error
}

// Result aggregates the outcomes for one reminder, in schedule order.
type Result struct {
	Reminder service.Reminder
	Backend  string
	Outcomes []Outcome
}

func (r Result) count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// Succeeded returns the number of tasks the backend accepted.
func (r Result) Succeeded() int { return r.count(StatusSucceeded) }

// Failed returns the number of calls that returned an error.
func (r Result) Failed() int { return r.count(StatusFailed) }

// Skipped returns the number of slots never attempted because of cancellation.
func (r Result) Skipped() int { return r.count(StatusSkipped) }

// OK reports whether every slot succeeded.
func (r Result) OK() bool {
	return r.Succeeded() == len(r.Outcomes)
}

// FailedByKind counts failures per classification.
func (r Result) FailedByKind() map[service.ErrorKind]int {
	counts := make(map[service.ErrorKind]int)
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			counts[o.Kind]++
		}
	}
	return counts
}

// Retryable returns the slots whose failure kind may succeed when repeated,
// as indexes into Outcomes and as a schedule ready to pass to Create.
func (r Result) Retryable() ([]int, schedule.Schedule) {
	var (
		idx   []int
		sched schedule.Schedule
	)
	for i, o := range r.Outcomes {
		if o.Status == StatusFailed && o.Kind.Retryable() {
			idx = append(idx, i)
			sched = append(sched, schedule.DueDate{OffsetDays: o.OffsetDays, DueAt: o.DueAt})
		}
	}
	return idx, sched
}
