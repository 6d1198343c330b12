package batch_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"srtask/internal/batch"
	"srtask/internal/schedule"
	"srtask/internal/service"
	"srtask/internal/testutil"
)

var base = time.Date(2024, 1, 31, 9, 30, 0, 0, time.UTC)

func defaultSchedule(t *testing.T) schedule.Schedule {
	t.Helper()
	sched, err := schedule.Generate(base, schedule.DefaultOffsets, schedule.DefaultTimeOfDay)
	require.NoError(t, err)
	return sched
}

func dueKey(t *testing.T, offset int) string {
	t.Helper()
	return base.AddDate(0, 0, offset).Format(testutil.DateLayout)
}

func TestCreate_AllSucceed(t *testing.T) {
	backend := testutil.NewFakeBackend("fake")
	reminder := service.Reminder{Content: "Review graphs", Note: "ch. 4", Priority: service.PriorityHigh, Project: "study"}

	result := batch.New().Create(context.Background(), backend, reminder, defaultSchedule(t))

	assert.Equal(t, 5, result.Succeeded())
	assert.Equal(t, 0, result.Failed())
	assert.True(t, result.OK())
	assert.Equal(t, "fake", result.Backend)

	calls := backend.Calls()
	require.Len(t, calls, 5)
	for i, call := range calls {
		assert.Equal(t, "Review graphs", call.Content)
		assert.Equal(t, "ch. 4", call.Note)
		assert.Equal(t, service.PriorityHigh, call.Priority)
		assert.Equal(t, "study", call.Project)
		assert.Equal(t, result.Outcomes[i].DueAt, call.DueAt)
		assert.Equal(t, schedule.DefaultOffsets[i], result.Outcomes[i].OffsetDays)
	}
	assert.Equal(t, "task-1", result.Outcomes[0].Handle.ID)
}

func TestCreate_FailuresAreIndependent(t *testing.T) {
	backend := testutil.NewFakeBackend("fake")
	backend.DueErrs[dueKey(t, 2)] = testutil.Fail(service.KindTransportFailure, "fake")
	backend.DueErrs[dueKey(t, 30)] = testutil.Fail(service.KindValidationRejected, "fake")

	result := batch.New().Create(context.Background(), backend, service.Reminder{Content: "x"}, defaultSchedule(t))

	assert.Equal(t, 3, result.Succeeded())
	assert.Equal(t, 2, result.Failed())
	assert.Len(t, backend.Calls(), 5)

	wantStatus := []batch.Status{
		batch.StatusFailed, batch.StatusSucceeded, batch.StatusSucceeded,
		batch.StatusFailed, batch.StatusSucceeded,
	}
	for i, o := range result.Outcomes {
		assert.Equal(t, wantStatus[i], o.Status, "slot %d", i)
		assert.Equal(t, schedule.DefaultOffsets[i], o.OffsetDays)
	}
	assert.Equal(t, service.KindTransportFailure, result.Outcomes[0].Kind)
	assert.Equal(t, service.KindValidationRejected, result.Outcomes[3].Kind)
	assert.Equal(t, map[service.ErrorKind]int{
		service.KindTransportFailure:   1,
		service.KindValidationRejected: 1,
	}, result.FailedByKind())
}

func TestCreate_AuthExpiredDoesNotAbort(t *testing.T) {
	backend := testutil.NewFakeBackend("fake")
	backend.CallErrs[0] = testutil.Fail(service.KindAuthExpired, "fake")

	result := batch.New().Create(context.Background(), backend, service.Reminder{Content: "x"}, defaultSchedule(t))

	assert.Equal(t, batch.StatusFailed, result.Outcomes[0].Status)
	assert.Equal(t, service.KindAuthExpired, result.Outcomes[0].Kind)
	assert.Equal(t, 4, result.Succeeded())
	assert.Len(t, backend.Calls(), 5)
}

func TestCreate_TimeoutIsTransportFailure(t *testing.T) {
	backend := testutil.NewFakeBackend("fake")
	backend.BeforeCreate = func(ctx context.Context, call int, req service.TaskRequest) error {
		if call != 1 {
			return nil
		}
		<-ctx.Done()
		return ctx.Err()
	}

	creator := batch.New(batch.WithTimeout(20 * time.Millisecond))
	result := creator.Create(context.Background(), backend, service.Reminder{Content: "x"}, defaultSchedule(t))

	assert.Equal(t, batch.StatusFailed, result.Outcomes[1].Status)
	assert.Equal(t, service.KindTransportFailure, result.Outcomes[1].Kind)
	assert.Equal(t, 4, result.Succeeded())
}

func TestCreate_TimeoutWithUnclassifiedError(t *testing.T) {
	backend := testutil.NewFakeBackend("fake")
	backend.BeforeCreate = func(ctx context.Context, call int, req service.TaskRequest) error {
		<-ctx.Done()
		return assert.AnError
	}

	creator := batch.New(batch.WithTimeout(time.Millisecond))
	result := creator.Create(context.Background(), backend, service.Reminder{Content: "x"}, defaultSchedule(t)[:1])

	assert.Equal(t, service.KindTransportFailure, result.Outcomes[0].Kind)
}

func TestCreate_CancelStopsIssuing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend := testutil.NewFakeBackend("fake")
	backend.BeforeCreate = func(_ context.Context, call int, _ service.TaskRequest) error {
		if call == 1 {
			cancel()
		}
		return nil
	}

	result := batch.New().Create(ctx, backend, service.Reminder{Content: "x"}, defaultSchedule(t))

	assert.Len(t, backend.Calls(), 2)
	assert.Equal(t, 2, result.Succeeded())
	assert.Equal(t, 3, result.Skipped())
	assert.Equal(t, 0, result.Failed())
	for _, o := range result.Outcomes[2:] {
		assert.Equal(t, batch.StatusSkipped, o.Status)
		assert.ErrorIs(t, o.Err, context.Canceled)
	}
}

func TestCreate_EmptyContentIsRejectedLocally(t *testing.T) {
	backend := testutil.NewFakeBackend("fake")

	result := batch.New().Create(context.Background(), backend, service.Reminder{Content: "  "}, defaultSchedule(t))

	assert.Empty(t, backend.Calls())
	assert.Equal(t, 5, result.Failed())
	for _, o := range result.Outcomes {
		assert.Equal(t, service.KindValidationRejected, o.Kind)
		assert.ErrorIs(t, o.Err, service.ErrEmptyContent)
	}
}

func TestCreate_LogsOneRecordPerOutcome(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	backend := testutil.NewFakeBackend("fake")
	backend.CallErrs[2] = testutil.Fail(service.KindRateLimited, "fake")

	batch.New(batch.WithLogger(logger)).Create(context.Background(), backend, service.Reminder{Content: "x"}, defaultSchedule(t))

	var msgs []string
	var failedKind string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		msg := rec["msg"].(string)
		msgs = append(msgs, msg)
		if msg == "task failed" {
			failedKind, _ = rec["kind"].(string)
		}
	}
	assert.Equal(t, []string{
		"reminder scheduled",
		"task created", "task created", "task failed", "task created", "task created",
	}, msgs)
	assert.Equal(t, "rate_limited", failedKind)
}

func TestCreate_LimiterPacesCalls(t *testing.T) {
	backend := testutil.NewFakeBackend("fake")
	limiter := rate.NewLimiter(rate.Every(10*time.Millisecond), 1)

	start := time.Now()
	result := batch.New(batch.WithLimiter(limiter)).Create(context.Background(), backend, service.Reminder{Content: "x"}, defaultSchedule(t))

	assert.True(t, result.OK())
	assert.GreaterOrEqual(t, time.Since(start), 35*time.Millisecond)
}

func TestCreateAll_PreservesOrder(t *testing.T) {
	backend := testutil.NewFakeBackend("fake")
	var inFlight, maxInFlight atomic.Int32
	backend.BeforeCreate = func(context.Context, int, service.TaskRequest) error {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)
		return nil
	}

	reminders := []service.Reminder{{Content: "a"}, {Content: "b"}, {Content: "c"}, {Content: "d"}}
	creator := batch.New(batch.WithConcurrency(2))
	results := creator.CreateAll(context.Background(), backend, reminders, defaultSchedule(t))

	require.Len(t, results, 4)
	for i, r := range results {
		assert.Equal(t, reminders[i].Content, r.Reminder.Content)
		assert.True(t, r.OK())
		for j, o := range r.Outcomes {
			assert.Equal(t, schedule.DefaultOffsets[j], o.OffsetDays)
		}
	}
	assert.Len(t, backend.Calls(), 20)
	assert.LessOrEqual(t, maxInFlight.Load(), int32(2))
}
