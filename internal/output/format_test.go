package output

import (
	"bytes"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/fatih/color"

	"srtask/internal/batch"
	"srtask/internal/schedule"
	"srtask/internal/service"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

var due = time.Date(2024, 3, 3, 23, 0, 0, 0, time.UTC)

func TestFormatDueDate(t *testing.T) {
	var buf bytes.Buffer
	FormatDueDate(&buf, schedule.DueDate{OffsetDays: 14, DueAt: due})
	if got, want := buf.String(), "2024-03-03 23:00  +14d\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatOutcome(t *testing.T) {
	tests := []struct {
		name    string
		outcome batch.Outcome
		want    string
	}{
		{
			name: "succeeded",
			outcome: batch.Outcome{OffsetDays: 2, DueAt: due, Status: batch.StatusSucceeded,
				Handle: service.TaskHandle{ID: "task-1"}},
			want: "  ok    2024-03-03 23:00  +2d   task-1\n",
		},
		{
			name: "failed",
			outcome: batch.Outcome{OffsetDays: 30, DueAt: due, Status: batch.StatusFailed,
				Kind: service.KindRateLimited, Err: errors.New("slow down")},
			want: "  FAIL  2024-03-03 23:00  +30d  rate_limited (transient, retry): slow down\n",
		},
		{
			name:    "skipped",
			outcome: batch.Outcome{OffsetDays: 90, DueAt: due, Status: batch.StatusSkipped},
			want:    "  skip  2024-03-03 23:00  +90d  cancelled\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			FormatOutcome(&buf, tt.outcome)
			if got := buf.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatSummary(t *testing.T) {
	r := batch.Result{Outcomes: []batch.Outcome{
		{Status: batch.StatusSucceeded},
		{Status: batch.StatusFailed},
		{Status: batch.StatusSkipped},
		{Status: batch.StatusSkipped},
	}}
	var buf bytes.Buffer
	FormatSummary(&buf, r)
	if got, want := buf.String(), "1 of 4 tasks created, 1 failed, 2 skipped\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	buf.Reset()
	FormatSummary(&buf, batch.Result{Outcomes: r.Outcomes[:1]})
	if got, want := buf.String(), "1 of 1 tasks created\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatReminderHeader(t *testing.T) {
	var buf bytes.Buffer
	FormatReminderHeader(&buf, batch.Result{
		Reminder: service.Reminder{Content: "Review\nchapter 3"},
		Backend:  "todoist",
	})
	if got, want := buf.String(), "Review chapter 3 [todoist]\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatProject(t *testing.T) {
	tests := []struct {
		project service.Project
		want    string
	}{
		{service.Project{Name: "Inbox", IsDefault: true}, "Inbox [default]\n"},
		{service.Project{Name: "Study"}, "Study\n"},
		{service.Project{Name: "  "}, "(untitled)\n"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		FormatProject(&buf, tt.project)
		if got := buf.String(); got != tt.want {
			t.Errorf("FormatProject(%+v) = %q, want %q", tt.project, got, tt.want)
		}
	}
}
