// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"srtask/internal/batch"
	"srtask/internal/schedule"
	"srtask/internal/service"
)

// DueLayout is how due dates are shown.
const DueLayout = "2006-01-02 15:04"

var (
	okMark   = color.New(color.FgGreen).SprintFunc()
	failMark = color.New(color.FgRed, color.Bold).SprintFunc()
	skipMark = color.New(color.FgYellow).SprintFunc()
	dim      = color.New(color.Faint).SprintFunc()
)

// FormatDueDate formats one scheduled date for the schedule command.
// Format: "{DATE}  +{N}d\n"
func FormatDueDate(w io.Writer, d schedule.DueDate) {
	fmt.Fprintf(w, "%s  +%dd\n", d.DueAt.Format(DueLayout), d.OffsetDays)
}

// FormatReminderHeader formats the line introducing a reminder's outcomes.
func FormatReminderHeader(w io.Writer, r batch.Result) {
	fmt.Fprintf(w, "%s %s\n", normalizeContent(r.Reminder.Content), dim("["+r.Backend+"]"))
}

// FormatOutcome formats one slot of a batch.
// Format: "  {MARK}  {DATE}  +{N}d  {DETAIL}\n"
func FormatOutcome(w io.Writer, o batch.Outcome) {
	var mark, detail string
	switch o.Status {
	case batch.StatusSucceeded:
		mark = okMark("ok  ")
		detail = o.Handle.ID
	case batch.StatusFailed:
		mark = failMark("FAIL")
		detail = fmt.Sprintf("%s (%s): %v", o.Kind, o.Kind.Hint(), o.Err)
	default:
		mark = skipMark("skip")
		detail = "cancelled"
	}
	offset := fmt.Sprintf("+%dd", o.OffsetDays)
	fmt.Fprintf(w, "  %s  %s  %-4s  %s\n", mark, o.DueAt.Format(DueLayout), offset, detail)
}

// FormatSummary formats the closing line for a reminder.
// Format: "{S} of {N} tasks created[, {F} failed][, {K} skipped]\n"
func FormatSummary(w io.Writer, r batch.Result) {
	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d tasks created", r.Succeeded(), len(r.Outcomes))
	if n := r.Failed(); n > 0 {
		fmt.Fprintf(&b, ", %d failed", n)
	}
	if n := r.Skipped(); n > 0 {
		fmt.Fprintf(&b, ", %d skipped", n)
	}
	fmt.Fprintln(w, b.String())
}

// FormatResult formats a reminder header, its outcomes and the summary.
func FormatResult(w io.Writer, r batch.Result) {
	FormatReminderHeader(w, r)
	for _, o := range r.Outcomes {
		FormatOutcome(w, o)
	}
	FormatSummary(w, r)
}

// FormatProject formats a project name for the projects command.
func FormatProject(w io.Writer, p service.Project) {
	name := normalizeContent(p.Name)
	if p.IsDefault {
		name += " [default]"
	}
	fmt.Fprintln(w, name)
}

// normalizeContent normalizes a title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeContent(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	if strings.TrimSpace(s) == "" {
		return "(untitled)"
	}
	return s
}
