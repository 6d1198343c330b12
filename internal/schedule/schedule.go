// Package schedule expands a base timestamp into spaced-repetition due dates.
package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultOffsets is the cadence used when the caller does not supply one.
var DefaultOffsets = []int{2, 7, 14, 30, 90}

// DefaultTimeOfDay pins every due date to 23:00.
var DefaultTimeOfDay = TimeOfDay{Hour: 23, Minute: 0}

var (
	ErrNoOffsets        = errors.New("at least one offset required")
	ErrNegativeOffset   = errors.New("offset must not be negative")
	ErrInvalidTimeOfDay = errors.New("invalid time of day")
)

// TimeOfDay is the wall-clock time every due date is pinned to.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Validate checks hour and minute ranges.
func (t TimeOfDay) Validate() error {
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return fmt.Errorf("%w: %02d:%02d", ErrInvalidTimeOfDay, t.Hour, t.Minute)
	}
	return nil
}

// DueDate is one checkpoint of a schedule.
type DueDate struct {
	OffsetDays int
	DueAt      time.Time
}

// Schedule is the ordered set of due dates for one reminder.
type Schedule []DueDate

// Times returns the due timestamps in schedule order.
func (s Schedule) Times() []time.Time {
	out := make([]time.Time, len(s))
	for i, d := range s {
		out[i] = d.DueAt
	}
	return out
}

// Generate returns one due date per offset, in the order the offsets are
// given. Each due date is the calendar day of base plus the offset, at the
// given time of day with seconds zeroed, in base's location.
// Month and leap-year roll-over follow time.Date normalisation.
func Generate(base time.Time, offsets []int, at TimeOfDay) (Schedule, error) {
	if len(offsets) == 0 {
		return nil, ErrNoOffsets
	}
	if err := at.Validate(); err != nil {
		return nil, err
	}

	year, month, day := base.Date()
	loc := base.Location()

	out := make(Schedule, len(offsets))
	for i, offset := range offsets {
		if offset < 0 {
			return nil, fmt.Errorf("%w: %d", ErrNegativeOffset, offset)
		}
		out[i] = DueDate{
			OffsetDays: offset,
			DueAt:      time.Date(year, month, day+offset, at.Hour, at.Minute, 0, 0, loc),
		}
	}
	return out, nil
}

// ParseOffsets parses a comma-separated list such as "2,7,14,30,90".
func ParseOffsets(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrNoOffsets
	}

	parts := strings.Split(s, ",")
	offsets := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid offset: %q", part)
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: %d", ErrNegativeOffset, n)
		}
		offsets = append(offsets, n)
	}
	return offsets, nil
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}
