package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Priority is the reminder priority on a 1-4 scale.
// The zero value means no priority was given; each backend picks its own default.
type Priority int

const (
	PriorityNone Priority = iota
	PriorityLow
	PriorityMedium
	PriorityHigh
	PriorityUrgent
)

var priorityNames = map[Priority]string{
	PriorityNone:   "none",
	PriorityLow:    "low",
	PriorityMedium: "medium",
	PriorityHigh:   "high",
	PriorityUrgent: "urgent",
}

func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// IsSet reports whether p is one of Low..Urgent.
func (p Priority) IsSet() bool {
	return p >= PriorityLow && p <= PriorityUrgent
}

// ParsePriority accepts "1".."4" or "low", "medium", "high", "urgent".
// An empty string yields PriorityNone.
func ParsePriority(s string) (Priority, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PriorityNone, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		p := Priority(n)
		if !p.IsSet() {
			return PriorityNone, fmt.Errorf("invalid priority: %s (want 1-4)", s)
		}
		return p, nil
	}
	for p, name := range priorityNames {
		if name == s && p.IsSet() {
			return p, nil
		}
	}
	return PriorityNone, fmt.Errorf("invalid priority: %s", s)
}

// Reminder is one user intent to be expanded into dated tasks.
type Reminder struct {
	Content  string
	Note     string
	Priority Priority
	// Project is a backend-specific identifier, already resolved.
	Project string
}

// Validate checks the only constraint the core enforces locally.
func (r Reminder) Validate() error {
	if strings.TrimSpace(r.Content) == "" {
		return ErrEmptyContent
	}
	return nil
}

// Request builds the TaskRequest for one due date.
func (r Reminder) Request(dueAt time.Time) TaskRequest {
	return TaskRequest{
		Content:  r.Content,
		DueAt:    dueAt,
		Note:     r.Note,
		Priority: r.Priority,
		Project:  r.Project,
	}
}

// TaskRequest is the input to Backend.CreateTask.
type TaskRequest struct {
	Content  string
	DueAt    time.Time
	Note     string
	Priority Priority
	Project  string // empty selects the backend default
}

// TaskHandle identifies a created remote task.
type TaskHandle struct {
	ID      string
	Backend string
}

// Project is a list, project or tag a task can be created in.
type Project struct {
	ID        string
	Name      string
	IsDefault bool
}
