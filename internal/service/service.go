// Package service defines the backend-agnostic interface for task creation.
package service

import "context"

// Backend defines the interface every task-tracking service implements.
// Commands and the batch creator never import a service SDK directly.
type Backend interface {
	// Name returns the backend identifier ("googletasks", "habitica", "todoist").
	Name() string

	// CreateTask creates exactly one remote task.
	// It is single-shot: no internal retry is attempted, because none of the
	// supported services deduplicate task creation.
	// Failures are returned as *CreationError.
	CreateTask(ctx context.Context, req TaskRequest) (TaskHandle, error)
}

// ProjectResolver is implemented by backends that can target more than one
// list, project or tag.
type ProjectResolver interface {
	// ListProjects returns all targets in API order.
	ListProjects(ctx context.Context) ([]Project, error)

	// ResolveProject finds a target by name (case-insensitive, trimmed).
	// Returns ErrProjectNotFound or ErrProjectAmbiguous.
	ResolveProject(ctx context.Context, name string) (Project, error)
}
