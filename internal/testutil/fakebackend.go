// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"srtask/internal/service"
)

// DateLayout is the key format of FakeBackend.DueErrs.
const DateLayout = "2006-01-02"

// FakeBackend is an in-memory implementation of service.Backend and
// service.ProjectResolver for testing.
type FakeBackend struct {
	mu       sync.Mutex
	name     string
	calls    []service.TaskRequest
	created  []service.TaskHandle
	projects []service.Project

	// Error injection for testing
	CallErrs        map[int]error    // 0-based call index -> error
	DueErrs         map[string]error // due date (DateLayout) -> error
	ListProjectsErr error

	// BeforeCreate runs at the start of every CreateTask call, after the
	// call is recorded. A non-nil return fails the call.
	BeforeCreate func(ctx context.Context, call int, req service.TaskRequest) error
}

// NewFakeBackend creates a FakeBackend with an "Inbox" default project.
func NewFakeBackend(name string) *FakeBackend {
	return &FakeBackend{
		name:     name,
		CallErrs: make(map[int]error),
		DueErrs:  make(map[string]error),
		projects: []service.Project{
			{ID: "inbox", Name: "Inbox", IsDefault: true},
		},
	}
}

// AddProject adds a project to the fake backend.
func (f *FakeBackend) AddProject(id, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.projects = append(f.projects, service.Project{ID: id, Name: name})
}

// Calls returns every request received, in call order.
func (f *FakeBackend) Calls() []service.TaskRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]service.TaskRequest(nil), f.calls...)
}

// Created returns the handles of successfully created tasks.
func (f *FakeBackend) Created() []service.TaskHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]service.TaskHandle(nil), f.created...)
}

// Name implements service.Backend.
func (f *FakeBackend) Name() string { return f.name }

// CreateTask implements service.Backend.
func (f *FakeBackend) CreateTask(ctx context.Context, req service.TaskRequest) (service.TaskHandle, error) {
	f.mu.Lock()
	call := len(f.calls)
	f.calls = append(f.calls, req)
	hook := f.BeforeCreate
	err := f.CallErrs[call]
	if err == nil {
		err = f.DueErrs[req.DueAt.Format(DateLayout)]
	}
	f.mu.Unlock()

	if hook != nil {
		if hookErr := hook(ctx, call, req); hookErr != nil {
			return service.TaskHandle{}, hookErr
		}
	}
	if err != nil {
		return service.TaskHandle{}, err
	}

	handle := service.TaskHandle{ID: fmt.Sprintf("task-%d", call+1), Backend: f.name}
	f.mu.Lock()
	f.created = append(f.created, handle)
	f.mu.Unlock()
	return handle, nil
}

// ListProjects implements service.ProjectResolver.
func (f *FakeBackend) ListProjects(ctx context.Context) ([]service.Project, error) {
	if f.ListProjectsErr != nil {
		return nil, f.ListProjectsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]service.Project(nil), f.projects...), nil
}

// ResolveProject implements service.ProjectResolver.
func (f *FakeBackend) ResolveProject(ctx context.Context, name string) (service.Project, error) {
	projects, err := f.ListProjects(ctx)
	if err != nil {
		return service.Project{}, err
	}
	return service.MatchProject(projects, name)
}

// Fail builds a classified creation error for injection.
func Fail(kind service.ErrorKind, backend string) error {
	return &service.CreationError{Kind: kind, Backend: backend, Err: fmt.Errorf("injected %s", kind)}
}
