// Package googletasks implements service.Backend using the Google Tasks API.
package googletasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"srtask/internal/service"
)

const (
	// Name is the backend identifier.
	Name = "googletasks"

	// DefaultListID is the special ID for the default list.
	DefaultListID = "@default"

	// APITimeout is the timeout for list lookups.
	APITimeout = 5 * time.Second

	// DueLayout is the wire format of Task.Due: RFC 3339 with an explicit
	// UTC marker and millisecond precision.
	DueLayout = "2006-01-02T15:04:05.000Z"
)

// Client implements service.Backend and service.ProjectResolver.
type Client struct {
	svc    *tasks.Service
	logger *slog.Logger
}

// New creates a Google Tasks client over an authenticated token source.
// The token source is the session: it is refreshed by the oauth2 package and
// never written by the client.
func New(ctx context.Context, ts oauth2.TokenSource, logger *slog.Logger) (*Client, error) {
	return NewWithHTTPClient(ctx, oauth2.NewClient(ctx, ts), logger)
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, logger *slog.Logger, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
	}
	return &Client{svc: svc, logger: logger.With("backend", Name)}, nil
}

// Name implements service.Backend.
func (c *Client) Name() string { return Name }

// CreateTask inserts one task. Google Tasks has no priority field, so a
// priority is dropped. The project is a task list ID.
func (c *Client) CreateTask(ctx context.Context, req service.TaskRequest) (service.TaskHandle, error) {
	listID := req.Project
	if listID == "" {
		listID = DefaultListID
	}
	if req.Priority.IsSet() {
		c.logger.Debug("priority not supported, dropped", "priority", req.Priority.String())
	}

	task := &tasks.Task{
		Title: req.Content,
		Notes: req.Note,
		Due:   FormatDue(req.DueAt),
	}

	created, err := c.svc.Tasks.Insert(listID, task).Context(ctx).Do()
	if err != nil {
		return service.TaskHandle{}, classify(err)
	}
	return service.TaskHandle{ID: created.Id, Backend: Name}, nil
}

// ListProjects returns all task lists in API order. The default list is
// reported with ID @default.
func (c *Client) ListProjects(ctx context.Context) ([]service.Project, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	// First, get the default list to know its real ID
	defaultList, err := c.svc.Tasklists.Get(DefaultListID).Context(ctx).Do()
	if err != nil {
		return nil, classify(err)
	}

	var result []service.Project
	err = c.svc.Tasklists.List().MaxResults(100).Pages(ctx, func(resp *tasks.TaskLists) error {
		for _, list := range resp.Items {
			isDefault := list.Id == defaultList.Id
			id := list.Id
			if isDefault {
				id = DefaultListID
			}
			result = append(result, service.Project{
				ID:        id,
				Name:      list.Title,
				IsDefault: isDefault,
			})
		}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	return result, nil
}

// ResolveProject finds a task list by name (case-insensitive, trimmed).
func (c *Client) ResolveProject(ctx context.Context, name string) (service.Project, error) {
	lists, err := c.ListProjects(ctx)
	if err != nil {
		return service.Project{}, err
	}
	return service.MatchProject(lists, name)
}

// FormatDue serialises a due time. The wall clock is kept and labelled UTC:
// Google Tasks only stores the date part, and converting to UTC first would
// move late-evening reminders to the next or previous day.
func FormatDue(t time.Time) string {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC).Format(DueLayout)
}

// ParseDue reverses FormatDue, placing the wall clock in loc.
func ParseDue(s string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due: %w", err)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
}

// classify turns API errors into *service.CreationError.
func classify(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		ce := service.NewCreationError(Name, gerr.Code, err)
		ce.RetryAfter = service.ParseRetryAfter(gerr.Header.Get("Retry-After"), time.Now())
		return ce
	}

	// Token refresh failures surface from the oauth2 transport
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return &service.CreationError{Kind: service.KindAuthExpired, Backend: Name, Err: err}
	}

	return service.NewCreationError(Name, 0, err)
}
