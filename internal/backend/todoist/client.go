// Package todoist implements service.Backend using the Todoist API v1.
package todoist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"srtask/internal/backend/rest"
	"srtask/internal/service"
)

const (
	// Name is the backend identifier.
	Name = "todoist"

	// DefaultBaseURL is the Todoist API root.
	DefaultBaseURL = "https://api.todoist.com/api/v1"

	// DueLayout is the natural-language due string, parsed with DueLang.
	DueLayout = "2006-01-02 at 15:04"

	// DueLang is the language tag sent with every due string.
	DueLang = "en"

	// APITimeout is the timeout for project lookups.
	APITimeout = 5 * time.Second

	maxProjectPages = 20
)

// Client implements service.Backend and service.ProjectResolver.
type Client struct {
	api    *rest.Client
	logger *slog.Logger
	newID  func() string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root (for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) { c.api.BaseURL = url }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.api.HTTP = hc }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger.With("backend", Name)
		}
	}
}

// New creates a Todoist client authenticated with an API token.
func New(token string, opts ...Option) *Client {
	c := &Client{
		api: &rest.Client{
			Backend: Name,
			BaseURL: DefaultBaseURL,
			HTTP:    http.DefaultClient,
			Header:  http.Header{"Authorization": {"Bearer " + token}},
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)})),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements service.Backend.
func (c *Client) Name() string { return Name }

// CreateTask adds one task. Every call carries a fresh X-Request-Id.
// Without a priority the field is omitted and Todoist applies its default.
func (c *Client) CreateTask(ctx context.Context, req service.TaskRequest) (service.TaskHandle, error) {
	body := createTaskRequest{
		Content:     req.Content,
		Description: req.Note,
		ProjectID:   req.Project,
		DueString:   FormatDueString(req.DueAt),
		DueLang:     DueLang,
	}
	if req.Priority.IsSet() {
		body.Priority = int(req.Priority)
	}

	requestID := c.newID()
	header := http.Header{"X-Request-Id": {requestID}}

	var task taskResponse
	if err := c.api.Do(ctx, http.MethodPost, "/tasks", header, body, &task, errorMessage); err != nil {
		c.logger.Debug("create failed", "request_id", requestID, "error", err)
		return service.TaskHandle{}, err
	}
	return service.TaskHandle{ID: task.ID, Backend: Name}, nil
}

// ListProjects returns all projects, following pagination cursors.
func (c *Client) ListProjects(ctx context.Context) ([]service.Project, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	var (
		projects []service.Project
		cursor   string
	)
	for page := 0; page < maxProjectPages; page++ {
		path := "/projects"
		if cursor != "" {
			path += "?cursor=" + url.QueryEscape(cursor)
		}

		var resp projectsPage
		if err := c.api.Do(ctx, http.MethodGet, path, nil, nil, &resp, errorMessage); err != nil {
			return nil, err
		}
		for _, p := range resp.Results {
			projects = append(projects, service.Project{
				ID:        p.ID,
				Name:      p.Name,
				IsDefault: p.InboxProject,
			})
		}
		if resp.NextCursor == nil || *resp.NextCursor == "" {
			return projects, nil
		}
		cursor = *resp.NextCursor
	}
	return projects, nil
}

// ResolveProject finds a project by name (case-insensitive, trimmed).
func (c *Client) ResolveProject(ctx context.Context, name string) (service.Project, error) {
	projects, err := c.ListProjects(ctx)
	if err != nil {
		return service.Project{}, err
	}
	return service.MatchProject(projects, name)
}

// FormatDueString renders t as "YYYY-MM-DD at HH:MM" in its own location.
func FormatDueString(t time.Time) string {
	return t.Format(DueLayout)
}

// ParseDueString reverses FormatDueString, placing the wall clock in loc.
func ParseDueString(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DueLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due string: %w", err)
	}
	return t, nil
}

// PriorityFromWire converts Todoist's 1-4 priority; 0 means absent.
func PriorityFromWire(n int) (service.Priority, error) {
	if n == 0 {
		return service.PriorityNone, nil
	}
	p := service.Priority(n)
	if !p.IsSet() {
		return service.PriorityNone, fmt.Errorf("invalid todoist priority: %d", n)
	}
	return p, nil
}

func errorMessage(data []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		return body.Error
	}
	msg := strings.TrimSpace(string(data))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

type createTaskRequest struct {
	Content     string `json:"content"`
	Description string `json:"description,omitempty"`
	ProjectID   string `json:"project_id,omitempty"`
	DueString   string `json:"due_string,omitempty"`
	DueLang     string `json:"due_lang,omitempty"`
	Priority    int    `json:"priority,omitempty"`
}

type taskResponse struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	ProjectID string `json:"project_id"`
	Priority  int    `json:"priority"`
}

type projectsPage struct {
	Results    []projectData `json:"results"`
	NextCursor *string       `json:"next_cursor"`
}

type projectData struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	InboxProject bool   `json:"inbox_project"`
}
