// Package habitica implements service.Backend using the Habitica v3 API.
package habitica

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"srtask/internal/backend/rest"
	"srtask/internal/service"
)

const (
	// Name is the backend identifier.
	Name = "habitica"

	// DefaultBaseURL is the Habitica API root.
	DefaultBaseURL = "https://habitica.com/api/v3"

	// DateLayout is the wire format of a todo's date.
	DateLayout = "2006-01-02"

	// APITimeout is the timeout for tag lookups.
	APITimeout = 5 * time.Second

	appName = "srtask"
)

// Credentials is the Habitica session: the user ID and API token from
// Settings > API. Client is the x-client identifier; empty means
// "<UserID>-srtask".
type Credentials struct {
	UserID   string
	APIToken string
	Client   string
}

func (c Credentials) client() string {
	if c.Client != "" {
		return c.Client
	}
	return c.UserID + "-" + appName
}

// Client implements service.Backend and service.ProjectResolver.
// Projects map to Habitica tags.
type Client struct {
	api    *rest.Client
	logger *slog.Logger
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

// New creates a Habitica client. The credentials are sent on every call
// and never modified.
func New(creds Credentials, opts ...Option) *Client {
	c := &Client{
		api: &rest.Client{
			Backend: Name,
			BaseURL: DefaultBaseURL,
			HTTP:    http.DefaultClient,
			Header: http.Header{
				"X-Api-User": {creds.UserID},
				"X-Api-Key":  {creds.APIToken},
				"X-Client":   {creds.client()},
			},
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)})),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements service.Backend.
func (c *Client) Name() string { return Name }

// CreateTask creates one todo. The due date is sent as a plain date; the
// priority is translated to a Habitica difficulty.
func (c *Client) CreateTask(ctx context.Context, req service.TaskRequest) (service.TaskHandle, error) {
	body := todoRequest{
		Text:     req.Content,
		Type:     "todo",
		Date:     FormatDate(req.DueAt),
		Notes:    req.Note,
		Priority: DifficultyFor(req.Priority),
	}
	if req.Project != "" {
		body.Tags = []string{req.Project}
	}

	var resp envelope[taskData]
	if err := c.api.Do(ctx, http.MethodPost, "/tasks/user", nil, body, &resp, errorMessage); err != nil {
		return service.TaskHandle{}, err
	}
	return service.TaskHandle{ID: resp.Data.ID, Backend: Name}, nil
}

// ListProjects returns the user's tags.
func (c *Client) ListProjects(ctx context.Context) ([]service.Project, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	var resp envelope[[]tagData]
	if err := c.api.Do(ctx, http.MethodGet, "/tags", nil, nil, &resp, errorMessage); err != nil {
		return nil, err
	}

	projects := make([]service.Project, 0, len(resp.Data))
	for _, tag := range resp.Data {
		projects = append(projects, service.Project{ID: tag.ID, Name: tag.Name})
	}
	return projects, nil
}

// ResolveProject finds a tag by name (case-insensitive, trimmed).
func (c *Client) ResolveProject(ctx context.Context, name string) (service.Project, error) {
	tags, err := c.ListProjects(ctx)
	if err != nil {
		return service.Project{}, err
	}
	return service.MatchProject(tags, name)
}

// FormatDate serialises the calendar date of t in its own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate reverses FormatDate, returning midnight of that day in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date: %w", err)
	}
	return t, nil
}

func errorMessage(data []byte) string {
	var resp envelope[json.RawMessage]
	if err := json.Unmarshal(data, &resp); err != nil {
		return ""
	}
	if resp.Error != "" && resp.Message != "" {
		return resp.Error + ": " + resp.Message
	}
	return resp.Message
}
