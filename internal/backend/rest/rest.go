// Package rest is the JSON-over-HTTP plumbing shared by the REST backends.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"srtask/internal/service"
)

// MaxResponseBytes caps how much of a response body is read.
const MaxResponseBytes = 1 << 20

// ResponseTooLargeError reports that the response body exceeded the limit.
type ResponseTooLargeError struct {
	Limit int64
}

func (e ResponseTooLargeError) Error() string {
	return fmt.Sprintf("response body exceeded limit of %d bytes", e.Limit)
}

// Client sends JSON requests to one service.
type Client struct {
	Backend string // used in errors
	BaseURL string
	HTTP    *http.Client
	Header  http.Header // added to every request
}

// Do sends body (if non-nil) as JSON and decodes a 2xx response into out
// (if non-nil). Failures are returned as *service.CreationError; the
// message is taken from the response body when decode reads one.
func (c *Client) Do(ctx context.Context, method, path string, header http.Header, body, out any, decode func([]byte) string) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &service.CreationError{Kind: service.KindUnknown, Backend: c.Backend, Err: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.BaseURL, "/")+path, reader)
	if err != nil {
		return &service.CreationError{Kind: service.KindUnknown, Backend: c.Backend, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, h := range []http.Header{c.Header, header} {
		for k, vs := range h {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return service.NewCreationError(c.Backend, 0, err)
	}
	defer resp.Body.Close()

	data, err := ReadAllWithLimit(resp.Body, MaxResponseBytes)
	if err != nil {
		return service.NewCreationError(c.Backend, 0, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := http.StatusText(resp.StatusCode)
		if decode != nil {
			if m := decode(data); m != "" {
				msg = m
			}
		}
		ce := service.NewCreationError(c.Backend, resp.StatusCode, errors.New(msg))
		ce.RetryAfter = service.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		return ce
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return &service.CreationError{
				Kind:       service.KindUnknown,
				Backend:    c.Backend,
				StatusCode: resp.StatusCode,
				Err:        fmt.Errorf("decode response: %w", err),
			}
		}
	}
	return nil
}

// ReadAllWithLimit reads r up to limit bytes.
// If limit <= 0, it behaves like io.ReadAll.
func ReadAllWithLimit(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	lr := &io.LimitedReader{R: r, N: limit + 1}
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ResponseTooLargeError{Limit: limit}
	}
	return data, nil
}
