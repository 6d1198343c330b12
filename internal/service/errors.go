package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var (
	ErrEmptyContent     = errors.New("content required")
	ErrProjectNotFound  = errors.New("project not found")
	ErrProjectAmbiguous = errors.New("ambiguous project name")
)

// ErrorKind classifies why a task could not be created.
type ErrorKind int

const (
	// KindUnknown is an unclassified remote error, surfaced verbatim.
	KindUnknown ErrorKind = iota
	// KindAuthExpired means the session is invalid; the caller must re-authenticate.
	KindAuthExpired
	// KindRateLimited means the service throttled the request.
	KindRateLimited
	// KindValidationRejected means the service refused the input.
	KindValidationRejected
	// KindTransportFailure covers network errors and timeouts.
	KindTransportFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuthExpired:
		return "auth_expired"
	case KindRateLimited:
		return "rate_limited"
	case KindValidationRejected:
		return "validation_rejected"
	case KindTransportFailure:
		return "transport_failure"
	default:
		return "unknown"
	}
}

// Retryable reports whether repeating the same request may succeed.
// Transport failures are retryable but may duplicate a task that the
// service already accepted.
func (k ErrorKind) Retryable() bool {
	return k == KindRateLimited || k == KindTransportFailure
}

// Hint is the user-facing action for a failure kind.
func (k ErrorKind) Hint() string {
	switch k {
	case KindAuthExpired:
		return "re-authenticate"
	case KindRateLimited, KindTransportFailure:
		return "transient, retry"
	case KindValidationRejected:
		return "rejected, fix input"
	default:
		return "see error"
	}
}

// CreationError is returned by Backend.CreateTask.
type CreationError struct {
	Kind       ErrorKind
	Backend    string
	StatusCode int           // HTTP status, 0 if no response
	RetryAfter time.Duration // from Retry-After, 0 if absent
	Err        error
}

func (e *CreationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", e.Backend, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Backend, e.Kind, e.Err)
}

func (e *CreationError) Unwrap() error {
	return e.Err
}

// NewCreationError wraps err, deriving the kind from the status code when
// one is known and from the error itself otherwise.
func NewCreationError(backend string, statusCode int, err error) *CreationError {
	kind := KindForStatus(statusCode)
	if statusCode == 0 {
		kind = KindOf(err)
	}
	return &CreationError{
		Kind:       kind,
		Backend:    backend,
		StatusCode: statusCode,
		Err:        err,
	}
}

// KindOf classifies err. A *CreationError anywhere in the chain wins.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var ce *CreationError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransportFailure
	}
	if errors.Is(err, ErrEmptyContent) {
		return KindValidationRejected
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransportFailure
	}
	return KindUnknown
}

// KindForStatus maps an HTTP status code to a failure kind.
func KindForStatus(code int) ErrorKind {
	switch {
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return KindAuthExpired
	case code == http.StatusTooManyRequests:
		return KindRateLimited
	case code == http.StatusBadRequest, code == http.StatusNotFound,
		code == http.StatusConflict, code == http.StatusUnprocessableEntity:
		return KindValidationRejected
	case code == http.StatusRequestTimeout, code >= 500 && code <= 599:
		return KindTransportFailure
	default:
		return KindUnknown
	}
}

// RetryAfter returns the server-requested wait carried by err, if any.
func RetryAfter(err error) time.Duration {
	var ce *CreationError
	if errors.As(err, &ce) {
		return ce.RetryAfter
	}
	return 0
}

// ParseRetryAfter parses a Retry-After header value given either as
// delay-seconds or as an HTTP date relative to now.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}
