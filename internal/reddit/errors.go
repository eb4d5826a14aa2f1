package reddit

import (
	"errors"
	"fmt"
	"net"

	"github.com/onnwee/reddit-pulse/internal/httpx"
)

// APIError is a failure from the authenticated OAuth backend.
type APIError struct {
	Operation  string
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("reddit api %s: status %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("reddit api %s: %v", e.Operation, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// ScrapingError is a failure from the public JSON backend.
type ScrapingError struct {
	Operation  string
	URL        string
	StatusCode int
	Err        error
}

func (e *ScrapingError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("scrape %s %s: status %d", e.Operation, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("scrape %s %s: %v", e.Operation, e.URL, e.Err)
}

func (e *ScrapingError) Unwrap() error { return e.Err }

// DataSourceError is returned by the unified source when every permitted
// backend has failed for an operation.
type DataSourceError struct {
	Operation string
	Strategy  string
	Err       error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("data source %s (strategy %s): %v", e.Operation, e.Strategy, e.Err)
}

func (e *DataSourceError) Unwrap() error { return e.Err }

// ErrAuthFailed marks a credential problem; it is not transient and callers
// should not burn retries on it.
var ErrAuthFailed = errors.New("reddit authentication failed")

// IsTransient reports whether err looks like a temporary condition (server
// errors, rate limiting, network failures) rather than a caller bug. Used for
// logging and failure classification, not for fallback gating.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAuthFailed) {
		return false
	}
	var he *httpx.Error
	if errors.As(err, &he) {
		return he.StatusCode == 0 || he.StatusCode == 429 || he.StatusCode >= 500
	}
	var ne net.Error
	return errors.As(err, &ne)
}
