package reddit

import (
	"errors"
	"fmt"
	"testing"

	"github.com/onnwee/reddit-pulse/internal/httpx"
)

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"auth", ErrAuthFailed, false},
		{"wrapped auth", fmt.Errorf("token: %w", ErrAuthFailed), false},
		{"server error", &httpx.Error{StatusCode: 503, Attempts: 3}, true},
		{"rate limited", &httpx.Error{StatusCode: 429, Attempts: 1}, true},
		{"transport", &httpx.Error{Attempts: 3, Err: errors.New("connection refused")}, true},
		{"client error", &httpx.Error{StatusCode: 404, Attempts: 1}, false},
		{"plain error", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsTransient(tc.err); got != tc.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestErrorUnwrapping(t *testing.T) {
	inner := &httpx.Error{StatusCode: 500, Attempts: 3}
	scrape := &ScrapingError{Operation: "hot", URL: "https://example.com", Err: inner}
	ds := &DataSourceError{Operation: "hot", Strategy: "api_first", Err: scrape}

	var he *httpx.Error
	if !errors.As(ds, &he) || he.StatusCode != 500 {
		t.Fatal("expected httpx.Error to surface through the chain")
	}
	var se *ScrapingError
	if !errors.As(ds, &se) {
		t.Fatal("expected ScrapingError to surface through the chain")
	}
}
