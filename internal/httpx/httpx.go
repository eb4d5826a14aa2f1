package httpx

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/onnwee/reddit-pulse/internal/config"
	"github.com/onnwee/reddit-pulse/internal/logger"
	"github.com/onnwee/reddit-pulse/internal/metrics"
	"github.com/onnwee/reddit-pulse/internal/ratelimit"
)

// Error is returned when a request exhausts its retry budget.
type Error struct {
	StatusCode int
	Attempts   int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request failed after %d attempts: %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("request failed after %d attempts: status %d", e.Attempts, e.StatusCode)
}

func (e *Error) Unwrap() error { return e.Err }

// BuildRequest constructs a fresh request for each attempt. Requests cannot be
// reused across attempts once sent.
type BuildRequest func(ctx context.Context) (*http.Request, error)

// Client issues throttled GETs with retries, Retry-After handling and
// User-Agent rotation against a Reddit-style JSON host.
type Client struct {
	http       *http.Client
	limiter    *ratelimit.Limiter
	maxRetries int
	baseDelay  time.Duration
	logRetries bool
	ua         *uaRotator
}

// NewClient builds a Client from the cached config. limiter may be shared
// across clients so all outbound traffic counts against one budget.
func NewClient(limiter *ratelimit.Limiter) *Client {
	cfg := config.Load()
	maxRetries := cfg.HTTPMaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Client{
		http:       &http.Client{Timeout: cfg.HTTPTimeout},
		limiter:    limiter,
		maxRetries: maxRetries,
		baseDelay:  cfg.HTTPRetryBase,
		logRetries: cfg.LogHTTPRetries,
		ua:         newUARotator(),
	}
}

// Get issues a GET against rawURL with the given query params.
// The caller owns the response body on success.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values) (*http.Response, error) {
	return c.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		u := rawURL
		if len(params) > 0 {
			u = rawURL + "?" + params.Encode()
		}
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	})
}

// Do runs the request built by build with rate limiting and retries.
//
// Retry policy: 5xx and transport errors retry with exponential backoff
// (baseDelay * 2^attempt); 429 honors Retry-After and does not consume the
// retry budget; other 4xx responses are returned to the caller as-is.
func (c *Client) Do(ctx context.Context, build BuildRequest) (*http.Response, error) {
	var lastStatus int
	var lastErr error

	// 429 replays are budgeted separately so a pathological Retry-After loop
	// still terminates.
	replays429 := 0
	const max429Replays = 5

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Acquire(ctx, 1); err != nil {
				return nil, err
			}
		}

		req, err := build(ctx)
		if err != nil {
			return nil, err
		}
		c.decorate(req)

		resp, err := c.http.Do(req)
		if err != nil {
			metrics.HTTPRequests.WithLabelValues("error").Inc()
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			lastErr = err
			if attempt == c.maxRetries-1 {
				break
			}
			metrics.HTTPRetries.Inc()
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, err
			}
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			metrics.HTTPRequests.WithLabelValues("retry").Inc()
			wait := retryAfter(resp)
			resp.Body.Close()
			lastStatus = resp.StatusCode
			if replays429 >= max429Replays {
				lastErr = fmt.Errorf("rate limited: too many 429 responses")
				return nil, &Error{StatusCode: lastStatus, Attempts: attempt + 1, Err: lastErr}
			}
			replays429++
			metrics.RetryAfterWaits.Observe(wait.Seconds())
			if c.logRetries {
				logger.Warn("rate limited, honoring Retry-After", "wait", wait, "url", req.URL.String())
			}
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, err
			}
			// Replay the attempt without consuming the retry budget.
			attempt--
			continue

		case resp.StatusCode >= 500:
			metrics.HTTPRequests.WithLabelValues("retry").Inc()
			resp.Body.Close()
			lastStatus = resp.StatusCode
			if attempt == c.maxRetries-1 {
				break
			}
			metrics.HTTPRetries.Inc()
			if c.logRetries {
				logger.Warn("server error, retrying", "status", resp.StatusCode, "attempt", attempt+1, "url", req.URL.String())
			}
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, err
			}
			continue

		default:
			// 2xx/3xx and non-retryable 4xx are the caller's problem.
			metrics.HTTPRequests.WithLabelValues("success").Inc()
			return resp, nil
		}
	}

	return nil, &Error{StatusCode: lastStatus, Attempts: c.maxRetries, Err: lastErr}
}

func (c *Client) backoff(ctx context.Context, attempt int) error {
	jitter := time.Duration(rand.Intn(200)) * time.Millisecond
	delay := c.baseDelay*time.Duration(1<<uint(attempt)) + jitter
	return sleepCtx(ctx, delay)
}

// decorate applies the rotated User-Agent and a realistic browser header
// bundle. A User-Agent set by the request builder wins, so authenticated
// calls can keep their fixed identity.
func (c *Client) decorate(req *http.Request) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.ua.next())
	}
	req.Header.Set("Accept", "application/json, text/html;q=0.9, */*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	// Accept-Encoding is left to the transport so gzip bodies are
	// decompressed transparently.
	req.Header.Set("DNT", "1")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}

// retryAfter parses the Retry-After header, supporting both delta-seconds and
// HTTP-date forms. Falls back to 5s when absent or unparseable.
func retryAfter(resp *http.Response) time.Duration {
	ra := resp.Header.Get("Retry-After")
	if ra == "" {
		return 5 * time.Second
	}
	if secs, err := strconv.Atoi(ra); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(ra); err == nil {
		if delta := time.Until(t); delta > 0 {
			return delta
		}
	}
	return 5 * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
