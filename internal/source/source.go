// Package source multiplexes the two Reddit backends behind one surface,
// applying the configured strategy, fallback and per-backend failure
// tracking.
package source

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/onnwee/reddit-pulse/internal/config"
	"github.com/onnwee/reddit-pulse/internal/logger"
	"github.com/onnwee/reddit-pulse/internal/metrics"
	"github.com/onnwee/reddit-pulse/internal/ratelimit"
	"github.com/onnwee/reddit-pulse/internal/reddit"
)

// Strategy selects backend order and whether fallback is permitted.
type Strategy string

const (
	APIOnly      Strategy = "api_only"
	ScraperOnly  Strategy = "scraper_only"
	APIFirst     Strategy = "api_first"
	ScraperFirst Strategy = "scraper_first"
)

// failureThreshold is the consecutive-failure count at which a backend is
// disabled until its next success.
const failureThreshold = 5

var errAllBackendsFailed = errors.New("all permitted backends failed")

// backendHealth tracks consecutive failures for one backend. Any success
// resets the counter and re-enables the backend; there is no timed recovery.
type backendHealth struct {
	mu       sync.Mutex
	name     string
	failures int
	disabled bool
}

func (h *backendHealth) recordSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.disabled {
		logger.Info("backend re-enabled after success", "backend", h.name)
	}
	h.failures = 0
	h.disabled = false
	metrics.SourceFailureCount.WithLabelValues(h.name).Set(0)
	metrics.SourceBackendDisabled.WithLabelValues(h.name).Set(0)
}

func (h *backendHealth) recordFailure() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures++
	metrics.SourceFailureCount.WithLabelValues(h.name).Set(float64(h.failures))
	if h.failures >= failureThreshold && !h.disabled {
		h.disabled = true
		metrics.SourceBackendDisabled.WithLabelValues(h.name).Set(1)
		logger.Warn("backend disabled after consecutive failures", "backend", h.name, "failures", h.failures)
	}
}

func (h *backendHealth) isDisabled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.disabled
}

func (h *backendHealth) snapshot() (int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.failures, h.disabled
}

// Source is the unified fetch surface. It implements reddit.Backend itself so
// downstream code is agnostic about which backend served a call.
type Source struct {
	strategy Strategy
	api      reddit.Backend
	scraper  reddit.Backend

	apiHealth     *backendHealth
	scraperHealth *backendHealth
}

// New builds a Source from the cached config. Both backends share the given
// limiter.
func New(limiter *ratelimit.Limiter) *Source {
	cfg := config.Load()
	return NewWithBackends(Strategy(cfg.SourceStrategy), reddit.NewAPIClient(limiter), reddit.NewScraper(limiter))
}

// NewWithBackends wires explicit backends, used directly by tests.
func NewWithBackends(strategy Strategy, api, scraper reddit.Backend) *Source {
	switch strategy {
	case APIOnly, ScraperOnly, APIFirst, ScraperFirst:
	default:
		logger.Warn("unknown source strategy, defaulting to api_first", "strategy", string(strategy))
		strategy = APIFirst
	}
	return &Source{
		strategy:      strategy,
		api:           api,
		scraper:       scraper,
		apiHealth:     &backendHealth{name: api.Name()},
		scraperHealth: &backendHealth{name: scraper.Name()},
	}
}

func (s *Source) Name() string { return "source" }

// Strategy returns the active strategy.
func (s *Source) Strategy() Strategy { return s.strategy }

// order returns the permitted backends in attempt order for the active
// strategy.
func (s *Source) order() []reddit.Backend {
	switch s.strategy {
	case APIOnly:
		return []reddit.Backend{s.api}
	case ScraperOnly:
		return []reddit.Backend{s.scraper}
	case ScraperFirst:
		return []reddit.Backend{s.scraper, s.api}
	default:
		return []reddit.Backend{s.api, s.scraper}
	}
}

func (s *Source) healthFor(b reddit.Backend) *backendHealth {
	if b == s.api {
		return s.apiHealth
	}
	return s.scraperHealth
}

// dispatch runs op against each permitted backend in order. A disabled
// backend is skipped unless it is the only one permitted. Under the *_first
// strategies every error from the first backend permits fallback.
func dispatch[T any](ctx context.Context, s *Source, opName string, op func(reddit.Backend) (T, error)) (T, error) {
	var zero T
	backends := s.order()

	var lastErr error
	for _, b := range backends {
		health := s.healthFor(b)
		if health.isDisabled() && len(backends) > 1 {
			logger.Debug("skipping disabled backend", "backend", b.Name(), "op", opName)
			continue
		}

		result, err := op(b)
		if err != nil {
			health.recordFailure()
			metrics.SourceFetches.WithLabelValues(b.Name(), "error").Inc()
			if reddit.IsTransient(err) {
				logger.Warn("backend fetch failed (transient)", "backend", b.Name(), "op", opName, "error", err)
			} else {
				logger.Warn("backend fetch failed", "backend", b.Name(), "op", opName, "error", err)
			}
			lastErr = err
			continue
		}

		health.recordSuccess()
		metrics.SourceFetches.WithLabelValues(b.Name(), "success").Inc()
		return result, nil
	}

	if lastErr == nil {
		lastErr = errAllBackendsFailed
	}
	return zero, &reddit.DataSourceError{
		Operation: opName,
		Strategy:  string(s.strategy),
		Err:       fmt.Errorf("%w: %w", errAllBackendsFailed, lastErr),
	}
}

func (s *Source) HotPosts(ctx context.Context, subreddit string, limit int) ([]reddit.Post, error) {
	return dispatch(ctx, s, "hot_posts", func(b reddit.Backend) ([]reddit.Post, error) {
		return b.HotPosts(ctx, subreddit, limit)
	})
}

func (s *Source) NewPosts(ctx context.Context, subreddit string, limit int) ([]reddit.Post, error) {
	return dispatch(ctx, s, "new_posts", func(b reddit.Backend) ([]reddit.Post, error) {
		return b.NewPosts(ctx, subreddit, limit)
	})
}

func (s *Source) TopPosts(ctx context.Context, subreddit string, limit int, timeFilter string) ([]reddit.Post, error) {
	return dispatch(ctx, s, "top_posts", func(b reddit.Backend) ([]reddit.Post, error) {
		return b.TopPosts(ctx, subreddit, limit, timeFilter)
	})
}

func (s *Source) RisingPosts(ctx context.Context, subreddit string, limit int) ([]reddit.Post, error) {
	return dispatch(ctx, s, "rising_posts", func(b reddit.Backend) ([]reddit.Post, error) {
		return b.RisingPosts(ctx, subreddit, limit)
	})
}

func (s *Source) PostComments(ctx context.Context, postID string, limit int) ([]reddit.Comment, error) {
	return dispatch(ctx, s, "post_comments", func(b reddit.Backend) ([]reddit.Comment, error) {
		return b.PostComments(ctx, postID, limit)
	})
}

func (s *Source) SubredditComments(ctx context.Context, subreddit string, limit int) ([]reddit.Comment, error) {
	return dispatch(ctx, s, "subreddit_comments", func(b reddit.Backend) ([]reddit.Comment, error) {
		return b.SubredditComments(ctx, subreddit, limit)
	})
}

func (s *Source) Subreddit(ctx context.Context, subreddit string) (*reddit.SubredditInfo, error) {
	return dispatch(ctx, s, "subreddit", func(b reddit.Backend) (*reddit.SubredditInfo, error) {
		return b.Subreddit(ctx, subreddit)
	})
}

func (s *Source) SearchSubreddits(ctx context.Context, query string, limit int) ([]reddit.SubredditInfo, error) {
	return dispatch(ctx, s, "search_subreddits", func(b reddit.Backend) ([]reddit.SubredditInfo, error) {
		return b.SearchSubreddits(ctx, query, limit)
	})
}

// BackendStatus is one backend's health snapshot.
type BackendStatus struct {
	Name     string `json:"name"`
	Failures int    `json:"failures"`
	Disabled bool   `json:"disabled"`
}

// Status describes the source for the status endpoint.
type Status struct {
	Strategy string          `json:"strategy"`
	Backends []BackendStatus `json:"backends"`
}

// Status reports the active strategy and per-backend health.
func (s *Source) Status() Status {
	apiFails, apiDisabled := s.apiHealth.snapshot()
	scrFails, scrDisabled := s.scraperHealth.snapshot()
	return Status{
		Strategy: string(s.strategy),
		Backends: []BackendStatus{
			{Name: s.api.Name(), Failures: apiFails, Disabled: apiDisabled},
			{Name: s.scraper.Name(), Failures: scrFails, Disabled: scrDisabled},
		},
	}
}
