// Package scheduler drives periodic collector sweeps and keeps a bounded run
// history for the status API.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/onnwee/reddit-pulse/internal/config"
	"github.com/onnwee/reddit-pulse/internal/logger"
	"github.com/onnwee/reddit-pulse/internal/metrics"
	"github.com/onnwee/reddit-pulse/internal/pipeline"
)

// maxRunHistory caps the retained run records.
const maxRunHistory = 50

// Runner is what the scheduler executes each tick; *collector.Collector
// satisfies it.
type Runner interface {
	Run(ctx context.Context) pipeline.Result
}

// Run is one completed sweep.
type Run struct {
	ID         string          `json:"id"`
	Trigger    string          `json:"trigger"`
	Result     pipeline.Result `json:"result"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// Service runs the collector on a fixed interval. One sweep at a time; a tick
// arriving mid-sweep is skipped.
type Service struct {
	runner   Runner
	interval time.Duration
	stop     chan struct{}

	mu      sync.Mutex
	running bool
	history []Run
	started bool
}

// NewService builds the scheduler from the cached config.
func NewService(runner Runner) *Service {
	cfg := config.Load()
	return &Service{
		runner:   runner,
		interval: time.Duration(cfg.IntervalMinutes) * time.Minute,
		stop:     make(chan struct{}),
	}
}

// Start begins the loop: one sweep immediately, then one per interval. Blocks
// until Stop or context cancellation.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	logger.Info("scheduler started", "interval", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.RunOnce(ctx, "startup")

	for {
		select {
		case <-ctx.Done():
			logger.Info("scheduler stopped by context")
			return
		case <-s.stop:
			logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx, "interval")
		}
	}
}

// Stop ends the loop after the in-flight sweep, if any, completes.
func (s *Service) Stop() {
	close(s.stop)
}

// RunOnce executes one sweep unless one is already in flight, in which case
// it is skipped and reported as such.
func (s *Service) RunOnce(ctx context.Context, trigger string) (Run, bool) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		logger.Warn("sweep already in flight, skipping", "trigger", trigger)
		metrics.SchedulerRuns.WithLabelValues("skipped").Inc()
		return Run{}, false
	}
	s.running = true
	s.mu.Unlock()

	run := Run{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		StartedAt: time.Now().UTC(),
	}
	logger.Info("sweep started", "run_id", run.ID, "trigger", trigger)

	run.Result = s.runner.Run(ctx)
	run.FinishedAt = time.Now().UTC()

	dur := run.FinishedAt.Sub(run.StartedAt)
	metrics.SchedulerRunDuration.Observe(dur.Seconds())
	if len(run.Result.Errors) > 0 {
		metrics.SchedulerRuns.WithLabelValues("error").Inc()
	} else {
		metrics.SchedulerRuns.WithLabelValues("success").Inc()
	}
	logger.Info("sweep finished",
		"run_id", run.ID,
		"posts_saved", run.Result.PostsSaved,
		"comments_saved", run.Result.CommentsSaved,
		"errors", len(run.Result.Errors),
		"duration", dur.Round(time.Millisecond),
	)

	s.mu.Lock()
	s.history = append(s.history, run)
	if len(s.history) > maxRunHistory {
		s.history = s.history[len(s.history)-maxRunHistory:]
	}
	s.running = false
	s.mu.Unlock()

	return run, true
}

// History returns recent runs, newest first.
func (s *Service) History() []Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Run, len(s.history))
	for i, r := range s.history {
		out[len(s.history)-1-i] = r
	}
	return out
}

// IsRunning reports whether a sweep is in flight.
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Interval returns the configured sweep interval.
func (s *Service) Interval() time.Duration { return s.interval }
