package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/onnwee/reddit-pulse/internal/pipeline"
)

// blockingRunner lets a test hold a sweep open.
type blockingRunner struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
}

func (r *blockingRunner) Run(ctx context.Context) pipeline.Result {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.release != nil {
		<-r.release
	}
	return pipeline.Result{PostsSaved: 1}
}

func (r *blockingRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func newTestService(r Runner) *Service {
	return &Service{runner: r, interval: time.Hour, stop: make(chan struct{})}
}

func TestRunOnceRecordsHistory(t *testing.T) {
	runner := &blockingRunner{}
	s := newTestService(runner)

	run, ok := s.RunOnce(context.Background(), "manual")
	if !ok {
		t.Fatal("sweep should have run")
	}
	if run.ID == "" || run.Trigger != "manual" {
		t.Errorf("run = %+v", run)
	}
	if run.Result.PostsSaved != 1 {
		t.Errorf("result = %+v", run.Result)
	}

	hist := s.History()
	if len(hist) != 1 || hist[0].ID != run.ID {
		t.Fatalf("history = %+v", hist)
	}
}

func TestRunOnceSkipsWhileInFlight(t *testing.T) {
	runner := &blockingRunner{release: make(chan struct{})}
	s := newTestService(runner)

	done := make(chan struct{})
	go func() {
		s.RunOnce(context.Background(), "first")
		close(done)
	}()

	// Wait until the first sweep is inside the runner.
	for i := 0; i < 100 && runner.callCount() == 0; i++ {
		time.Sleep(time.Millisecond)
	}
	if _, ok := s.RunOnce(context.Background(), "second"); ok {
		t.Error("overlapping sweep should be skipped")
	}
	close(runner.release)
	<-done

	if runner.callCount() != 1 {
		t.Errorf("runner calls = %d, want 1", runner.callCount())
	}
	if !s.History()[0].FinishedAt.After(s.History()[0].StartedAt) && !s.History()[0].FinishedAt.Equal(s.History()[0].StartedAt) {
		t.Error("run timestamps out of order")
	}
}

func TestHistoryBounded(t *testing.T) {
	runner := &blockingRunner{}
	s := newTestService(runner)

	for i := 0; i < maxRunHistory+10; i++ {
		s.RunOnce(context.Background(), "manual")
	}
	if got := len(s.History()); got != maxRunHistory {
		t.Errorf("history length = %d, want %d", got, maxRunHistory)
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	runner := &blockingRunner{}
	s := newTestService(runner)

	first, _ := s.RunOnce(context.Background(), "manual")
	second, _ := s.RunOnce(context.Background(), "manual")

	hist := s.History()
	if hist[0].ID != second.ID || hist[1].ID != first.ID {
		t.Error("history not newest first")
	}
}

func TestStopEndsLoop(t *testing.T) {
	runner := &blockingRunner{}
	s := newTestService(runner)

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()

	for i := 0; i < 100 && runner.callCount() == 0; i++ {
		time.Sleep(time.Millisecond)
	}
	s.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
}
