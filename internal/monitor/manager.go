package monitor

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/onnwee/reddit-pulse/internal/config"
	"github.com/onnwee/reddit-pulse/internal/logger"
	"github.com/onnwee/reddit-pulse/internal/metrics"
	"github.com/onnwee/reddit-pulse/internal/reddit"
	"github.com/onnwee/reddit-pulse/internal/utils"
)

// subscriberBuffer is each subscriber channel's capacity. A subscriber that
// cannot keep up is dropped on its first full-buffer send.
const subscriberBuffer = 64

type monitorConfig struct {
	interval  time.Duration
	maxPosts  int
	window    int
	threshold float64
	keywords  []string
}

// Subscription is a live feed of monitor updates.
type Subscription struct {
	ID string
	C  <-chan Update
}

// Manager runs one poller per monitored subreddit and fans updates out to
// subscribers.
type Manager struct {
	source reddit.Backend
	cfg    monitorConfig

	mu          sync.Mutex
	monitors    map[string]*subredditMonitor
	cancels     map[string]context.CancelFunc
	subscribers map[string]chan Update
}

// NewManager builds a Manager from the cached config.
func NewManager(source reddit.Backend) *Manager {
	cfg := config.Load()
	return &Manager{
		source: source,
		cfg: monitorConfig{
			interval:  cfg.MonitorInterval,
			maxPosts:  cfg.MaxPostsPerPoll,
			window:    cfg.ActivityWindow,
			threshold: cfg.SpikeThreshold,
			keywords:  cfg.MonitorKeywords,
		},
		monitors:    make(map[string]*subredditMonitor),
		cancels:     make(map[string]context.CancelFunc),
		subscribers: make(map[string]chan Update),
	}
}

// publish fans an update out without blocking. A subscriber whose buffer is
// full is closed and removed.
func (mg *Manager) publish(u Update) {
	mg.mu.Lock()
	defer mg.mu.Unlock()
	for id, ch := range mg.subscribers {
		select {
		case ch <- u:
		default:
			delete(mg.subscribers, id)
			close(ch)
			metrics.MonitorDroppedSubscribers.Inc()
			metrics.MonitorSubscribers.Set(float64(len(mg.subscribers)))
			logger.Warn("dropping slow subscriber", "subscriber", id)
		}
	}
}

// Subscribe registers a new update feed. The channel is closed when the
// subscriber is dropped or unsubscribed.
func (mg *Manager) Subscribe() Subscription {
	ch := make(chan Update, subscriberBuffer)
	id := uuid.NewString()
	mg.mu.Lock()
	mg.subscribers[id] = ch
	metrics.MonitorSubscribers.Set(float64(len(mg.subscribers)))
	mg.mu.Unlock()
	return Subscription{ID: id, C: ch}
}

// Unsubscribe removes a feed and closes its channel.
func (mg *Manager) Unsubscribe(id string) {
	mg.mu.Lock()
	defer mg.mu.Unlock()
	if ch, ok := mg.subscribers[id]; ok {
		delete(mg.subscribers, id)
		close(ch)
		metrics.MonitorSubscribers.Set(float64(len(mg.subscribers)))
	}
}

// StartSubreddit begins polling a subreddit. Already-monitored subreddits are
// a no-op.
func (mg *Manager) StartSubreddit(ctx context.Context, subreddit string) bool {
	name := utils.NormalizeSubreddit(subreddit)
	if name == "" {
		return false
	}

	mg.mu.Lock()
	if _, ok := mg.monitors[name]; ok {
		mg.mu.Unlock()
		return false
	}
	m := newSubredditMonitor(name, mg.source, mg, mg.cfg)
	runCtx, cancel := context.WithCancel(ctx)
	mg.monitors[name] = m
	mg.cancels[name] = cancel
	mg.mu.Unlock()

	go m.run(runCtx)
	mg.publish(newUpdate(TypeStarted, name, nil))
	logger.Info("monitor started", "subreddit", name)
	return true
}

// StopSubreddit stops one poller and waits for it to exit.
func (mg *Manager) StopSubreddit(subreddit string) bool {
	name := utils.NormalizeSubreddit(subreddit)

	mg.mu.Lock()
	m, ok := mg.monitors[name]
	if !ok {
		mg.mu.Unlock()
		return false
	}
	cancel := mg.cancels[name]
	delete(mg.monitors, name)
	delete(mg.cancels, name)
	mg.mu.Unlock()

	cancel()
	<-m.done
	mg.publish(newUpdate(TypeStopped, name, nil))
	logger.Info("monitor stopped", "subreddit", name)
	return true
}

// Start begins polling every given subreddit.
func (mg *Manager) Start(ctx context.Context, subreddits []string) {
	for _, s := range subreddits {
		mg.StartSubreddit(ctx, s)
	}
}

// StopAll stops every poller.
func (mg *Manager) StopAll() {
	mg.mu.Lock()
	names := make([]string, 0, len(mg.monitors))
	for name := range mg.monitors {
		names = append(names, name)
	}
	mg.mu.Unlock()
	for _, name := range names {
		mg.StopSubreddit(name)
	}
}

// Status reports the monitored subreddits and subscriber count.
type Status struct {
	Subreddits  []string `json:"subreddits"`
	Subscribers int      `json:"subscribers"`
}

func (mg *Manager) Status() Status {
	mg.mu.Lock()
	defer mg.mu.Unlock()
	names := make([]string, 0, len(mg.monitors))
	for name := range mg.monitors {
		names = append(names, name)
	}
	sort.Strings(names)
	return Status{Subreddits: names, Subscribers: len(mg.subscribers)}
}
