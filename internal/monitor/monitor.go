package monitor

import (
	"context"
	"strings"
	"time"

	"github.com/onnwee/reddit-pulse/internal/logger"
	"github.com/onnwee/reddit-pulse/internal/metrics"
	"github.com/onnwee/reddit-pulse/internal/reddit"
	"github.com/onnwee/reddit-pulse/internal/utils"
)

const (
	// seenCap bounds the per-subreddit dedup set; on overflow the oldest
	// half is discarded.
	seenCap  = 1000
	seenKeep = 500

	// maxEmitPerPoll caps new_post updates per poll so a burst does not
	// flood subscribers.
	maxEmitPerPoll = 10

	// maxStatusErrorLen bounds the error text carried by status updates.
	maxStatusErrorLen = 200
)

// publisher receives the updates a subredditMonitor produces.
type publisher interface {
	publish(u Update)
}

// subredditMonitor polls one subreddit's new listing and emits updates.
type subredditMonitor struct {
	subreddit string
	source    reddit.Backend
	sink      publisher
	interval  time.Duration
	maxPosts  int
	keywords  []string
	tracker   *activityTracker

	// seen dedups post ids; order tracks insertion for trimming.
	seen  map[string]struct{}
	order []string

	cancel context.CancelFunc
	done   chan struct{}
}

func newSubredditMonitor(subreddit string, source reddit.Backend, sink publisher, cfg monitorConfig) *subredditMonitor {
	return &subredditMonitor{
		subreddit: subreddit,
		source:    source,
		sink:      sink,
		interval:  cfg.interval,
		maxPosts:  cfg.maxPosts,
		keywords:  cfg.keywords,
		tracker:   newActivityTracker(cfg.window, cfg.threshold),
		seen:      make(map[string]struct{}),
		done:      make(chan struct{}),
	}
}

// run polls until the context ends. The first poll already emits, so
// subscribers see the current listing as soon as a monitor starts.
func (m *subredditMonitor) run(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

func (m *subredditMonitor) poll(ctx context.Context) {
	posts, err := m.source.NewPosts(ctx, m.subreddit, m.maxPosts)
	if err != nil {
		metrics.MonitorPolls.WithLabelValues(m.subreddit, "error").Inc()
		logger.Warn("monitor poll failed", "subreddit", m.subreddit, "error", err)
		m.sink.publish(newUpdate(TypeStatus, m.subreddit, StatusData{
			State: "error",
			Error: utils.Truncate(err.Error(), maxStatusErrorLen),
		}))
		metrics.MonitorUpdates.WithLabelValues(TypeStatus).Inc()
		return
	}
	metrics.MonitorPolls.WithLabelValues(m.subreddit, "success").Inc()

	var fresh []reddit.Post
	for _, p := range posts {
		if _, ok := m.seen[p.RedditID]; ok {
			continue
		}
		m.remember(p.RedditID)
		fresh = append(fresh, p)
	}

	if len(fresh) == 0 {
		m.tracker.observe(0)
		return
	}

	emitted := 0
	for _, p := range fresh {
		if emitted >= maxEmitPerPoll {
			break
		}
		m.sink.publish(newUpdate(TypeNewPost, m.subreddit, NewPostData{
			RedditID:   p.RedditID,
			Title:      p.Title,
			Author:     p.Author,
			Score:      p.Score,
			Permalink:  p.Permalink,
			CreatedUTC: p.CreatedUTC,
		}))
		metrics.MonitorUpdates.WithLabelValues(TypeNewPost).Inc()
		emitted++
	}

	if spike, baseline, ratio := m.tracker.observe(len(fresh)); spike {
		m.sink.publish(newUpdate(TypeActivitySpike, m.subreddit, SpikeData{
			Count:    len(fresh),
			Baseline: baseline,
			Ratio:    ratio,
		}))
		metrics.MonitorUpdates.WithLabelValues(TypeActivitySpike).Inc()
		logger.Info("activity spike", "subreddit", m.subreddit, "count", len(fresh), "baseline", baseline)
	}

	m.checkKeywords(fresh)
}

// checkKeywords emits a surge update for each keyword matching two or more
// fresh posts in this poll.
func (m *subredditMonitor) checkKeywords(fresh []reddit.Post) {
	for _, kw := range m.keywords {
		needle := strings.ToLower(kw)
		if needle == "" {
			continue
		}
		var hits []string
		for _, p := range fresh {
			if strings.Contains(strings.ToLower(p.Title), needle) ||
				strings.Contains(strings.ToLower(p.Selftext), needle) {
				hits = append(hits, p.RedditID)
			}
		}
		if len(hits) >= 2 {
			m.sink.publish(newUpdate(TypeKeywordSurge, m.subreddit, SurgeData{
				Keyword: kw,
				Count:   len(hits),
				PostIDs: hits,
			}))
			metrics.MonitorUpdates.WithLabelValues(TypeKeywordSurge).Inc()
		}
	}
}

func (m *subredditMonitor) remember(id string) {
	m.seen[id] = struct{}{}
	m.order = append(m.order, id)
	if len(m.order) > seenCap {
		drop := m.order[:len(m.order)-seenKeep]
		for _, old := range drop {
			delete(m.seen, old)
		}
		m.order = append([]string(nil), m.order[len(m.order)-seenKeep:]...)
	}
}
