// Package monitor watches subreddits for new posts and activity spikes and
// fans updates out to subscribers.
package monitor

import (
	"encoding/json"
	"time"
)

// Update types.
const (
	TypeNewPost       = "new_post"
	TypeActivitySpike = "activity_spike"
	TypeKeywordSurge  = "keyword_surge"
	TypeStatus        = "status"
	TypeStarted       = "monitor_started"
	TypeStopped       = "monitor_stopped"
)

// Update is the envelope delivered to subscribers and streamed over the wire.
type Update struct {
	Type      string          `json:"type"`
	Subreddit string          `json:"subreddit"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewPostData is the payload for new_post updates.
type NewPostData struct {
	RedditID   string    `json:"reddit_id"`
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	Score      int       `json:"score"`
	Permalink  string    `json:"permalink"`
	CreatedUTC time.Time `json:"created_utc"`
}

// SpikeData is the payload for activity_spike updates.
type SpikeData struct {
	Count    int     `json:"count"`
	Baseline float64 `json:"baseline"`
	Ratio    float64 `json:"ratio"`
}

// StatusData is the payload for status updates, emitted when a poll fails.
type StatusData struct {
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

// SurgeData is the payload for keyword_surge updates.
type SurgeData struct {
	Keyword string   `json:"keyword"`
	Count   int      `json:"count"`
	PostIDs []string `json:"post_ids"`
}

func newUpdate(typ, subreddit string, data any) Update {
	u := Update{Type: typ, Subreddit: subreddit, Timestamp: time.Now().UTC()}
	if data != nil {
		if raw, err := json.Marshal(data); err == nil {
			u.Data = raw
		}
	}
	return u
}
