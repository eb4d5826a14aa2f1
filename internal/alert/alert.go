// Package alert matches monitor updates against configured rules and routes
// the resulting alerts to notifiers.
package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/onnwee/reddit-pulse/internal/monitor"
)

// Alert is one rule match. Delivery outcome is filled in by the engine after
// the notifiers run.
type Alert struct {
	ID        string         `json:"id"`
	RuleName  string         `json:"rule_name"`
	Type      string         `json:"type"`
	Subreddit string         `json:"subreddit"`
	Message   string         `json:"message"`
	Value     float64        `json:"value,omitempty"`
	Update    monitor.Update `json:"update"`
	CreatedAt time.Time      `json:"created_at"`
	Sent      bool           `json:"sent"`
	SentTo    []string       `json:"sent_to,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Notifier delivers alerts. Implementations live in the notify package.
type Notifier interface {
	Name() string
	Send(ctx context.Context, a Alert) error
}

// Condition compares one numeric field of the update payload against a
// threshold. A field missing from the payload evaluates as 0.
type Condition struct {
	Field      string  `json:"field"`
	Comparison string  `json:"comparison"` // ge, gt, le, lt, eq, ne
	Threshold  float64 `json:"threshold"`
}

// Evaluate applies the comparison. Anything unrecognized falls back to ge so
// a mistyped operator still fires rather than silencing the rule.
func (c *Condition) Evaluate(value float64) bool {
	switch c.Comparison {
	case "gt":
		return value > c.Threshold
	case "le":
		return value <= c.Threshold
	case "lt":
		return value < c.Threshold
	case "eq":
		return value == c.Threshold
	case "ne":
		return value != c.Threshold
	default:
		return value >= c.Threshold
	}
}

// Rule matches updates. Empty Types or Subreddits match everything; Keywords
// match case-insensitively against the update payload; an optional Condition
// compares a payload field against a threshold. Notifiers names the delivery
// channels for this rule; empty means all registered notifiers. Disabled
// rules stay registered but never fire.
type Rule struct {
	Name       string        `json:"name"`
	Types      []string      `json:"types,omitempty"`
	Subreddits []string      `json:"subreddits,omitempty"`
	Keywords   []string      `json:"keywords,omitempty"`
	Condition  *Condition    `json:"condition,omitempty"`
	Notifiers  []string      `json:"notifiers,omitempty"`
	Cooldown   time.Duration `json:"cooldown,omitempty"`
	// PerSubredditCooldown tracks the cooldown per subreddit instead of
	// once for the whole rule.
	PerSubredditCooldown bool `json:"per_subreddit_cooldown,omitempty"`
	Disabled             bool `json:"disabled,omitempty"`
}

// Matches reports whether the rule applies to the update.
func (r *Rule) Matches(u monitor.Update) bool {
	if len(r.Types) > 0 && !containsFold(r.Types, u.Type) {
		return false
	}
	if len(r.Subreddits) > 0 && !containsFold(r.Subreddits, u.Subreddit) {
		return false
	}
	if len(r.Keywords) > 0 {
		payload := strings.ToLower(string(u.Data))
		hit := false
		for _, kw := range r.Keywords {
			if kw != "" && strings.Contains(payload, strings.ToLower(kw)) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	if r.Condition != nil && r.Condition.Field != "" {
		if !r.Condition.Evaluate(updateMetric(u, r.Condition.Field)) {
			return false
		}
	}
	return true
}

// updateMetric pulls one numeric field out of the update payload. Absent or
// non-numeric fields read as 0.
func updateMetric(u monitor.Update, field string) float64 {
	if len(u.Data) == 0 {
		return 0
	}
	var payload map[string]any
	if err := json.Unmarshal(u.Data, &payload); err != nil {
		return 0
	}
	if v, ok := payload[field].(float64); ok {
		return v
	}
	return 0
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func newAlert(rule *Rule, u monitor.Update, now time.Time) Alert {
	a := Alert{
		ID:        uuid.NewString(),
		RuleName:  rule.Name,
		Type:      u.Type,
		Subreddit: u.Subreddit,
		Message:   formatMessage(u),
		Update:    u,
		CreatedAt: now,
	}
	if rule.Condition != nil && rule.Condition.Field != "" {
		a.Value = updateMetric(u, rule.Condition.Field)
		a.Message = fmt.Sprintf("%s (%s=%.2f)", a.Message, rule.Condition.Field, a.Value)
	}
	return a
}

func formatMessage(u monitor.Update) string {
	switch u.Type {
	case monitor.TypeNewPost:
		return "new post in r/" + u.Subreddit
	case monitor.TypeActivitySpike:
		return "activity spike in r/" + u.Subreddit
	case monitor.TypeKeywordSurge:
		return "keyword surge in r/" + u.Subreddit
	default:
		return u.Type + " in r/" + u.Subreddit
	}
}
