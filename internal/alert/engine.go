package alert

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/onnwee/reddit-pulse/internal/config"
	"github.com/onnwee/reddit-pulse/internal/logger"
	"github.com/onnwee/reddit-pulse/internal/metrics"
	"github.com/onnwee/reddit-pulse/internal/monitor"
)

// Engine evaluates rules in insertion order and delivers matches through the
// registered notifiers, with a per-rule cooldown.
type Engine struct {
	mu        sync.Mutex
	rules     []*Rule
	notifiers []Notifier
	lastFired map[string]time.Time
	history   []Alert

	cooldown   time.Duration
	maxHistory int
	now        func() time.Time
}

// NewEngine builds an Engine from the cached config.
func NewEngine() *Engine {
	cfg := config.Load()
	return &Engine{
		lastFired:  make(map[string]time.Time),
		cooldown:   cfg.AlertCooldown,
		maxHistory: cfg.AlertMaxHistory,
		now:        time.Now,
	}
}

// AddRule appends a rule; evaluation order is insertion order.
func (e *Engine) AddRule(r Rule) {
	e.mu.Lock()
	e.rules = append(e.rules, &r)
	e.mu.Unlock()
}

// AddNotifier registers a delivery channel.
func (e *Engine) AddNotifier(n Notifier) {
	e.mu.Lock()
	e.notifiers = append(e.notifiers, n)
	e.mu.Unlock()
}

// RemoveRule deletes a rule by name. Returns false when no rule matches.
func (e *Engine) RemoveRule(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, r := range e.rules {
		if r.Name == name {
			e.rules = append(e.rules[:i], e.rules[i+1:]...)
			return true
		}
	}
	return false
}

// SetRuleEnabled flips a rule's disabled flag. Returns false when no rule
// matches.
func (e *Engine) SetRuleEnabled(name string, enabled bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range e.rules {
		if r.Name == name {
			r.Disabled = !enabled
			return true
		}
	}
	return false
}

// Rules returns a snapshot of the configured rules.
func (e *Engine) Rules() []Rule {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Rule, len(e.rules))
	for i, r := range e.rules {
		out[i] = *r
	}
	return out
}

// cooldownKey is the rule name by default: once a rule fires it stays quiet
// everywhere until the cooldown passes. Rules can opt into independent
// per-subreddit cooldowns.
func cooldownKey(rule *Rule, subreddit string) string {
	if rule.PerSubredditCooldown {
		return rule.Name + "\x00" + subreddit
	}
	return rule.Name
}

// CheckRules returns one alert per matching, non-cooled rule. The cooldown is
// recorded at match time, before delivery, so a failed delivery still
// suppresses repeats.
func (e *Engine) CheckRules(u monitor.Update) []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	var alerts []Alert
	for _, rule := range e.rules {
		if rule.Disabled || !rule.Matches(u) {
			continue
		}
		cd := rule.Cooldown
		if cd <= 0 {
			cd = e.cooldown
		}
		key := cooldownKey(rule, u.Subreddit)
		if last, ok := e.lastFired[key]; ok && now.Sub(last) < cd {
			metrics.AlertsSuppressed.Inc()
			logger.Debug("alert suppressed by cooldown", "rule", rule.Name, "subreddit", u.Subreddit)
			continue
		}
		e.lastFired[key] = now

		a := newAlert(rule, u, now)
		alerts = append(alerts, a)
		metrics.AlertsTriggered.WithLabelValues(u.Type).Inc()
	}
	return alerts
}

// ProcessAlert delivers the alert through the triggering rule's notifiers
// (all registered notifiers when the rule names none), records the delivery
// outcome on the alert and pushes it onto the history ring. Notifier failures
// are logged, counted and never block the other notifiers.
func (e *Engine) ProcessAlert(ctx context.Context, a Alert) {
	e.mu.Lock()
	var wanted []string
	for _, r := range e.rules {
		if r.Name == a.RuleName {
			wanted = r.Notifiers
			break
		}
	}
	notifiers := make([]Notifier, 0, len(e.notifiers))
	if len(wanted) == 0 {
		notifiers = append(notifiers, e.notifiers...)
	} else {
		for _, n := range e.notifiers {
			if containsFold(wanted, n.Name()) {
				notifiers = append(notifiers, n)
			}
		}
	}
	e.mu.Unlock()

	var failures []string
	for _, n := range notifiers {
		if err := n.Send(ctx, a); err != nil {
			metrics.NotifierSends.WithLabelValues(n.Name(), "error").Inc()
			logger.Warn("notifier failed", "notifier", n.Name(), "rule", a.RuleName, "error", err)
			failures = append(failures, n.Name()+": "+err.Error())
			continue
		}
		metrics.NotifierSends.WithLabelValues(n.Name(), "success").Inc()
		a.SentTo = append(a.SentTo, n.Name())
	}
	a.Sent = len(a.SentTo) > 0
	a.Error = strings.Join(failures, "; ")

	e.mu.Lock()
	e.history = append(e.history, a)
	if e.maxHistory > 0 && len(e.history) > e.maxHistory {
		e.history = e.history[len(e.history)-e.maxHistory:]
	}
	e.mu.Unlock()
}

// HandleUpdate runs the full path: rule matching then delivery.
func (e *Engine) HandleUpdate(ctx context.Context, u monitor.Update) {
	for _, a := range e.CheckRules(u) {
		e.ProcessAlert(ctx, a)
	}
}

// Run consumes a monitor subscription until the context ends or the
// subscription closes.
func (e *Engine) Run(ctx context.Context, sub monitor.Subscription) {
	logger.Info("alert engine consuming updates", "subscription", sub.ID)
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-sub.C:
			if !ok {
				logger.Warn("alert engine subscription closed", "subscription", sub.ID)
				return
			}
			e.HandleUpdate(ctx, u)
		}
	}
}

// History returns recent alerts, newest first, up to limit.
func (e *Engine) History(limit int) []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()
	if limit <= 0 || limit > len(e.history) {
		limit = len(e.history)
	}
	out := make([]Alert, limit)
	for i := 0; i < limit; i++ {
		out[i] = e.history[len(e.history)-1-i]
	}
	return out
}
