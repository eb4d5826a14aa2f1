package alert

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/onnwee/reddit-pulse/internal/monitor"
)

type fakeNotifier struct {
	mu   sync.Mutex
	name string
	sent []Alert
	err  error
}

func (f *fakeNotifier) Name() string { return f.name }

func (f *fakeNotifier) Send(ctx context.Context, a Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, a)
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func testEngine(cooldown time.Duration) (*Engine, *time.Time) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	e := &Engine{
		lastFired:  make(map[string]time.Time),
		cooldown:   cooldown,
		maxHistory: 1000,
		now:        func() time.Time { return now },
	}
	return e, &now
}

func update(typ, subreddit string) monitor.Update {
	return monitor.Update{Type: typ, Subreddit: subreddit, Timestamp: time.Now().UTC()}
}

func TestRuleMatching(t *testing.T) {
	payload, _ := json.Marshal(map[string]string{"title": "Major Outage reported"})
	cases := []struct {
		name string
		rule Rule
		u    monitor.Update
		want bool
	}{
		{"empty rule matches all", Rule{Name: "all"}, update("new_post", "golang"), true},
		{"type match", Rule{Name: "r", Types: []string{"activity_spike"}}, update("activity_spike", "golang"), true},
		{"type mismatch", Rule{Name: "r", Types: []string{"activity_spike"}}, update("new_post", "golang"), false},
		{"subreddit match", Rule{Name: "r", Subreddits: []string{"GoLang"}}, update("new_post", "golang"), true},
		{"subreddit mismatch", Rule{Name: "r", Subreddits: []string{"rust"}}, update("new_post", "golang"), false},
		{
			"keyword match",
			Rule{Name: "r", Keywords: []string{"outage"}},
			monitor.Update{Type: "new_post", Subreddit: "golang", Data: payload},
			true,
		},
		{
			"keyword mismatch",
			Rule{Name: "r", Keywords: []string{"breach"}},
			monitor.Update{Type: "new_post", Subreddit: "golang", Data: payload},
			false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.rule.Matches(tc.u); got != tc.want {
				t.Errorf("Matches = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCheckRulesInsertionOrder(t *testing.T) {
	e, _ := testEngine(time.Minute)
	e.AddRule(Rule{Name: "first"})
	e.AddRule(Rule{Name: "second"})

	alerts := e.CheckRules(update("new_post", "golang"))
	if len(alerts) != 2 {
		t.Fatalf("alerts = %d, want 2", len(alerts))
	}
	if alerts[0].RuleName != "first" || alerts[1].RuleName != "second" {
		t.Errorf("order = %s, %s", alerts[0].RuleName, alerts[1].RuleName)
	}
}

func TestCooldownSuppressesRepeats(t *testing.T) {
	e, now := testEngine(5 * time.Minute)
	e.AddRule(Rule{Name: "r"})

	if got := len(e.CheckRules(update("new_post", "golang"))); got != 1 {
		t.Fatalf("first match = %d alerts", got)
	}
	if got := len(e.CheckRules(update("new_post", "golang"))); got != 0 {
		t.Errorf("repeat within cooldown = %d alerts, want 0", got)
	}

	// The cooldown is tracked per rule, so another subreddit is quiet too.
	if got := len(e.CheckRules(update("new_post", "rust"))); got != 0 {
		t.Errorf("other subreddit within cooldown = %d alerts, want 0", got)
	}

	*now = now.Add(5 * time.Minute)
	if got := len(e.CheckRules(update("new_post", "golang"))); got != 1 {
		t.Errorf("after cooldown expiry = %d alerts, want 1", got)
	}
}

func TestPerSubredditCooldownOption(t *testing.T) {
	e, _ := testEngine(5 * time.Minute)
	e.AddRule(Rule{Name: "r", PerSubredditCooldown: true})

	if got := len(e.CheckRules(update("new_post", "golang"))); got != 1 {
		t.Fatalf("first match = %d alerts", got)
	}
	if got := len(e.CheckRules(update("new_post", "golang"))); got != 0 {
		t.Errorf("repeat within cooldown = %d alerts, want 0", got)
	}
	if got := len(e.CheckRules(update("new_post", "rust"))); got != 1 {
		t.Errorf("other subreddit with per-subreddit option = %d alerts, want 1", got)
	}
}

func TestCooldownRecordedBeforeDelivery(t *testing.T) {
	e, _ := testEngine(5 * time.Minute)
	e.AddRule(Rule{Name: "r"})
	failing := &fakeNotifier{name: "down", err: errors.New("smtp down")}
	e.AddNotifier(failing)

	ctx := context.Background()
	e.HandleUpdate(ctx, update("new_post", "golang"))
	// Delivery failed, but the match still started the cooldown.
	if got := len(e.CheckRules(update("new_post", "golang"))); got != 0 {
		t.Errorf("failed delivery should not reopen the cooldown, got %d alerts", got)
	}
}

func TestRuleCooldownOverride(t *testing.T) {
	e, now := testEngine(5 * time.Minute)
	e.AddRule(Rule{Name: "fast", Cooldown: time.Minute})

	e.CheckRules(update("new_post", "golang"))
	*now = now.Add(2 * time.Minute)
	if got := len(e.CheckRules(update("new_post", "golang"))); got != 1 {
		t.Errorf("rule override cooldown should have expired, got %d", got)
	}
}

func TestProcessAlertDeliversToAllNotifiers(t *testing.T) {
	e, _ := testEngine(time.Minute)
	good := &fakeNotifier{name: "good"}
	bad := &fakeNotifier{name: "bad", err: errors.New("boom")}
	good2 := &fakeNotifier{name: "good2"}
	e.AddNotifier(good)
	e.AddNotifier(bad)
	e.AddNotifier(good2)

	e.ProcessAlert(context.Background(), Alert{ID: "a1", RuleName: "r"})
	if good.count() != 1 || good2.count() != 1 {
		t.Error("a failing notifier must not block the others")
	}
}

func TestHistoryRing(t *testing.T) {
	e, _ := testEngine(time.Minute)
	e.maxHistory = 3
	for i := 0; i < 5; i++ {
		e.ProcessAlert(context.Background(), Alert{ID: string(rune('a' + i))})
	}
	hist := e.History(0)
	if len(hist) != 3 {
		t.Fatalf("history = %d, want 3", len(hist))
	}
	if hist[0].ID != "e" || hist[2].ID != "c" {
		t.Errorf("history order = %s..%s, want newest first", hist[0].ID, hist[2].ID)
	}
}

func TestHistoryLimit(t *testing.T) {
	e, _ := testEngine(time.Minute)
	for i := 0; i < 10; i++ {
		e.ProcessAlert(context.Background(), Alert{ID: string(rune('a' + i))})
	}
	if got := len(e.History(4)); got != 4 {
		t.Errorf("History(4) = %d entries", got)
	}
}

func TestDisabledRuleDoesNotFire(t *testing.T) {
	e, _ := testEngine(time.Minute)
	e.AddRule(Rule{Name: "all"})

	if !e.SetRuleEnabled("all", false) {
		t.Fatal("SetRuleEnabled returned false for existing rule")
	}
	if got := e.CheckRules(update("new_post", "golang")); len(got) != 0 {
		t.Fatalf("disabled rule fired: %v", got)
	}

	if !e.SetRuleEnabled("all", true) {
		t.Fatal("re-enable failed")
	}
	if got := e.CheckRules(update("new_post", "golang")); len(got) != 1 {
		t.Fatalf("re-enabled rule did not fire: %v", got)
	}
}

func TestRemoveRule(t *testing.T) {
	e, _ := testEngine(time.Minute)
	e.AddRule(Rule{Name: "a"})
	e.AddRule(Rule{Name: "b"})

	if !e.RemoveRule("a") {
		t.Fatal("RemoveRule returned false for existing rule")
	}
	if e.RemoveRule("a") {
		t.Fatal("second RemoveRule should return false")
	}
	rules := e.Rules()
	if len(rules) != 1 || rules[0].Name != "b" {
		t.Fatalf("rules after removal = %+v", rules)
	}
}

func TestSetRuleEnabledUnknownRule(t *testing.T) {
	e, _ := testEngine(time.Minute)
	if e.SetRuleEnabled("nope", false) {
		t.Fatal("SetRuleEnabled should return false for unknown rule")
	}
}

func TestConditionEvaluation(t *testing.T) {
	payload, _ := json.Marshal(map[string]float64{"posts_per_hour": 150})
	u := monitor.Update{Type: "activity_spike", Subreddit: "python", Data: payload}

	cases := []struct {
		name string
		cond Condition
		want bool
	}{
		{"ge match", Condition{Field: "posts_per_hour", Comparison: "ge", Threshold: 100}, true},
		{"ge boundary", Condition{Field: "posts_per_hour", Comparison: "ge", Threshold: 150}, true},
		{"gt miss", Condition{Field: "posts_per_hour", Comparison: "gt", Threshold: 150}, false},
		{"lt miss", Condition{Field: "posts_per_hour", Comparison: "lt", Threshold: 100}, false},
		{"missing field reads as zero", Condition{Field: "absent", Comparison: "lt", Threshold: 1}, true},
		{"missing field ge fails", Condition{Field: "absent", Comparison: "ge", Threshold: 1}, false},
		{"unknown comparison falls back to ge", Condition{Field: "posts_per_hour", Comparison: "wat", Threshold: 100}, true},
		{"unknown comparison ge miss", Condition{Field: "posts_per_hour", Comparison: "wat", Threshold: 200}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := Rule{Name: "r", Condition: &tc.cond}
			if got := r.Matches(u); got != tc.want {
				t.Errorf("Matches = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestConditionRuleCooldownScenario(t *testing.T) {
	e, _ := testEngine(5 * time.Minute)
	e.AddRule(Rule{
		Name:       "hot",
		Subreddits: []string{"python"},
		Condition:  &Condition{Field: "posts_per_hour", Comparison: "ge", Threshold: 100},
	})

	payload, _ := json.Marshal(map[string]float64{"posts_per_hour": 150})
	u := monitor.Update{Type: "activity_spike", Subreddit: "python", Data: payload}

	first := e.CheckRules(u)
	if len(first) != 1 {
		t.Fatalf("first check = %d alerts, want 1", len(first))
	}
	if first[0].Value != 150 {
		t.Errorf("Value = %v, want 150", first[0].Value)
	}
	if second := e.CheckRules(u); len(second) != 0 {
		t.Errorf("second check within cooldown = %d alerts, want 0", len(second))
	}
}

func TestProcessAlertRecordsDeliveryOutcome(t *testing.T) {
	e, _ := testEngine(time.Minute)
	good := &fakeNotifier{name: "good"}
	bad := &fakeNotifier{name: "bad", err: errors.New("boom")}
	e.AddNotifier(good)
	e.AddNotifier(bad)

	e.ProcessAlert(context.Background(), Alert{ID: "a1", RuleName: "r"})

	hist := e.History(1)
	if len(hist) != 1 {
		t.Fatalf("history = %d entries", len(hist))
	}
	a := hist[0]
	if !a.Sent {
		t.Error("Sent should be true when at least one notifier succeeded")
	}
	if len(a.SentTo) != 1 || a.SentTo[0] != "good" {
		t.Errorf("SentTo = %v, want [good]", a.SentTo)
	}
	if a.Error == "" {
		t.Error("Error should carry the failed notifier's message")
	}
}

func TestProcessAlertHonorsRuleNotifierList(t *testing.T) {
	e, _ := testEngine(time.Minute)
	e.AddRule(Rule{Name: "narrow", Notifiers: []string{"slack"}})
	slack := &fakeNotifier{name: "slack"}
	email := &fakeNotifier{name: "email"}
	e.AddNotifier(slack)
	e.AddNotifier(email)

	e.ProcessAlert(context.Background(), Alert{ID: "a1", RuleName: "narrow"})

	if slack.count() != 1 {
		t.Error("named notifier not invoked")
	}
	if email.count() != 0 {
		t.Error("unnamed notifier should not be invoked")
	}
}
