package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/onnwee/reddit-pulse/internal/alert"
	"github.com/onnwee/reddit-pulse/internal/config"
)

// Slack posts alerts to an incoming-webhook URL.
type Slack struct {
	url       string
	channel   string
	username  string
	iconEmoji string
	client    *http.Client
}

func NewSlack() *Slack {
	cfg := config.Load()
	return &Slack{
		url:       cfg.SlackWebhookURL,
		channel:   cfg.SlackChannel,
		username:  cfg.SlackUsername,
		iconEmoji: cfg.SlackIconEmoji,
		client:    &http.Client{Timeout: httpTimeout},
	}
}

func (s *Slack) Name() string { return "slack" }

type slackPayload struct {
	Text      string `json:"text"`
	Channel   string `json:"channel,omitempty"`
	Username  string `json:"username,omitempty"`
	IconEmoji string `json:"icon_emoji,omitempty"`
}

func (s *Slack) Send(ctx context.Context, a alert.Alert) error {
	text := fmt.Sprintf("*%s*: %s (rule: %s)", a.Type, a.Message, a.RuleName)
	return postJSON(ctx, s.client, s.url, slackPayload{
		Text:      text,
		Channel:   s.channel,
		Username:  s.username,
		IconEmoji: s.iconEmoji,
	})
}
