package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/onnwee/reddit-pulse/internal/alert"
)

// Webhook POSTs the full alert as JSON to a configured endpoint.
type Webhook struct {
	url    string
	client *http.Client
}

func NewWebhook(url string) *Webhook {
	return &Webhook{url: url, client: &http.Client{Timeout: httpTimeout}}
}

func (w *Webhook) Name() string { return "webhook" }

// webhookPayload is the wire shape; the raw monitor payload rides along as
// data so receivers can do their own routing.
type webhookPayload struct {
	ID          string          `json:"id"`
	Rule        string          `json:"rule"`
	Type        string          `json:"type"`
	Subreddit   string          `json:"subreddit"`
	Message     string          `json:"message"`
	Value       float64         `json:"value,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
	TriggeredAt time.Time       `json:"triggered_at"`
}

func (w *Webhook) Send(ctx context.Context, a alert.Alert) error {
	return postJSON(ctx, w.client, w.url, webhookPayload{
		ID:          a.ID,
		Rule:        a.RuleName,
		Type:        a.Type,
		Subreddit:   a.Subreddit,
		Message:     a.Message,
		Value:       a.Value,
		Data:        a.Update.Data,
		TriggeredAt: a.CreatedAt,
	})
}
