// Package notify implements the delivery channels the alert engine routes
// through: console, generic webhook, Slack, Discord and SMTP email.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/onnwee/reddit-pulse/internal/alert"
	"github.com/onnwee/reddit-pulse/internal/config"
	"github.com/onnwee/reddit-pulse/internal/logger"
)

// httpTimeout bounds each outbound delivery request.
const httpTimeout = 10 * time.Second

// FromConfig builds every notifier the environment configures. An empty
// setup yields just the console notifier so alerts are never silently lost.
func FromConfig() []alert.Notifier {
	cfg := config.Load()
	var out []alert.Notifier

	if cfg.SMTPHost != "" && cfg.SMTPFrom != "" {
		out = append(out, NewEmail())
	}
	if cfg.WebhookURL != "" {
		out = append(out, NewWebhook(cfg.WebhookURL))
	}
	if cfg.SlackWebhookURL != "" {
		out = append(out, NewSlack())
	}
	if cfg.DiscordWebhookURL != "" {
		out = append(out, NewDiscord())
	}
	if len(out) == 0 {
		out = append(out, NewConsole())
	}
	return out
}

// Console logs alerts through the application logger.
type Console struct{}

func NewConsole() *Console { return &Console{} }

func (c *Console) Name() string { return "console" }

func (c *Console) Send(ctx context.Context, a alert.Alert) error {
	logger.Info("ALERT",
		"rule", a.RuleName,
		"type", a.Type,
		"subreddit", a.Subreddit,
		"message", a.Message,
		"alert_id", a.ID,
	)
	return nil
}

// postJSON sends a JSON payload and treats any non-2xx status as an error.
func postJSON(ctx context.Context, client *http.Client, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("delivery rejected: status %d", resp.StatusCode)
	}
	return nil
}
