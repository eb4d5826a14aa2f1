package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/onnwee/reddit-pulse/internal/alert"
	"github.com/onnwee/reddit-pulse/internal/config"
)

// Discord posts alerts to a channel webhook as an embed.
type Discord struct {
	url    string
	client *http.Client
}

func NewDiscord() *Discord {
	return &Discord{
		url:    config.Load().DiscordWebhookURL,
		client: &http.Client{Timeout: httpTimeout},
	}
}

func (d *Discord) Name() string { return "discord" }

type discordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
}

type discordPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds,omitempty"`
}

// embed colors per update type.
var discordColors = map[string]int{
	"new_post":       0x3498db,
	"activity_spike": 0xe67e22,
	"keyword_surge":  0xe74c3c,
}

func (d *Discord) Send(ctx context.Context, a alert.Alert) error {
	color, ok := discordColors[a.Type]
	if !ok {
		color = 0x95a5a6
	}
	return postJSON(ctx, d.client, d.url, discordPayload{
		Embeds: []discordEmbed{{
			Title:       fmt.Sprintf("%s in r/%s", a.Type, a.Subreddit),
			Description: fmt.Sprintf("%s\nrule: %s", a.Message, a.RuleName),
			Color:       color,
		}},
	})
}
