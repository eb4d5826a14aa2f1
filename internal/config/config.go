package config

import (
	"os"
	"strings"
	"time"

	"github.com/onnwee/reddit-pulse/internal/utils"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	// Reddit OAuth (API backend) configuration
	RedditClientID     string
	RedditClientSecret string
	UserAgent          string
	// Scraper (public JSON backend) configuration
	ScrapeBaseURL string
	// Outbound HTTP behavior
	HTTPMaxRetries int
	HTTPRetryBase  time.Duration
	HTTPTimeout    time.Duration
	LogHTTPRetries bool
	// Outbound rate limiting
	RequestsPerMinute int
	TokensPerMinute   int
	// Data source strategy: api_only, scraper_only, api_first, scraper_first
	SourceStrategy string
	// Postgres
	DatabaseURL     string
	DBMaxOpenConns  int
	DBMaxIdleConns  int
	DBConnLifetime  time.Duration
	UpsertBatchSize int
	// Collector / scheduler
	Subreddits      []string
	IntervalMinutes int
	PostsSort       string
	PostsTimeFilter string
	PostsPerSub     int
	IncludeComments bool
	CommentsPerPost int
	// Monitor
	MonitorInterval  time.Duration
	MaxPostsPerPoll  int
	SpikeThreshold   float64
	ActivityWindow   int
	MonitorKeywords  []string
	// Alert engine
	AlertMaxHistory int
	AlertCooldown   time.Duration
	// Notifiers
	SMTPHost          string
	SMTPPort          int
	SMTPUser          string
	SMTPPassword      string
	SMTPFrom          string
	SMTPUseTLS        bool
	WebhookURL        string
	SlackWebhookURL   string
	SlackChannel      string
	SlackUsername     string
	SlackIconEmoji    string
	DiscordWebhookURL string
	// API server
	ServerAddr          string
	RateLimitPerIP      float64
	RateLimitPerIPBurst int
	EnableRateLimit     bool
	CORSAllowedOrigins  []string
	// Observability
	LogLevel          string
	OTELEnabled       bool
	OTELEndpoint      string
	OTELSampleRate    float64
	SentryDSN         string
	SentryEnvironment string
	SentryRelease     string
}

var cached *Config

// Load reads env vars once and caches them.
func Load() *Config {
	if cached != nil {
		return cached
	}
	ua := os.Getenv("REDDIT_USER_AGENT")
	if strings.TrimSpace(ua) == "" {
		ua = "reddit-pulse/0.1"
	}
	base := strings.TrimSpace(os.Getenv("SCRAPE_BASE_URL"))
	if base == "" {
		base = "https://www.reddit.com"
	}
	cached = &Config{
		RedditClientID:     strings.TrimSpace(os.Getenv("REDDIT_CLIENT_ID")),
		RedditClientSecret: strings.TrimSpace(os.Getenv("REDDIT_CLIENT_SECRET")),
		UserAgent:          ua,
		ScrapeBaseURL:      strings.TrimRight(base, "/"),

		HTTPMaxRetries: utils.GetEnvAsInt("HTTP_MAX_RETRIES", 3),
		HTTPRetryBase:  time.Duration(utils.GetEnvAsInt("HTTP_RETRY_BASE_MS", 300)) * time.Millisecond,
		HTTPTimeout:    time.Duration(utils.GetEnvAsInt("HTTP_TIMEOUT_MS", 15000)) * time.Millisecond,
		LogHTTPRetries: utils.GetEnvAsBool("LOG_HTTP_RETRIES", false),

		RequestsPerMinute: utils.GetEnvAsInt("REQUESTS_PER_MINUTE", 60),
		TokensPerMinute:   utils.GetEnvAsInt("TOKENS_PER_MINUTE", 100000),

		SourceStrategy: strings.ToLower(strings.TrimSpace(os.Getenv("SOURCE_STRATEGY"))),

		DatabaseURL:     strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxOpenConns:  utils.GetEnvAsInt("DB_MAX_OPEN_CONNS", 10),
		DBMaxIdleConns:  utils.GetEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		DBConnLifetime:  time.Duration(utils.GetEnvAsInt("DB_CONN_LIFETIME_MINUTES", 30)) * time.Minute,
		UpsertBatchSize: utils.GetEnvAsInt("UPSERT_BATCH_SIZE", 500),

		Subreddits:      utils.GetEnvAsSlice("SUBREDDITS", []string{"golang"}, ","),
		IntervalMinutes: utils.GetEnvAsInt("INTERVAL_MINUTES", 60),
		PostsSort:       strings.ToLower(strings.TrimSpace(os.Getenv("POSTS_SORT"))),
		PostsTimeFilter: strings.ToLower(strings.TrimSpace(os.Getenv("POSTS_TIME_FILTER"))),
		PostsPerSub:     utils.GetEnvAsInt("MAX_POSTS_PER_SUB", 25),
		IncludeComments: utils.GetEnvAsBool("INCLUDE_COMMENTS", false),
		CommentsPerPost: utils.GetEnvAsInt("MAX_COMMENTS_PER_POST", 100),

		MonitorInterval: time.Duration(utils.GetEnvAsInt("MONITOR_INTERVAL_SECONDS", 30)) * time.Second,
		MaxPostsPerPoll: utils.GetEnvAsInt("MONITOR_MAX_POSTS", 25),
		SpikeThreshold:  utils.GetEnvAsFloat("MONITOR_SPIKE_THRESHOLD", 2.0),
		ActivityWindow:  utils.GetEnvAsInt("MONITOR_ACTIVITY_WINDOW", 10),
		MonitorKeywords: utils.GetEnvAsSlice("MONITOR_KEYWORDS", nil, ","),

		AlertMaxHistory: utils.GetEnvAsInt("ALERT_MAX_HISTORY", 1000),
		AlertCooldown:   time.Duration(utils.GetEnvAsInt("ALERT_COOLDOWN_MINUTES", 5)) * time.Minute,

		SMTPHost:     strings.TrimSpace(os.Getenv("SMTP_HOST")),
		SMTPPort:     utils.GetEnvAsInt("SMTP_PORT", 587),
		SMTPUser:     strings.TrimSpace(os.Getenv("SMTP_USER")),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     strings.TrimSpace(os.Getenv("SMTP_FROM")),
		SMTPUseTLS:   utils.GetEnvAsBool("SMTP_USE_TLS", true),

		WebhookURL:        strings.TrimSpace(os.Getenv("WEBHOOK_URL")),
		SlackWebhookURL:   strings.TrimSpace(os.Getenv("SLACK_WEBHOOK_URL")),
		SlackChannel:      strings.TrimSpace(os.Getenv("SLACK_CHANNEL")),
		SlackUsername:     strings.TrimSpace(os.Getenv("SLACK_USERNAME")),
		SlackIconEmoji:    strings.TrimSpace(os.Getenv("SLACK_ICON_EMOJI")),
		DiscordWebhookURL: strings.TrimSpace(os.Getenv("DISCORD_WEBHOOK_URL")),

		ServerAddr:          strings.TrimSpace(os.Getenv("SERVER_ADDR")),
		RateLimitPerIP:      utils.GetEnvAsFloat("RATE_LIMIT_PER_IP", 10.0),
		RateLimitPerIPBurst: utils.GetEnvAsInt("RATE_LIMIT_PER_IP_BURST", 20),
		EnableRateLimit:     utils.GetEnvAsBool("ENABLE_RATE_LIMIT", true),

		LogLevel:          strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))),
		OTELEnabled:       utils.GetEnvAsBool("OTEL_ENABLED", false),
		OTELEndpoint:      strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		OTELSampleRate:    utils.GetEnvAsFloat("OTEL_TRACE_SAMPLE_RATE", 0.1),
		SentryDSN:         strings.TrimSpace(os.Getenv("SENTRY_DSN")),
		SentryEnvironment: strings.TrimSpace(os.Getenv("SENTRY_ENVIRONMENT")),
		SentryRelease:     strings.TrimSpace(os.Getenv("SENTRY_RELEASE")),
	}
	if cached.SourceStrategy == "" {
		cached.SourceStrategy = "api_first"
	}
	if cached.PostsSort == "" {
		cached.PostsSort = "hot"
	}
	if cached.PostsTimeFilter == "" {
		cached.PostsTimeFilter = "day"
	}
	if cached.IntervalMinutes < 1 {
		cached.IntervalMinutes = 1
	}
	if cached.LogLevel == "" {
		cached.LogLevel = "info"
	}
	if cached.ServerAddr == "" {
		cached.ServerAddr = ":8000"
	}
	if cached.SentryEnvironment == "" {
		if env := os.Getenv("ENV"); env != "" {
			cached.SentryEnvironment = env
		} else {
			cached.SentryEnvironment = "development"
		}
	}

	corsOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if corsOrigins == "" {
		cached.CORSAllowedOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	} else {
		cached.CORSAllowedOrigins = strings.Split(corsOrigins, ",")
		for i := range cached.CORSAllowedOrigins {
			cached.CORSAllowedOrigins[i] = strings.TrimSpace(cached.CORSAllowedOrigins[i])
		}
	}

	return cached
}

// ResetForTest clears cached config; for use in tests only.
func ResetForTest() { cached = nil }
