package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Outbound HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reddit_http_requests_total",
			Help: "Total number of HTTP requests made to Reddit endpoints",
		},
		[]string{"status"}, // status: success, retry, error
	)

	HTTPRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reddit_http_retries_total",
			Help: "Total number of HTTP request retries",
		},
	)

	RateLimitWaits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reddit_rate_limit_waits_total",
			Help: "Total number of times a request waited on the rate limiter",
		},
	)

	RetryAfterWaits = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reddit_retry_after_wait_seconds",
			Help:    "Duration of Retry-After waits in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	// Unified data source metrics
	SourceFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_fetches_total",
			Help: "Total fetches through the unified data source",
		},
		[]string{"backend", "outcome"}, // backend: api, scraping; outcome: success, failure, fallback
	)

	SourceBackendDisabled = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "source_backend_disabled",
			Help: "Whether a backend is currently disabled (1) or available (0)",
		},
		[]string{"backend"},
	)

	SourceFailureCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "source_backend_failure_count",
			Help: "Consecutive failure count per backend",
		},
		[]string{"backend"},
	)

	// Pipeline metrics
	PipelinePosts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_posts_total",
			Help: "Posts handled by the ingestion pipeline",
		},
		[]string{"outcome"}, // outcome: new, duplicate, filtered, error
	)

	PipelineComments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_comments_total",
			Help: "Comments handled by the ingestion pipeline",
		},
		[]string{"outcome"},
	)

	PipelineSaveDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_save_duration_seconds",
			Help:    "Duration of batched upserts",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"entity"}, // entity: post, comment, subreddit
	)

	// Scheduler metrics
	SchedulerRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_runs_total",
			Help: "Total scheduler runs",
		},
		[]string{"status"}, // status: success, failed
	)

	SchedulerRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scheduler_run_duration_seconds",
			Help:    "Duration of scheduler runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Monitor metrics
	MonitorPolls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_polls_total",
			Help: "Total monitor polls per subreddit",
		},
		[]string{"subreddit", "status"}, // status: ok, error
	)

	MonitorUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_updates_total",
			Help: "Updates emitted by monitors",
		},
		[]string{"type"}, // type: new_post, activity_spike, keyword_surge, status
	)

	MonitorSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "monitor_subscribers_active",
			Help: "Number of active monitor subscribers",
		},
	)

	MonitorDroppedSubscribers = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "monitor_dropped_subscribers_total",
			Help: "Subscribers dropped because their queue was full",
		},
	)

	// Alert engine metrics
	AlertsTriggered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_triggered_total",
			Help: "Alerts triggered by rule evaluation",
		},
		[]string{"type"},
	)

	AlertsSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alerts_suppressed_total",
			Help: "Alerts suppressed by cooldown",
		},
	)

	NotifierSends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_sends_total",
			Help: "Notifier delivery attempts",
		},
		[]string{"notifier", "status"}, // status: success, failure
	)

	// API request metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"endpoint", "method", "status"},
	)

	StreamConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stream_connections_active",
			Help: "Number of active SSE/WebSocket stream connections",
		},
	)
)
