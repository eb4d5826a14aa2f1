// Package api wires the HTTP router: middleware chain, REST routes and the
// live streaming endpoints.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onnwee/reddit-pulse/internal/api/handlers"
	"github.com/onnwee/reddit-pulse/internal/config"
	"github.com/onnwee/reddit-pulse/internal/middleware"
)

// NewRouter builds the router. Stream routes skip gzip so events are flushed
// as they happen; everything else goes through the full chain.
func NewRouter(d handlers.Deps) *mux.Router {
	cfg := config.Load()

	r := mux.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recover)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins
	r.Use(middleware.CORS(corsCfg))

	if cfg.EnableRateLimit {
		limiter := middleware.NewRateLimiter(cfg.RateLimitPerIP, cfg.RateLimitPerIPBurst)
		r.Use(limiter.Limit)
	}

	// Health and metrics
	r.HandleFunc("/health", handlers.Health(d)).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Streaming (no gzip: buffering would hold back events)
	r.HandleFunc("/stream", handlers.StreamUpdates(d)).Methods("GET")
	r.HandleFunc("/stream/{subreddit}", handlers.StreamUpdates(d)).Methods("GET")
	r.HandleFunc("/ws", handlers.StreamWebSocket(d)).Methods("GET")
	r.HandleFunc("/ws/{subreddit}", handlers.StreamWebSocket(d)).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Gzip)

	// Subreddits
	api.HandleFunc("/subreddits", handlers.GetSubreddits(d)).Methods("GET")
	api.HandleFunc("/subreddits/{name}", handlers.GetSubreddit(d)).Methods("GET")
	api.HandleFunc("/subreddits/{name}/posts", handlers.GetSubredditPosts(d)).Methods("GET")

	// Posts
	api.HandleFunc("/posts", handlers.GetPosts(d)).Methods("GET")
	api.HandleFunc("/posts/top", handlers.GetTopPosts(d)).Methods("GET")
	api.HandleFunc("/posts/{reddit_id}", handlers.GetPost(d)).Methods("GET")
	api.HandleFunc("/posts/{reddit_id}/comments", handlers.GetPostComments(d)).Methods("GET")

	// Live search through the data source
	api.HandleFunc("/search/subreddits", handlers.SearchSubreddits(d)).Methods("GET")

	// Collection
	api.HandleFunc("/collect", handlers.TriggerCollect(d)).Methods("POST")
	api.HandleFunc("/collect/runs", handlers.GetRuns(d)).Methods("GET")

	// Monitor control
	api.HandleFunc("/monitor", handlers.GetMonitorStatus(d)).Methods("GET")
	api.HandleFunc("/monitor/{name}/start", handlers.StartMonitor(d)).Methods("POST")
	api.HandleFunc("/monitor/{name}/stop", handlers.StopMonitor(d)).Methods("POST")

	// Alerts
	api.HandleFunc("/alerts", handlers.GetAlerts(d)).Methods("GET")
	api.HandleFunc("/alerts/rules", handlers.GetAlertRules(d)).Methods("GET")
	api.HandleFunc("/alerts/rules", handlers.CreateAlertRule(d)).Methods("POST")
	api.HandleFunc("/alerts/rules/{name}", handlers.DeleteAlertRule(d)).Methods("DELETE")
	api.HandleFunc("/alerts/rules/{name}/enable", handlers.SetAlertRuleEnabled(d, true)).Methods("POST")
	api.HandleFunc("/alerts/rules/{name}/disable", handlers.SetAlertRuleEnabled(d, false)).Methods("POST")

	// Status
	api.HandleFunc("/status", handlers.Status(d)).Methods("GET")

	return r
}

// NewServer wraps the router in an http.Server with sane timeouts. Write
// timeout stays 0 so long-lived stream connections are not cut off.
func NewServer(d handlers.Deps) *http.Server {
	cfg := config.Load()
	return &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: NewRouter(d),
	}
}
