package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/onnwee/reddit-pulse/internal/utils"
)

// GetMonitorStatus reports which subreddits are being watched.
// GET /monitor
func GetMonitorStatus(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Monitor == nil {
			writeError(w, http.StatusServiceUnavailable, "monitor not configured")
			return
		}
		writeJSON(w, http.StatusOK, d.Monitor.Status())
	}
}

// StartMonitor begins watching a subreddit for live updates.
// POST /monitor/{name}/start
func StartMonitor(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Monitor == nil {
			writeError(w, http.StatusServiceUnavailable, "monitor not configured")
			return
		}
		name := utils.NormalizeSubreddit(mux.Vars(r)["name"])
		if name == "" {
			writeError(w, http.StatusBadRequest, "subreddit name is required")
			return
		}
		// Monitors outlive the request.
		if !d.Monitor.StartSubreddit(context.Background(), name) {
			writeError(w, http.StatusConflict, "subreddit is already monitored")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "monitoring", "subreddit": name})
	}
}

// StopMonitor stops watching a subreddit.
// POST /monitor/{name}/stop
func StopMonitor(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Monitor == nil {
			writeError(w, http.StatusServiceUnavailable, "monitor not configured")
			return
		}
		name := utils.NormalizeSubreddit(mux.Vars(r)["name"])
		if !d.Monitor.StopSubreddit(name) {
			writeError(w, http.StatusNotFound, "subreddit is not monitored")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "stopped", "subreddit": name})
	}
}
