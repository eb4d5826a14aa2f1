package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/onnwee/reddit-pulse/internal/logger"
)

// TriggerCollect kicks off a collection run without waiting for it.
// POST /collect
func TriggerCollect(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Scheduler == nil {
			writeError(w, http.StatusServiceUnavailable, "scheduler not configured")
			return
		}
		if d.Scheduler.IsRunning() {
			writeError(w, http.StatusConflict, "a collection run is already in progress")
			return
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
			defer cancel()
			run, started := d.Scheduler.RunOnce(ctx, "manual")
			if started {
				logger.Info("manual collection finished", "run_id", run.ID, "posts_saved", run.Result.PostsSaved)
			}
		}()
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "collection started"})
	}
}

// GetRuns lists recent collection runs, newest first.
// GET /collect/runs
func GetRuns(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Scheduler == nil {
			writeError(w, http.StatusServiceUnavailable, "scheduler not configured")
			return
		}
		writeJSON(w, http.StatusOK, d.Scheduler.History())
	}
}
