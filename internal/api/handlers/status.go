package handlers

import (
	"net/http"
	"time"

	"github.com/onnwee/reddit-pulse/internal/monitor"
	"github.com/onnwee/reddit-pulse/internal/scheduler"
	"github.com/onnwee/reddit-pulse/internal/source"
)

// Health reports liveness including database reachability.
// GET /health
func Health(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK
		dbStatus := "ok"
		if d.Store != nil {
			if err := d.Store.DB().PingContext(r.Context()); err != nil {
				status, dbStatus = "degraded", "unreachable"
				code = http.StatusServiceUnavailable
			}
		} else {
			dbStatus = "not configured"
		}
		writeJSON(w, code, map[string]string{
			"status":   status,
			"database": dbStatus,
			"time":     time.Now().UTC().Format(time.RFC3339),
		})
	}
}

type statusResponse struct {
	Source    source.Status   `json:"source"`
	Monitor   monitor.Status  `json:"monitor"`
	Scheduler schedulerStatus `json:"scheduler"`
	Counts    contentCounts   `json:"counts"`
}

type schedulerStatus struct {
	Running  bool            `json:"running"`
	Interval string          `json:"interval"`
	LastRuns []scheduler.Run `json:"last_runs"`
}

type contentCounts struct {
	Posts    int64 `json:"posts"`
	Comments int64 `json:"comments"`
}

// Status reports the operational state of the whole service.
// GET /status
func Status(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := statusResponse{}
		if d.Source != nil {
			resp.Source = d.Source.Status()
		}
		if d.Monitor != nil {
			resp.Monitor = d.Monitor.Status()
		}
		if d.Scheduler != nil {
			history := d.Scheduler.History()
			if len(history) > 5 {
				history = history[:5]
			}
			resp.Scheduler = schedulerStatus{
				Running:  d.Scheduler.IsRunning(),
				Interval: d.Scheduler.Interval().String(),
				LastRuns: history,
			}
		}
		if d.Store != nil {
			if n, err := d.Store.Posts.Count(r.Context()); err == nil {
				resp.Counts.Posts = n
			}
			if n, err := d.Store.Comments.Count(r.Context()); err == nil {
				resp.Counts.Comments = n
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
