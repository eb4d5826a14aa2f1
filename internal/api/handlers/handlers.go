// Package handlers implements the HTTP surface: stored-content reads,
// operational status, alert management and the live update streams.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/onnwee/reddit-pulse/internal/alert"
	"github.com/onnwee/reddit-pulse/internal/db"
	"github.com/onnwee/reddit-pulse/internal/logger"
	"github.com/onnwee/reddit-pulse/internal/monitor"
	"github.com/onnwee/reddit-pulse/internal/scheduler"
	"github.com/onnwee/reddit-pulse/internal/source"
)

// Deps carries the services the handlers read from.
type Deps struct {
	Store     *db.Store
	Source    *source.Source
	Scheduler *scheduler.Service
	Monitor   *monitor.Manager
	Alerts    *alert.Engine
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// pagination reads limit/offset query params with sane bounds.
func pagination(r *http.Request, defaultLimit, maxLimit int) (limit, offset int) {
	limit = defaultLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}
