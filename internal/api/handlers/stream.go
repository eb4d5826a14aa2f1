package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/onnwee/reddit-pulse/internal/logger"
	"github.com/onnwee/reddit-pulse/internal/metrics"
	"github.com/onnwee/reddit-pulse/internal/monitor"
	"github.com/onnwee/reddit-pulse/internal/utils"
)

// keepAliveInterval spaces SSE comment lines so idle connections are not
// closed by intermediaries.
const keepAliveInterval = 15 * time.Second

// streamFilter reads the optional {subreddit} route variable. Empty means
// every update.
func streamFilter(r *http.Request) string {
	return utils.NormalizeSubreddit(mux.Vars(r)["subreddit"])
}

func wantUpdate(filter string, u monitor.Update) bool {
	return filter == "" || u.Subreddit == filter
}

// StreamUpdates streams monitor updates as server-sent events, optionally
// narrowed to one subreddit. The route must be mounted outside the gzip
// middleware so events are flushed immediately.
// GET /stream, GET /stream/{subreddit}
func StreamUpdates(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Monitor == nil {
			writeError(w, http.StatusServiceUnavailable, "monitor not configured")
			return
		}
		filter := streamFilter(r)
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		sub := d.Monitor.Subscribe()
		defer d.Monitor.Unsubscribe(sub.ID)

		metrics.StreamConnections.Inc()
		defer metrics.StreamConnections.Dec()
		logger.Info("sse client connected", "subscriber", sub.ID)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		keepAlive := time.NewTicker(keepAliveInterval)
		defer keepAlive.Stop()

		for {
			select {
			case <-r.Context().Done():
				logger.Info("sse client disconnected", "subscriber", sub.ID)
				return
			case <-keepAlive.C:
				fmt.Fprint(w, ": keep-alive\n\n")
				flusher.Flush()
			case u, ok := <-sub.C:
				if !ok {
					// Dropped for falling behind.
					return
				}
				if !wantUpdate(filter, u) {
					continue
				}
				data, err := json.Marshal(u)
				if err != nil {
					logger.Error("marshal sse event", "error", err)
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", u.Type, data)
				flusher.Flush()
			}
		}
	}
}
