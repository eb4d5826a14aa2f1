package handlers

import (
	"net/http"
	"strings"
)

// SearchSubreddits proxies a subreddit search through the live data source.
// GET /search/subreddits?q=...
func SearchSubreddits(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Source == nil {
			writeError(w, http.StatusServiceUnavailable, "data source not configured")
			return
		}
		query := strings.TrimSpace(r.URL.Query().Get("q"))
		if query == "" {
			writeError(w, http.StatusBadRequest, "query parameter q is required")
			return
		}
		limit, _ := pagination(r, 25, 100)
		results, err := d.Source.SearchSubreddits(r.Context(), query, limit)
		if err != nil {
			writeError(w, http.StatusBadGateway, "subreddit search failed")
			return
		}
		writeJSON(w, http.StatusOK, results)
	}
}
