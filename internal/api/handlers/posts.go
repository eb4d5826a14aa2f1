package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// GetPosts lists recent stored posts across all subreddits.
// GET /posts
func GetPosts(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := pagination(r, 100, 500)
		posts, err := d.Store.Posts.ListRecent(r.Context(), limit, offset)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list posts")
			return
		}
		writeJSON(w, http.StatusOK, posts)
	}
}

// GetTopPosts lists the highest-scoring posts within a time window.
// GET /posts/top?hours=24
func GetTopPosts(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hours := 24
		if v := r.URL.Query().Get("hours"); v != "" {
			if parsed, err := time.ParseDuration(v + "h"); err == nil && parsed > 0 {
				hours = int(parsed.Hours())
			}
		}
		limit, _ := pagination(r, 100, 500)
		posts, err := d.Store.Posts.ListTop(r.Context(), time.Now().Add(-time.Duration(hours)*time.Hour), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list top posts")
			return
		}
		writeJSON(w, http.StatusOK, posts)
	}
}

// GetPost returns one post by its reddit id.
// GET /posts/{reddit_id}
func GetPost(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		post, err := d.Store.Posts.GetByRedditID(r.Context(), mux.Vars(r)["reddit_id"])
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load post")
			return
		}
		if post == nil {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		writeJSON(w, http.StatusOK, post)
	}
}

// GetPostComments lists a stored post's comments in tree order.
// GET /posts/{reddit_id}/comments
func GetPostComments(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		post, err := d.Store.Posts.GetByRedditID(r.Context(), mux.Vars(r)["reddit_id"])
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load post")
			return
		}
		if post == nil {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		limit, offset := pagination(r, 200, 1000)
		comments, err := d.Store.Comments.ListByPost(r.Context(), post.ID, limit, offset)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list comments")
			return
		}
		writeJSON(w, http.StatusOK, comments)
	}
}
