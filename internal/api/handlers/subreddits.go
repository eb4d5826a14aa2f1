package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/onnwee/reddit-pulse/internal/utils"
)

// GetSubreddits lists stored subreddits.
// GET /subreddits
func GetSubreddits(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := pagination(r, 100, 500)
		subs, err := d.Store.Subreddits.List(r.Context(), limit, offset)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list subreddits")
			return
		}
		writeJSON(w, http.StatusOK, subs)
	}
}

// GetSubreddit returns one subreddit by name.
// GET /subreddits/{name}
func GetSubreddit(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := utils.NormalizeSubreddit(mux.Vars(r)["name"])
		sub, err := d.Store.Subreddits.GetByName(r.Context(), name)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load subreddit")
			return
		}
		if sub == nil {
			writeError(w, http.StatusNotFound, "subreddit not found")
			return
		}
		writeJSON(w, http.StatusOK, sub)
	}
}

// GetSubredditPosts lists one subreddit's stored posts, newest first.
// GET /subreddits/{name}/posts
func GetSubredditPosts(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := utils.NormalizeSubreddit(mux.Vars(r)["name"])
		sub, err := d.Store.Subreddits.GetByName(r.Context(), name)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load subreddit")
			return
		}
		if sub == nil {
			writeError(w, http.StatusNotFound, "subreddit not found")
			return
		}
		limit, offset := pagination(r, 100, 500)
		posts, err := d.Store.Posts.ListBySubreddit(r.Context(), sub.ID, limit, offset)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list posts")
			return
		}
		writeJSON(w, http.StatusOK, posts)
	}
}
