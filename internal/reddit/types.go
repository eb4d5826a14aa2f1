// Package reddit holds the domain types and the two fetch backends: the
// authenticated OAuth API client and the public JSON scraper. Both decode the
// same Listing envelope through the shared parser.
package reddit

import (
	"context"
	"time"
)

// Post is a Reddit submission as fetched from either backend.
type Post struct {
	RedditID    string    `json:"reddit_id"`
	Subreddit   string    `json:"subreddit"`
	Title       string    `json:"title"`
	Selftext    string    `json:"selftext"`
	Author      string    `json:"author"`
	Score       int       `json:"score"`
	NumComments int       `json:"num_comments"`
	URL         string    `json:"url"`
	Permalink   string    `json:"permalink"`
	IsSelf      bool      `json:"is_self"`
	CreatedUTC  time.Time `json:"created_utc"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Comment is a single comment. ParentRedditID keeps the raw fullname; a
// "t3_" prefix marks a top-level comment.
type Comment struct {
	RedditID       string    `json:"reddit_id"`
	PostRedditID   string    `json:"post_reddit_id"`
	ParentRedditID string    `json:"parent_reddit_id,omitempty"`
	Body           string    `json:"body"`
	Author         string    `json:"author"`
	Score          int       `json:"score"`
	CreatedUTC     time.Time `json:"created_utc"`
	FetchedAt      time.Time `json:"fetched_at"`
}

// SubredditInfo is subreddit metadata from the about endpoint or search.
type SubredditInfo struct {
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Subscribers int       `json:"subscribers"`
	Over18      bool      `json:"over18"`
	CreatedUTC  time.Time `json:"created_utc"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Backend is the operation surface shared by the API client and the scraper.
// The unified data source dispatches over it.
type Backend interface {
	Name() string
	HotPosts(ctx context.Context, subreddit string, limit int) ([]Post, error)
	NewPosts(ctx context.Context, subreddit string, limit int) ([]Post, error)
	TopPosts(ctx context.Context, subreddit string, limit int, timeFilter string) ([]Post, error)
	RisingPosts(ctx context.Context, subreddit string, limit int) ([]Post, error)
	PostComments(ctx context.Context, postID string, limit int) ([]Comment, error)
	SubredditComments(ctx context.Context, subreddit string, limit int) ([]Comment, error)
	Subreddit(ctx context.Context, subreddit string) (*SubredditInfo, error)
	SearchSubreddits(ctx context.Context, query string, limit int) ([]SubredditInfo, error)
}
