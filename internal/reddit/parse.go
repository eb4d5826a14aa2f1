package reddit

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/onnwee/reddit-pulse/internal/logger"
	"github.com/onnwee/reddit-pulse/internal/preprocess"
)

// Reddit thing kinds.
const (
	kindComment   = "t1"
	kindPost      = "t3"
	kindSubreddit = "t5"
	kindListing   = "Listing"
	kindMore      = "more"
)

// thing is the generic Reddit envelope: a kind tag plus a kind-specific body.
type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// listingData is the paged container; After is the pagination cursor.
type listingData struct {
	Children []thing `json:"children"`
	After    string  `json:"after"`
}

type postData struct {
	ID          string  `json:"id"`
	Subreddit   string  `json:"subreddit"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Author      string  `json:"author"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
	IsSelf      bool    `json:"is_self"`
	CreatedUTC  float64 `json:"created_utc"`
}

type commentData struct {
	ID         string          `json:"id"`
	Author     string          `json:"author"`
	Body       string          `json:"body"`
	ParentID   string          `json:"parent_id"`
	LinkID     string          `json:"link_id"`
	Score      int             `json:"score"`
	CreatedUTC float64         `json:"created_utc"`
	Replies    json.RawMessage `json:"replies"`
}

type subredditData struct {
	DisplayName       string  `json:"display_name"`
	Title             string  `json:"title"`
	PublicDescription string  `json:"public_description"`
	Subscribers       int     `json:"subscribers"`
	Over18            bool    `json:"over18"`
	CreatedUTC        float64 `json:"created_utc"`
}

// ParsePosts decodes a post Listing. A malformed envelope yields an empty
// slice; individual bad children are logged and dropped. The second return is
// the pagination cursor.
func ParsePosts(raw []byte) ([]Post, string) {
	var env thing
	if err := json.Unmarshal(raw, &env); err != nil || env.Kind != kindListing {
		logger.Warn("malformed post listing envelope")
		return nil, ""
	}
	var listing listingData
	if err := json.Unmarshal(env.Data, &listing); err != nil {
		logger.Warn("malformed post listing data", "error", err)
		return nil, ""
	}

	now := time.Now().UTC()
	posts := make([]Post, 0, len(listing.Children))
	for _, child := range listing.Children {
		if child.Kind != kindPost {
			continue
		}
		var pd postData
		if err := json.Unmarshal(child.Data, &pd); err != nil {
			logger.Warn("dropping unparsable post", "error", err)
			continue
		}
		if pd.ID == "" {
			logger.Warn("dropping post without id")
			continue
		}
		posts = append(posts, Post{
			RedditID:    pd.ID,
			Subreddit:   strings.ToLower(pd.Subreddit),
			Title:       pd.Title,
			Selftext:    pd.Selftext,
			Author:      pd.Author,
			Score:       pd.Score,
			NumComments: pd.NumComments,
			URL:         pd.URL,
			Permalink:   normalizePermalink(pd.Permalink),
			IsSelf:      pd.IsSelf,
			CreatedUTC:  time.Unix(int64(pd.CreatedUTC), 0).UTC(),
			FetchedAt:   now,
		})
	}
	return posts, listing.After
}

// ParseCommentsResponse decodes the two-element /comments/{id} response
// ([post_listing, comments_listing]) and returns the flattened comment tree.
func ParseCommentsResponse(raw []byte, postID string) []Comment {
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil || len(parts) < 2 {
		logger.Warn("malformed comments response", "post_id", postID)
		return nil
	}
	return parseCommentListing(parts[1], postID)
}

// ParseCommentListing decodes a flat comment Listing (the subreddit-level
// comment stream). The second return is the pagination cursor.
func ParseCommentListing(raw []byte) ([]Comment, string) {
	var env thing
	if err := json.Unmarshal(raw, &env); err != nil || env.Kind != kindListing {
		logger.Warn("malformed comment listing envelope")
		return nil, ""
	}
	var listing listingData
	if err := json.Unmarshal(env.Data, &listing); err != nil {
		return nil, ""
	}
	var comments []Comment
	now := time.Now().UTC()
	for _, child := range listing.Children {
		if child.Kind != kindComment {
			continue
		}
		if c, ok := decodeComment(child.Data, "", now); ok {
			comments = append(comments, c)
		}
	}
	return comments, listing.After
}

// parseCommentListing walks a comment Listing depth-first, preserving tree
// order. "more" markers are skipped and deleted bodies dropped at parse time.
func parseCommentListing(raw json.RawMessage, postID string) []Comment {
	var env thing
	if err := json.Unmarshal(raw, &env); err != nil || env.Kind != kindListing {
		logger.Warn("malformed comment listing envelope", "post_id", postID)
		return nil
	}
	var listing listingData
	if err := json.Unmarshal(env.Data, &listing); err != nil {
		return nil
	}
	return flattenComments(listing.Children, postID, time.Now().UTC())
}

func flattenComments(children []thing, postID string, now time.Time) []Comment {
	var out []Comment
	for _, child := range children {
		if child.Kind != kindComment {
			// "more" continuation markers carry no comment payload.
			continue
		}
		var cd commentData
		if err := json.Unmarshal(child.Data, &cd); err != nil {
			logger.Warn("dropping unparsable comment", "error", err)
			continue
		}
		if cd.ID != "" && !preprocess.IsDeletedContent(cd.Body) {
			out = append(out, commentFromData(cd, postID, now))
		}

		// Replies is either a nested Listing or an empty string.
		if len(cd.Replies) > 0 && cd.Replies[0] == '{' {
			var replyEnv thing
			if err := json.Unmarshal(cd.Replies, &replyEnv); err == nil && replyEnv.Kind == kindListing {
				var replyListing listingData
				if err := json.Unmarshal(replyEnv.Data, &replyListing); err == nil {
					out = append(out, flattenComments(replyListing.Children, postID, now)...)
				}
			}
		}
	}
	return out
}

// decodeComment maps one t1 body to a Comment. Returns false for unparsable
// items and for deleted/removed bodies.
func decodeComment(raw json.RawMessage, postID string, now time.Time) (Comment, bool) {
	var cd commentData
	if err := json.Unmarshal(raw, &cd); err != nil {
		logger.Warn("dropping unparsable comment", "error", err)
		return Comment{}, false
	}
	if cd.ID == "" || preprocess.IsDeletedContent(cd.Body) {
		return Comment{}, false
	}
	return commentFromData(cd, postID, now), true
}

func commentFromData(cd commentData, postID string, now time.Time) Comment {
	if postID == "" && cd.LinkID != "" {
		postID = strings.TrimPrefix(cd.LinkID, kindPost+"_")
	}
	return Comment{
		RedditID:       cd.ID,
		PostRedditID:   postID,
		ParentRedditID: cd.ParentID,
		Body:           cd.Body,
		Author:         cd.Author,
		Score:          cd.Score,
		CreatedUTC:     time.Unix(int64(cd.CreatedUTC), 0).UTC(),
		FetchedAt:      now,
	}
}

// ParseSubreddit decodes the about endpoint's t5 envelope.
func ParseSubreddit(raw []byte, name string) (*SubredditInfo, error) {
	var env thing
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	var sd subredditData
	if err := json.Unmarshal(env.Data, &sd); err != nil {
		return nil, err
	}
	return subredditFromData(sd, name), nil
}

// ParseSubredditSearch decodes a t5 Listing from /subreddits/search.
func ParseSubredditSearch(raw []byte) []SubredditInfo {
	var env thing
	if err := json.Unmarshal(raw, &env); err != nil || env.Kind != kindListing {
		logger.Warn("malformed subreddit search envelope")
		return nil
	}
	var listing listingData
	if err := json.Unmarshal(env.Data, &listing); err != nil {
		return nil
	}
	var out []SubredditInfo
	for _, child := range listing.Children {
		if child.Kind != kindSubreddit {
			continue
		}
		var sd subredditData
		if err := json.Unmarshal(child.Data, &sd); err != nil {
			logger.Warn("dropping unparsable subreddit", "error", err)
			continue
		}
		out = append(out, *subredditFromData(sd, ""))
	}
	return out
}

func subredditFromData(sd subredditData, name string) *SubredditInfo {
	if name == "" {
		name = strings.ToLower(sd.DisplayName)
	}
	return &SubredditInfo{
		Name:        strings.ToLower(strings.TrimSpace(name)),
		DisplayName: sd.DisplayName,
		Title:       sd.Title,
		Description: sd.PublicDescription,
		Subscribers: sd.Subscribers,
		Over18:      sd.Over18,
		CreatedUTC:  time.Unix(int64(sd.CreatedUTC), 0).UTC(),
		FetchedAt:   time.Now().UTC(),
	}
}

// normalizePermalink makes relative permalinks absolute.
func normalizePermalink(p string) string {
	if p == "" || strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return "https://www.reddit.com" + p
}
