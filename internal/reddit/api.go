package reddit

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/onnwee/reddit-pulse/internal/config"
	"github.com/onnwee/reddit-pulse/internal/httpx"
	"github.com/onnwee/reddit-pulse/internal/logger"
	"github.com/onnwee/reddit-pulse/internal/ratelimit"
	"github.com/onnwee/reddit-pulse/internal/utils"
)

const oauthBaseURL = "https://oauth.reddit.com"

// Listing page caps enforced by Reddit.
const (
	maxPostsPerPage    = 100
	maxCommentsPerCall = 500
)

// APIClient is the authenticated OAuth backend. It paginates post listings
// with the "after" cursor up to the requested limit.
type APIClient struct {
	http      *httpx.Client
	tokens    *tokenManager
	userAgent string
	baseURL   string
}

// NewAPIClient builds the OAuth backend from the cached config. All requests
// share the given limiter with the scraper.
func NewAPIClient(limiter *ratelimit.Limiter) *APIClient {
	cfg := config.Load()
	client := httpx.NewClient(limiter)
	return &APIClient{
		http:      client,
		tokens:    newTokenManager(client, cfg.RedditClientID, cfg.RedditClientSecret, cfg.UserAgent),
		userAgent: cfg.UserAgent,
		baseURL:   oauthBaseURL,
	}
}

// Validate confirms the configured credentials can mint a token.
func (c *APIClient) Validate(ctx context.Context) error {
	return c.tokens.Validate(ctx)
}

func (c *APIClient) Name() string { return "api" }

// get issues an authenticated GET and returns the body. A 401 invalidates the
// cached token and retries once with a fresh one.
func (c *APIClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	for attempt := 0; attempt < 2; attempt++ {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}

		resp, err := c.http.Do(ctx, func(ctx context.Context) (*http.Request, error) {
			u := c.baseURL + path
			if len(params) > 0 {
				u += "?" + params.Encode()
			}
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("Authorization", "Bearer "+token)
			req.Header.Set("User-Agent", c.userAgent)
			return req, nil
		})
		if err != nil {
			return nil, err
		}

		if resp.StatusCode == http.StatusUnauthorized {
			resp.Body.Close()
			c.tokens.Invalidate()
			if attempt == 0 {
				logger.Warn("api token rejected, re-authenticating", "path", path)
				continue
			}
			return nil, &APIError{Operation: path, StatusCode: resp.StatusCode, Err: ErrAuthFailed}
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, &APIError{Operation: path, StatusCode: resp.StatusCode}
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, &APIError{Operation: path, Err: err}
		}
		return body, nil
	}
	return nil, &APIError{Operation: path, Err: ErrAuthFailed}
}

// listPosts pages through a post listing until limit posts are collected or
// the cursor runs out.
func (c *APIClient) listPosts(ctx context.Context, path string, limit int, extra url.Values) ([]Post, error) {
	if limit <= 0 {
		limit = 25
	}
	var posts []Post
	after := ""
	for len(posts) < limit {
		page := limit - len(posts)
		if page > maxPostsPerPage {
			page = maxPostsPerPage
		}
		params := url.Values{}
		for k, vs := range extra {
			params[k] = vs
		}
		params.Set("limit", strconv.Itoa(page))
		params.Set("raw_json", "1")
		if after != "" {
			params.Set("after", after)
		}

		body, err := c.get(ctx, path, params)
		if err != nil {
			return posts, err
		}
		batch, next := ParsePosts(body)
		posts = append(posts, batch...)
		if next == "" || len(batch) == 0 {
			break
		}
		after = next
	}
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func (c *APIClient) HotPosts(ctx context.Context, subreddit string, limit int) ([]Post, error) {
	return c.listPosts(ctx, "/r/"+utils.NormalizeSubreddit(subreddit)+"/hot", limit, nil)
}

func (c *APIClient) NewPosts(ctx context.Context, subreddit string, limit int) ([]Post, error) {
	return c.listPosts(ctx, "/r/"+utils.NormalizeSubreddit(subreddit)+"/new", limit, nil)
}

func (c *APIClient) RisingPosts(ctx context.Context, subreddit string, limit int) ([]Post, error) {
	return c.listPosts(ctx, "/r/"+utils.NormalizeSubreddit(subreddit)+"/rising", limit, nil)
}

func (c *APIClient) TopPosts(ctx context.Context, subreddit string, limit int, timeFilter string) ([]Post, error) {
	extra := url.Values{}
	if timeFilter != "" {
		extra.Set("t", timeFilter)
	}
	return c.listPosts(ctx, "/r/"+utils.NormalizeSubreddit(subreddit)+"/top", limit, extra)
}

func (c *APIClient) PostComments(ctx context.Context, postID string, limit int) ([]Comment, error) {
	if limit <= 0 || limit > maxCommentsPerCall {
		limit = maxCommentsPerCall
	}
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("raw_json", "1")

	postID = utils.StripKindPrefix(postID)
	body, err := c.get(ctx, "/comments/"+postID, params)
	if err != nil {
		return nil, err
	}
	comments := ParseCommentsResponse(body, postID)
	if len(comments) > limit {
		comments = comments[:limit]
	}
	return comments, nil
}

func (c *APIClient) SubredditComments(ctx context.Context, subreddit string, limit int) ([]Comment, error) {
	if limit <= 0 || limit > maxCommentsPerCall {
		limit = maxCommentsPerCall
	}
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("raw_json", "1")

	body, err := c.get(ctx, "/r/"+utils.NormalizeSubreddit(subreddit)+"/comments", params)
	if err != nil {
		return nil, err
	}
	comments, _ := ParseCommentListing(body)
	if len(comments) > limit {
		comments = comments[:limit]
	}
	return comments, nil
}

func (c *APIClient) Subreddit(ctx context.Context, subreddit string) (*SubredditInfo, error) {
	name := utils.NormalizeSubreddit(subreddit)
	body, err := c.get(ctx, "/r/"+name+"/about", url.Values{"raw_json": {"1"}})
	if err != nil {
		return nil, err
	}
	info, err := ParseSubreddit(body, name)
	if err != nil {
		return nil, &APIError{Operation: fmt.Sprintf("/r/%s/about", name), Err: err}
	}
	return info, nil
}

func (c *APIClient) SearchSubreddits(ctx context.Context, query string, limit int) ([]SubredditInfo, error) {
	if limit <= 0 {
		limit = 25
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("raw_json", "1")

	body, err := c.get(ctx, "/subreddits/search", params)
	if err != nil {
		return nil, err
	}
	subs := ParseSubredditSearch(body)
	if len(subs) > limit {
		subs = subs[:limit]
	}
	return subs, nil
}
