package reddit

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/onnwee/reddit-pulse/internal/config"
	"github.com/onnwee/reddit-pulse/internal/httpx"
	"github.com/onnwee/reddit-pulse/internal/ratelimit"
	"github.com/onnwee/reddit-pulse/internal/utils"
)

// Scraper is the unauthenticated backend. It reads the public .json mirrors
// of the same listings the API serves, with rotated browser User-Agents.
type Scraper struct {
	http    *httpx.Client
	baseURL string
}

// NewScraper builds the public JSON backend. The limiter is shared with the
// API client so both backends draw from one budget.
func NewScraper(limiter *ratelimit.Limiter) *Scraper {
	cfg := config.Load()
	return &Scraper{
		http:    httpx.NewClient(limiter),
		baseURL: strings.TrimRight(cfg.ScrapeBaseURL, "/"),
	}
}

func (s *Scraper) Name() string { return "scraper" }

func (s *Scraper) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := s.baseURL + path
	resp, err := s.http.Get(ctx, u, params)
	if err != nil {
		var he *httpx.Error
		if errors.As(err, &he) {
			return nil, &ScrapingError{Operation: path, URL: u, StatusCode: he.StatusCode, Err: err}
		}
		return nil, &ScrapingError{Operation: path, URL: u, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &ScrapingError{Operation: path, URL: u, StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ScrapingError{Operation: path, URL: u, Err: err}
	}
	return body, nil
}

func (s *Scraper) listPosts(ctx context.Context, path string, limit int, extra url.Values) ([]Post, error) {
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

		body, err := s.get(ctx, path, params)
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

func (s *Scraper) HotPosts(ctx context.Context, subreddit string, limit int) ([]Post, error) {
	return s.listPosts(ctx, "/r/"+utils.NormalizeSubreddit(subreddit)+"/hot.json", limit, nil)
}

func (s *Scraper) NewPosts(ctx context.Context, subreddit string, limit int) ([]Post, error) {
	return s.listPosts(ctx, "/r/"+utils.NormalizeSubreddit(subreddit)+"/new.json", limit, nil)
}

func (s *Scraper) RisingPosts(ctx context.Context, subreddit string, limit int) ([]Post, error) {
	return s.listPosts(ctx, "/r/"+utils.NormalizeSubreddit(subreddit)+"/rising.json", limit, nil)
}

func (s *Scraper) TopPosts(ctx context.Context, subreddit string, limit int, timeFilter string) ([]Post, error) {
	extra := url.Values{}
	if timeFilter != "" {
		extra.Set("t", timeFilter)
	}
	return s.listPosts(ctx, "/r/"+utils.NormalizeSubreddit(subreddit)+"/top.json", limit, extra)
}

func (s *Scraper) PostComments(ctx context.Context, postID string, limit int) ([]Comment, error) {
	if limit <= 0 || limit > maxCommentsPerCall {
		limit = maxCommentsPerCall
	}
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("raw_json", "1")

	postID = utils.StripKindPrefix(postID)
	body, err := s.get(ctx, "/comments/"+postID+".json", params)
	if err != nil {
		return nil, err
	}
	comments := ParseCommentsResponse(body, postID)
	if len(comments) > limit {
		comments = comments[:limit]
	}
	return comments, nil
}

func (s *Scraper) SubredditComments(ctx context.Context, subreddit string, limit int) ([]Comment, error) {
	if limit <= 0 || limit > maxCommentsPerCall {
		limit = maxCommentsPerCall
	}
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("raw_json", "1")

	body, err := s.get(ctx, "/r/"+utils.NormalizeSubreddit(subreddit)+"/comments.json", params)
	if err != nil {
		return nil, err
	}
	comments, _ := ParseCommentListing(body)
	if len(comments) > limit {
		comments = comments[:limit]
	}
	return comments, nil
}

func (s *Scraper) Subreddit(ctx context.Context, subreddit string) (*SubredditInfo, error) {
	name := utils.NormalizeSubreddit(subreddit)
	body, err := s.get(ctx, "/r/"+name+"/about.json", url.Values{"raw_json": {"1"}})
	if err != nil {
		return nil, err
	}
	info, err := ParseSubreddit(body, name)
	if err != nil {
		return nil, &ScrapingError{Operation: "about", URL: s.baseURL + "/r/" + name + "/about.json", Err: err}
	}
	return info, nil
}

func (s *Scraper) SearchSubreddits(ctx context.Context, query string, limit int) ([]SubredditInfo, error) {
	if limit <= 0 {
		limit = 25
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("raw_json", "1")

	body, err := s.get(ctx, "/subreddits/search.json", params)
	if err != nil {
		return nil, err
	}
	subs := ParseSubredditSearch(body)
	if len(subs) > limit {
		subs = subs[:limit]
	}
	return subs, nil
}
