// Package collector runs scheduled ingestion sweeps: fetch each configured
// subreddit through the unified source and hand the results to the pipeline.
package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/onnwee/reddit-pulse/internal/config"
	"github.com/onnwee/reddit-pulse/internal/logger"
	"github.com/onnwee/reddit-pulse/internal/pipeline"
	"github.com/onnwee/reddit-pulse/internal/reddit"
	"github.com/onnwee/reddit-pulse/internal/utils"
)

// Collector fetches configured subreddits and persists them.
type Collector struct {
	source   reddit.Backend
	pipeline Pipeline

	subreddits      []string
	sort            string
	timeFilter      string
	postsPerSub     int
	includeComments bool
	commentsPerPost int
}

// Pipeline is the slice of pipeline surface the collector needs; tests
// substitute fakes.
type Pipeline interface {
	ProcessPosts(ctx context.Context, posts []reddit.Post) pipeline.Result
	ProcessComments(ctx context.Context, comments []reddit.Comment) pipeline.Result
	SaveSubredditInfo(ctx context.Context, info *reddit.SubredditInfo) error
}

// New builds a Collector from the cached config.
func New(source reddit.Backend, pl Pipeline) *Collector {
	cfg := config.Load()
	subs := make([]string, 0, len(cfg.Subreddits))
	for _, s := range cfg.Subreddits {
		if name := utils.NormalizeSubreddit(s); name != "" {
			subs = append(subs, name)
		}
	}
	return &Collector{
		source:          source,
		pipeline:        pl,
		subreddits:      subs,
		sort:            cfg.PostsSort,
		timeFilter:      cfg.PostsTimeFilter,
		postsPerSub:     cfg.PostsPerSub,
		includeComments: cfg.IncludeComments,
		commentsPerPost: cfg.CommentsPerPost,
	}
}

// Subreddits returns the configured collection targets.
func (c *Collector) Subreddits() []string { return c.subreddits }

// fetchPosts dispatches on the configured sort.
func (c *Collector) fetchPosts(ctx context.Context, subreddit string) ([]reddit.Post, error) {
	switch c.sort {
	case "new":
		return c.source.NewPosts(ctx, subreddit, c.postsPerSub)
	case "top":
		return c.source.TopPosts(ctx, subreddit, c.postsPerSub, c.timeFilter)
	case "rising":
		return c.source.RisingPosts(ctx, subreddit, c.postsPerSub)
	default:
		return c.source.HotPosts(ctx, subreddit, c.postsPerSub)
	}
}

// CollectSubreddit ingests one subreddit: metadata, posts, and optionally
// each post's comment tree.
func (c *Collector) CollectSubreddit(ctx context.Context, subreddit string) pipeline.Result {
	var res pipeline.Result
	start := time.Now()

	if info, err := c.source.Subreddit(ctx, subreddit); err != nil {
		// Metadata is nice to have; posts can still land via EnsureByName.
		logger.Warn("subreddit metadata fetch failed", "subreddit", subreddit, "error", err)
	} else if err := c.pipeline.SaveSubredditInfo(ctx, info); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("save subreddit %s: %v", subreddit, err))
	}

	posts, err := c.fetchPosts(ctx, subreddit)
	if err != nil && len(posts) == 0 {
		res.Errors = append(res.Errors, fmt.Sprintf("fetch posts for %s: %v", subreddit, err))
		return res
	}
	if err != nil {
		// Partial page before the failure is still worth keeping.
		res.Errors = append(res.Errors, fmt.Sprintf("fetch posts for %s (partial): %v", subreddit, err))
	}
	res.Merge(c.pipeline.ProcessPosts(ctx, posts))

	if c.includeComments {
		for _, post := range posts {
			if ctx.Err() != nil {
				res.Errors = append(res.Errors, ctx.Err().Error())
				break
			}
			comments, err := c.source.PostComments(ctx, post.RedditID, c.commentsPerPost)
			if err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("fetch comments for %s: %v", post.RedditID, err))
				continue
			}
			res.Merge(c.pipeline.ProcessComments(ctx, comments))
		}
	}

	logger.Info("subreddit collected",
		"subreddit", subreddit,
		"posts_saved", res.PostsSaved,
		"comments_saved", res.CommentsSaved,
		"skipped", res.Skipped,
		"errors", len(res.Errors),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return res
}

// Run sweeps every configured subreddit sequentially. Subreddit failures are
// isolated; the sweep continues and the merged result carries the errors.
func (c *Collector) Run(ctx context.Context) pipeline.Result {
	res := pipeline.Result{StartedAt: time.Now().UTC()}
	for _, subreddit := range c.subreddits {
		if ctx.Err() != nil {
			res.Errors = append(res.Errors, ctx.Err().Error())
			break
		}
		res.Merge(c.CollectSubreddit(ctx, subreddit))
	}
	res.FinishedAt = time.Now().UTC()
	return res
}
