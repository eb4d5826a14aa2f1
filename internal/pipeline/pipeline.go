// Package pipeline cleans fetched content and writes it through the
// repositories. It is the only path from the fetch layer into Postgres.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/onnwee/reddit-pulse/internal/db"
	"github.com/onnwee/reddit-pulse/internal/logger"
	"github.com/onnwee/reddit-pulse/internal/metrics"
	"github.com/onnwee/reddit-pulse/internal/preprocess"
	"github.com/onnwee/reddit-pulse/internal/reddit"
)

// Store is the persistence surface the pipeline writes through. *db.Store
// satisfies it via the adapter below; tests substitute fakes.
type Store interface {
	EnsureSubreddit(ctx context.Context, name string) (int64, error)
	UpsertSubreddit(ctx context.Context, info *reddit.SubredditInfo) (int64, error)
	UpsertPosts(ctx context.Context, subredditID int64, posts []reddit.Post) (map[string]int64, error)
	ExistingPostIDs(ctx context.Context, redditIDs []string) (map[string]int64, error)
	ExistingCommentIDs(ctx context.Context, redditIDs []string) (map[string]int64, error)
	UpsertComments(ctx context.Context, comments []db.CommentUpsert) error
}

// Result summarizes one pipeline run. Errors carries per-batch failures;
// partial progress before a failure is preserved in the counters.
type Result struct {
	PostsProcessed    int       `json:"posts_processed"`
	PostsSaved        int       `json:"posts_saved"`
	CommentsProcessed int       `json:"comments_processed"`
	CommentsSaved     int       `json:"comments_saved"`
	New               int       `json:"new"`
	Duplicates        int       `json:"duplicates"`
	Skipped           int       `json:"skipped"`
	Errors            []string  `json:"errors,omitempty"`
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
}

// Pipeline owns the preprocessing and persistence of fetched content.
// Subreddit row ids are cached so repeated runs skip the lookup round trip.
type Pipeline struct {
	store    Store
	subCache *ristretto.Cache
}

// New builds a Pipeline over the given store.
func New(store Store) (*Pipeline, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("init subreddit cache: %w", err)
	}
	return &Pipeline{store: store, subCache: cache}, nil
}

// subredditID resolves a subreddit name to its row id through the cache.
func (p *Pipeline) subredditID(ctx context.Context, name string) (int64, error) {
	if v, ok := p.subCache.Get(name); ok {
		if id, ok := v.(int64); ok {
			return id, nil
		}
	}
	id, err := p.store.EnsureSubreddit(ctx, name)
	if err != nil {
		return 0, err
	}
	p.subCache.Set(name, id, 1)
	return id, nil
}

// SaveSubredditInfo upserts subreddit metadata and refreshes the id cache.
func (p *Pipeline) SaveSubredditInfo(ctx context.Context, info *reddit.SubredditInfo) error {
	id, err := p.store.UpsertSubreddit(ctx, info)
	if err != nil {
		return err
	}
	p.subCache.Set(info.Name, id, 1)
	return nil
}

// ProcessPosts cleans and persists posts, grouped per subreddit so each group
// shares one resolved subreddit id. Posts with no reddit id and posts whose
// title (or selftext, for self posts) is a deletion marker are skipped.
func (p *Pipeline) ProcessPosts(ctx context.Context, posts []reddit.Post) Result {
	res := Result{StartedAt: time.Now().UTC()}
	defer func() { res.FinishedAt = time.Now().UTC() }()

	groups := make(map[string][]reddit.Post)
	for _, post := range posts {
		res.PostsProcessed++
		if post.RedditID == "" || post.Subreddit == "" {
			res.Skipped++
			metrics.PipelinePosts.WithLabelValues("skipped").Inc()
			continue
		}
		if preprocess.IsDeletedContent(post.Title) ||
			(post.IsSelf && preprocess.IsDeletedContent(post.Selftext)) {
			res.Skipped++
			metrics.PipelinePosts.WithLabelValues("filtered").Inc()
			continue
		}
		post.Title = preprocess.CleanText(post.Title)
		post.Selftext = preprocess.CleanText(post.Selftext)
		if author, ok := preprocess.NormalizeAuthor(post.Author); ok {
			post.Author = author
		} else {
			post.Author = ""
		}
		groups[post.Subreddit] = append(groups[post.Subreddit], post)
	}

	// Deterministic order keeps batch failures reproducible.
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		group := groups[name]
		subID, err := p.subredditID(ctx, name)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("resolve subreddit %s: %v", name, err))
			metrics.PipelinePosts.WithLabelValues("error").Add(float64(len(group)))
			continue
		}

		dups := p.countDuplicates(ctx, group)

		start := time.Now()
		ids, err := p.store.UpsertPosts(ctx, subID, group)
		metrics.PipelineSaveDuration.WithLabelValues("posts").Observe(time.Since(start).Seconds())
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("save posts for %s: %v", name, err))
			metrics.PipelinePosts.WithLabelValues("error").Add(float64(len(group) - len(ids)))
		} else {
			res.Duplicates += dups
			res.New += len(group) - dups
		}
		res.PostsSaved += len(ids)
		metrics.PipelinePosts.WithLabelValues("saved").Add(float64(len(ids)))
	}
	return res
}

// countDuplicates separates already-stored external ids from new ones before
// the upsert. A lookup failure degrades to counting nothing rather than
// blocking the save.
func (p *Pipeline) countDuplicates(ctx context.Context, group []reddit.Post) int {
	ids := make([]string, len(group))
	for i, post := range group {
		ids[i] = post.RedditID
	}
	existing, err := p.store.ExistingPostIDs(ctx, ids)
	if err != nil {
		logger.Warn("duplicate lookup failed", "error", err)
		return 0
	}
	return len(existing)
}

// ProcessComments cleans and persists comments. Comments referencing a post
// that is not stored are not persisted and are attributed to Errors, without
// failing the rest of the batch.
func (p *Pipeline) ProcessComments(ctx context.Context, comments []reddit.Comment) Result {
	res := Result{StartedAt: time.Now().UTC()}
	defer func() { res.FinishedAt = time.Now().UTC() }()

	cleaned := make([]reddit.Comment, 0, len(comments))
	postIDs := make(map[string]struct{})
	for _, c := range comments {
		res.CommentsProcessed++
		if c.RedditID == "" || c.PostRedditID == "" || preprocess.IsDeletedContent(c.Body) {
			res.Skipped++
			metrics.PipelineComments.WithLabelValues("skipped").Inc()
			continue
		}
		c.Body = preprocess.CleanText(c.Body)
		author, authorOK := preprocess.NormalizeAuthor(c.Author)
		if authorOK {
			c.Author = author
		} else {
			c.Author = ""
		}
		// Nothing left worth storing once both author and body are gone.
		if !authorOK && c.Body == "" {
			res.Skipped++
			metrics.PipelineComments.WithLabelValues("skipped").Inc()
			continue
		}
		cleaned = append(cleaned, c)
		postIDs[c.PostRedditID] = struct{}{}
	}
	if len(cleaned) == 0 {
		return res
	}

	distinct := make([]string, 0, len(postIDs))
	for id := range postIDs {
		distinct = append(distinct, id)
	}
	existing, err := p.store.ExistingPostIDs(ctx, distinct)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("resolve post ids: %v", err))
		metrics.PipelineComments.WithLabelValues("error").Add(float64(len(cleaned)))
		return res
	}

	upserts := make([]db.CommentUpsert, 0, len(cleaned))
	orphans := 0
	for _, c := range cleaned {
		postID, ok := existing[c.PostRedditID]
		if !ok {
			orphans++
			metrics.PipelineComments.WithLabelValues("orphaned").Inc()
			logger.Debug("comment references a post that is not stored", "comment", c.RedditID, "post", c.PostRedditID)
			continue
		}
		upserts = append(upserts, db.CommentUpsert{Comment: c, PostID: postID})
	}
	if orphans > 0 {
		res.Errors = append(res.Errors, fmt.Sprintf("%d comments reference posts that are not stored", orphans))
	}
	if len(upserts) == 0 {
		return res
	}

	dups := 0
	cmtIDs := make([]string, len(upserts))
	for i, u := range upserts {
		cmtIDs[i] = u.Comment.RedditID
	}
	if known, err := p.store.ExistingCommentIDs(ctx, cmtIDs); err != nil {
		logger.Warn("duplicate lookup failed", "error", err)
	} else {
		dups = len(known)
	}

	start := time.Now()
	err = p.store.UpsertComments(ctx, upserts)
	metrics.PipelineSaveDuration.WithLabelValues("comments").Observe(time.Since(start).Seconds())
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("save comments: %v", err))
		metrics.PipelineComments.WithLabelValues("error").Add(float64(len(upserts)))
		return res
	}
	res.CommentsSaved = len(upserts)
	res.Duplicates += dups
	res.New += len(upserts) - dups
	metrics.PipelineComments.WithLabelValues("saved").Add(float64(len(upserts)))
	return res
}

// Merge folds other into r.
func (r *Result) Merge(other Result) {
	r.PostsProcessed += other.PostsProcessed
	r.PostsSaved += other.PostsSaved
	r.CommentsProcessed += other.CommentsProcessed
	r.CommentsSaved += other.CommentsSaved
	r.New += other.New
	r.Duplicates += other.Duplicates
	r.Skipped += other.Skipped
	r.Errors = append(r.Errors, other.Errors...)
}
