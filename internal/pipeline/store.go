package pipeline

import (
	"context"

	"github.com/onnwee/reddit-pulse/internal/db"
	"github.com/onnwee/reddit-pulse/internal/reddit"
)

// dbStore adapts *db.Store to the pipeline's Store surface.
type dbStore struct {
	store *db.Store
}

// NewDBStore wraps the Postgres store for use by the pipeline.
func NewDBStore(store *db.Store) Store {
	return &dbStore{store: store}
}

func (s *dbStore) EnsureSubreddit(ctx context.Context, name string) (int64, error) {
	return s.store.Subreddits.EnsureByName(ctx, name)
}

func (s *dbStore) UpsertSubreddit(ctx context.Context, info *reddit.SubredditInfo) (int64, error) {
	return s.store.Subreddits.Upsert(ctx, info)
}

func (s *dbStore) UpsertPosts(ctx context.Context, subredditID int64, posts []reddit.Post) (map[string]int64, error) {
	return s.store.Posts.BatchUpsert(ctx, subredditID, posts)
}

func (s *dbStore) ExistingPostIDs(ctx context.Context, redditIDs []string) (map[string]int64, error) {
	return s.store.Posts.ExistingIDs(ctx, redditIDs)
}

func (s *dbStore) ExistingCommentIDs(ctx context.Context, redditIDs []string) (map[string]int64, error) {
	return s.store.Comments.ExistingIDs(ctx, redditIDs)
}

func (s *dbStore) UpsertComments(ctx context.Context, comments []db.CommentUpsert) error {
	return s.store.Comments.BatchUpsert(ctx, comments)
}
