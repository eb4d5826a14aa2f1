package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/onnwee/reddit-pulse/internal/db"
	"github.com/onnwee/reddit-pulse/internal/reddit"
)

// fakeStore records writes in memory.
type fakeStore struct {
	subs        map[string]int64
	nextSubID   int64
	savedPosts  []reddit.Post
	savedCmts   []db.CommentUpsert
	knownPosts  map[string]int64
	postsErr    error
	commentsErr error
	ensureCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{subs: map[string]int64{}, knownPosts: map[string]int64{}, nextSubID: 1}
}

func (f *fakeStore) EnsureSubreddit(ctx context.Context, name string) (int64, error) {
	f.ensureCalls++
	if id, ok := f.subs[name]; ok {
		return id, nil
	}
	id := f.nextSubID
	f.nextSubID++
	f.subs[name] = id
	return id, nil
}

func (f *fakeStore) UpsertSubreddit(ctx context.Context, info *reddit.SubredditInfo) (int64, error) {
	return f.EnsureSubreddit(ctx, info.Name)
}

func (f *fakeStore) UpsertPosts(ctx context.Context, subredditID int64, posts []reddit.Post) (map[string]int64, error) {
	if f.postsErr != nil {
		return map[string]int64{}, f.postsErr
	}
	ids := make(map[string]int64, len(posts))
	for i, p := range posts {
		f.savedPosts = append(f.savedPosts, p)
		id := int64(len(f.savedPosts) + i)
		ids[p.RedditID] = id
		f.knownPosts[p.RedditID] = id
	}
	return ids, nil
}

func (f *fakeStore) ExistingPostIDs(ctx context.Context, redditIDs []string) (map[string]int64, error) {
	out := map[string]int64{}
	for _, id := range redditIDs {
		if rowID, ok := f.knownPosts[id]; ok {
			out[id] = rowID
		}
	}
	return out, nil
}

func (f *fakeStore) ExistingCommentIDs(ctx context.Context, redditIDs []string) (map[string]int64, error) {
	out := map[string]int64{}
	for _, id := range redditIDs {
		for i, saved := range f.savedCmts {
			if saved.Comment.RedditID == id {
				out[id] = int64(i + 1)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertComments(ctx context.Context, comments []db.CommentUpsert) error {
	if f.commentsErr != nil {
		return f.commentsErr
	}
	f.savedCmts = append(f.savedCmts, comments...)
	return nil
}

func newTestPipeline(t *testing.T, store Store) *Pipeline {
	t.Helper()
	p, err := New(store)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestProcessPostsCleansAndSaves(t *testing.T) {
	store := newFakeStore()
	p := newTestPipeline(t, store)

	posts := []reddit.Post{
		{RedditID: "a1", Subreddit: "golang", Title: "hello&amp;world", Selftext: "see https://example.com now", Author: "alice"},
		{RedditID: "a2", Subreddit: "golang", Title: "ok", Author: "[deleted]"},
		{Subreddit: "golang", Title: "no id"},
	}
	res := p.ProcessPosts(context.Background(), posts)

	if res.PostsProcessed != 3 || res.PostsSaved != 2 || res.Skipped != 1 {
		t.Fatalf("result = %+v", res)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if store.savedPosts[0].Title != "hello&world" {
		t.Errorf("title not cleaned: %q", store.savedPosts[0].Title)
	}
	if store.savedPosts[0].Selftext != "see  now" && store.savedPosts[0].Selftext != "see now" {
		t.Errorf("selftext url not stripped: %q", store.savedPosts[0].Selftext)
	}
	if store.savedPosts[1].Author != "" {
		t.Errorf("deleted author should be blanked, got %q", store.savedPosts[1].Author)
	}
}

func TestProcessPostsNewThenDuplicate(t *testing.T) {
	store := newFakeStore()
	p := newTestPipeline(t, store)

	posts := []reddit.Post{
		{RedditID: "a1", Subreddit: "golang", Title: "x"},
		{RedditID: "a2", Subreddit: "golang", Title: "y"},
	}
	first := p.ProcessPosts(context.Background(), posts)
	if first.New != 2 || first.Duplicates != 0 {
		t.Fatalf("first run new=%d dup=%d, want 2/0", first.New, first.Duplicates)
	}
	second := p.ProcessPosts(context.Background(), posts)
	if second.New != 0 || second.Duplicates != 2 {
		t.Fatalf("second run new=%d dup=%d, want 0/2", second.New, second.Duplicates)
	}
}

func TestProcessPostsSubredditIDCached(t *testing.T) {
	store := newFakeStore()
	p := newTestPipeline(t, store)

	ctx := context.Background()
	// First resolve goes to the store, later ones may hit the cache. The
	// cache is best-effort so only assert it never exceeds one call per run
	// group after warmup via a direct lookup.
	if _, err := p.subredditID(ctx, "golang"); err != nil {
		t.Fatal(err)
	}
	p.subCache.Wait()
	for i := 0; i < 5; i++ {
		if _, err := p.subredditID(ctx, "golang"); err != nil {
			t.Fatal(err)
		}
	}
	if store.ensureCalls > 2 {
		t.Errorf("ensureCalls = %d, cache not effective", store.ensureCalls)
	}
}

func TestProcessPostsBatchFailureKeepsPartialProgress(t *testing.T) {
	store := newFakeStore()
	p := newTestPipeline(t, store)

	// First run saves golang posts; second run fails at the store but the
	// result still reports the attempt.
	store.postsErr = errors.New("db down")
	res := p.ProcessPosts(context.Background(), []reddit.Post{
		{RedditID: "a1", Subreddit: "golang", Title: "x"},
	})
	if len(res.Errors) != 1 {
		t.Fatalf("expected 1 error, got %v", res.Errors)
	}
	if res.PostsSaved != 0 {
		t.Errorf("PostsSaved = %d, want 0", res.PostsSaved)
	}
}

func TestProcessCommentsOrphansNotPersisted(t *testing.T) {
	store := newFakeStore()
	store.knownPosts["p1"] = 11
	p := newTestPipeline(t, store)

	comments := []reddit.Comment{
		{RedditID: "c1", PostRedditID: "p1", Body: "keep me", Author: "a"},
		{RedditID: "c2", PostRedditID: "missing", Body: "orphan", Author: "b"},
		{RedditID: "c3", PostRedditID: "p1", Body: "[deleted]", Author: "c"},
	}
	res := p.ProcessComments(context.Background(), comments)

	if res.CommentsProcessed != 3 {
		t.Errorf("CommentsProcessed = %d", res.CommentsProcessed)
	}
	if res.CommentsSaved != 1 {
		t.Errorf("CommentsSaved = %d, want 1", res.CommentsSaved)
	}
	if res.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1 (deleted body)", res.Skipped)
	}
	if len(res.Errors) != 1 {
		t.Errorf("Errors = %v, want the orphan attributed as an error", res.Errors)
	}
	if len(store.savedCmts) != 1 || store.savedCmts[0].PostID != 11 {
		t.Fatalf("saved comments = %+v", store.savedCmts)
	}
}

func TestProcessCommentsStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.knownPosts["p1"] = 11
	store.commentsErr = errors.New("db down")
	p := newTestPipeline(t, store)

	res := p.ProcessComments(context.Background(), []reddit.Comment{
		{RedditID: "c1", PostRedditID: "p1", Body: "hi", Author: "a"},
	})
	if res.CommentsSaved != 0 || len(res.Errors) != 1 {
		t.Fatalf("result = %+v", res)
	}
}

func TestMerge(t *testing.T) {
	a := Result{PostsProcessed: 2, PostsSaved: 1, Skipped: 1, Errors: []string{"x"}}
	b := Result{PostsProcessed: 3, PostsSaved: 3, CommentsSaved: 4}
	a.Merge(b)
	if a.PostsProcessed != 5 || a.PostsSaved != 4 || a.CommentsSaved != 4 || a.Skipped != 1 || len(a.Errors) != 1 {
		t.Errorf("merged = %+v", a)
	}
}

func TestProcessPostsFiltersDeletionMarkers(t *testing.T) {
	store := newFakeStore()
	p := newTestPipeline(t, store)

	posts := []reddit.Post{
		{RedditID: "a1", Subreddit: "golang", Title: "[deleted]"},
		{RedditID: "a2", Subreddit: "golang", Title: "still here", IsSelf: true, Selftext: "[removed]"},
		{RedditID: "a3", Subreddit: "golang", Title: "link post", Selftext: "[removed]"},
	}
	res := p.ProcessPosts(context.Background(), posts)

	if res.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2 (deleted title, removed self text)", res.Skipped)
	}
	if res.PostsSaved != 1 {
		t.Errorf("PostsSaved = %d, want 1 (link posts keep a removed selftext)", res.PostsSaved)
	}
	if len(store.savedPosts) != 1 || store.savedPosts[0].RedditID != "a3" {
		t.Fatalf("saved = %+v", store.savedPosts)
	}
}

func TestProcessCommentsDropsEmptyFromDeletedAuthor(t *testing.T) {
	store := newFakeStore()
	store.knownPosts["p1"] = 11
	p := newTestPipeline(t, store)

	res := p.ProcessComments(context.Background(), []reddit.Comment{
		{RedditID: "c1", PostRedditID: "p1", Body: "   ", Author: "[deleted]"},
		{RedditID: "c2", PostRedditID: "p1", Body: "kept", Author: "[deleted]"},
	})

	if res.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1 (empty body and no author)", res.Skipped)
	}
	if res.CommentsSaved != 1 {
		t.Errorf("CommentsSaved = %d, want 1", res.CommentsSaved)
	}
	if len(store.savedCmts) != 1 || store.savedCmts[0].Comment.RedditID != "c2" {
		t.Fatalf("saved comments = %+v", store.savedCmts)
	}
}
