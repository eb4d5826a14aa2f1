package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/onnwee/reddit-pulse/internal/reddit"
)

// PostRow is a stored post.
type PostRow struct {
	ID          int64     `json:"id"`
	RedditID    string    `json:"reddit_id"`
	SubredditID int64     `json:"subreddit_id"`
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
	UpdatedAt   time.Time `json:"updated_at"`
}

// PostRepo persists posts with batched multi-row upserts.
type PostRepo struct {
	db        *sql.DB
	batchSize int
}

const postColumns = 10

// buildPostUpsert renders the multi-row statement for n posts. Volatile
// columns only on conflict: score, num_comments and the timestamps. Title and
// selftext are immutable after first insert.
func buildPostUpsert(n int) string {
	var sb strings.Builder
	sb.WriteString("INSERT INTO posts (reddit_id, subreddit_id, title, selftext, author, score, num_comments, url, permalink, is_self, created_utc) VALUES ")
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		base := i*(postColumns+1) + 1
		sb.WriteByte('(')
		for j := 0; j <= postColumns; j++ {
			if j > 0 {
				sb.WriteByte(',')
			}
			fmt.Fprintf(&sb, "$%d", base+j)
		}
		sb.WriteByte(')')
	}
	sb.WriteString(` ON CONFLICT (reddit_id) DO UPDATE SET
		score        = EXCLUDED.score,
		num_comments = EXCLUDED.num_comments,
		fetched_at   = now(),
		updated_at   = now()
	RETURNING reddit_id, id`)
	return sb.String()
}

// BatchUpsert writes posts in batches and returns reddit_id -> row id for
// the whole slice. All posts must belong to the given subreddit row.
func (r *PostRepo) BatchUpsert(ctx context.Context, subredditID int64, posts []reddit.Post) (map[string]int64, error) {
	ids := make(map[string]int64, len(posts))
	if len(posts) == 0 {
		return ids, nil
	}
	batchSize := r.batchSize
	if batchSize <= 0 {
		batchSize = 500
	}

	for start := 0; start < len(posts); start += batchSize {
		end := start + batchSize
		if end > len(posts) {
			end = len(posts)
		}
		batch := posts[start:end]

		args := make([]any, 0, len(batch)*(postColumns+1))
		for _, p := range batch {
			args = append(args,
				p.RedditID, subredditID, p.Title, p.Selftext, p.Author,
				p.Score, p.NumComments, p.URL, p.Permalink, p.IsSelf,
				nullTime(p.CreatedUTC),
			)
		}

		rows, err := r.db.QueryContext(ctx, buildPostUpsert(len(batch)), args...)
		if err != nil {
			return ids, fmt.Errorf("batch upsert posts: %w", err)
		}
		for rows.Next() {
			var redditID string
			var id int64
			if err := rows.Scan(&redditID, &id); err != nil {
				rows.Close()
				return ids, err
			}
			ids[redditID] = id
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return ids, err
		}
		rows.Close()
	}
	return ids, nil
}

// ExistingIDs maps the given reddit ids to row ids for those already stored.
func (r *PostRepo) ExistingIDs(ctx context.Context, redditIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(redditIDs))
	if len(redditIDs) == 0 {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT reddit_id, id FROM posts WHERE reddit_id = ANY($1)`, pq.Array(redditIDs))
	if err != nil {
		return nil, fmt.Errorf("existing post ids: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var redditID string
		var id int64
		if err := rows.Scan(&redditID, &id); err != nil {
			return nil, err
		}
		out[redditID] = id
	}
	return out, rows.Err()
}

const postSelect = `
	SELECT id, reddit_id, subreddit_id, title, selftext, author, score, num_comments,
	       url, permalink, is_self, COALESCE(created_utc, 'epoch'::timestamptz),
	       fetched_at, updated_at
	FROM posts`

func (r *PostRepo) scanRows(rows *sql.Rows) ([]PostRow, error) {
	defer rows.Close()
	var out []PostRow
	for rows.Next() {
		var row PostRow
		if err := rows.Scan(
			&row.ID, &row.RedditID, &row.SubredditID, &row.Title, &row.Selftext,
			&row.Author, &row.Score, &row.NumComments, &row.URL, &row.Permalink,
			&row.IsSelf, &row.CreatedUTC, &row.FetchedAt, &row.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// GetByRedditID returns one post or (nil, nil) when absent.
func (r *PostRepo) GetByRedditID(ctx context.Context, redditID string) (*PostRow, error) {
	rows, err := r.db.QueryContext(ctx, postSelect+` WHERE reddit_id = $1`, redditID)
	if err != nil {
		return nil, fmt.Errorf("get post %s: %w", redditID, err)
	}
	out, err := r.scanRows(rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}

// ListBySubreddit returns posts for one subreddit, newest first.
func (r *PostRepo) ListBySubreddit(ctx context.Context, subredditID int64, limit, offset int) ([]PostRow, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		postSelect+` WHERE subreddit_id = $1 ORDER BY created_utc DESC NULLS LAST LIMIT $2 OFFSET $3`,
		subredditID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return r.scanRows(rows)
}

// ListRecent returns the newest posts across all subreddits.
func (r *PostRepo) ListRecent(ctx context.Context, limit, offset int) ([]PostRow, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		postSelect+` ORDER BY created_utc DESC NULLS LAST LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list recent posts: %w", err)
	}
	return r.scanRows(rows)
}

// ListTop returns the highest-scoring posts since the cutoff.
func (r *PostRepo) ListTop(ctx context.Context, since time.Time, limit int) ([]PostRow, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		postSelect+` WHERE created_utc >= $1 ORDER BY score DESC LIMIT $2`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("list top posts: %w", err)
	}
	return r.scanRows(rows)
}

// Count returns the total number of stored posts.
func (r *PostRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return n, nil
}
