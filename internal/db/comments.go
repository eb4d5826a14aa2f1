package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/onnwee/reddit-pulse/internal/reddit"
)

// CommentRow is a stored comment.
type CommentRow struct {
	ID             int64     `json:"id"`
	RedditID       string    `json:"reddit_id"`
	PostID         int64     `json:"post_id"`
	ParentRedditID string    `json:"parent_reddit_id"`
	Body           string    `json:"body"`
	Author         string    `json:"author"`
	Score          int       `json:"score"`
	CreatedUTC     time.Time `json:"created_utc"`
	FetchedAt      time.Time `json:"fetched_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CommentUpsert pairs a comment with its resolved post row id.
type CommentUpsert struct {
	Comment reddit.Comment
	PostID  int64
}

// CommentRepo persists comments with batched multi-row upserts.
type CommentRepo struct {
	db        *sql.DB
	batchSize int
}

const commentColumns = 6

// buildCommentUpsert renders the multi-row statement for n comments.
// Volatile columns only on conflict: score and the timestamps. The body is
// immutable after first insert.
func buildCommentUpsert(n int) string {
	var sb strings.Builder
	sb.WriteString("INSERT INTO comments (reddit_id, post_id, parent_reddit_id, body, author, score, created_utc) VALUES ")
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		base := i*(commentColumns+1) + 1
		sb.WriteByte('(')
		for j := 0; j <= commentColumns; j++ {
			if j > 0 {
				sb.WriteByte(',')
			}
			fmt.Fprintf(&sb, "$%d", base+j)
		}
		sb.WriteByte(')')
	}
	sb.WriteString(` ON CONFLICT (reddit_id) DO UPDATE SET
		score      = EXCLUDED.score,
		fetched_at = now(),
		updated_at = now()`)
	return sb.String()
}

// BatchUpsert writes comments in batches. Each entry carries its resolved
// post row id; the caller filters out comments for unknown posts first.
func (r *CommentRepo) BatchUpsert(ctx context.Context, comments []CommentUpsert) error {
	if len(comments) == 0 {
		return nil
	}
	batchSize := r.batchSize
	if batchSize <= 0 {
		batchSize = 500
	}

	for start := 0; start < len(comments); start += batchSize {
		end := start + batchSize
		if end > len(comments) {
			end = len(comments)
		}
		batch := comments[start:end]

		args := make([]any, 0, len(batch)*(commentColumns+1))
		for _, cu := range batch {
			c := cu.Comment
			args = append(args,
				c.RedditID, cu.PostID, c.ParentRedditID, c.Body, c.Author,
				c.Score, nullTime(c.CreatedUTC),
			)
		}
		if _, err := r.db.ExecContext(ctx, buildCommentUpsert(len(batch)), args...); err != nil {
			return fmt.Errorf("batch upsert comments: %w", err)
		}
	}
	return nil
}

// ExistingIDs maps the given reddit ids to row ids for those already stored.
func (r *CommentRepo) ExistingIDs(ctx context.Context, redditIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(redditIDs))
	if len(redditIDs) == 0 {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT reddit_id, id FROM comments WHERE reddit_id = ANY($1)`, pq.Array(redditIDs))
	if err != nil {
		return nil, fmt.Errorf("existing comment ids: %w", err)
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

// ListByPost returns a post's comments in tree-insertion order.
func (r *CommentRepo) ListByPost(ctx context.Context, postID int64, limit, offset int) ([]CommentRow, error) {
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, reddit_id, post_id, parent_reddit_id, body, author, score,
		       COALESCE(created_utc, 'epoch'::timestamptz), fetched_at, updated_at
		FROM comments
		WHERE post_id = $1
		ORDER BY id
		LIMIT $2 OFFSET $3`, postID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var out []CommentRow
	for rows.Next() {
		var row CommentRow
		if err := rows.Scan(
			&row.ID, &row.RedditID, &row.PostID, &row.ParentRedditID, &row.Body,
			&row.Author, &row.Score, &row.CreatedUTC, &row.FetchedAt, &row.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Count returns the total number of stored comments.
func (r *CommentRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM comments`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return n, nil
}
