package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/onnwee/reddit-pulse/internal/reddit"
)

// SubredditRow is a stored subreddit.
type SubredditRow struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Subscribers int       `json:"subscribers"`
	Over18      bool      `json:"over18"`
	CreatedUTC  time.Time `json:"created_utc"`
	FirstSeen   time.Time `json:"first_seen"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SubredditRepo persists subreddit metadata.
type SubredditRepo struct {
	db        *sql.DB
	batchSize int
}

// Upsert writes one subreddit's metadata, updating only the volatile columns
// on conflict. Returns the row id.
func (r *SubredditRepo) Upsert(ctx context.Context, info *reddit.SubredditInfo) (int64, error) {
	const q = `
		INSERT INTO subreddits (name, display_name, title, description, subscribers, over18, created_utc)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (name) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			title        = EXCLUDED.title,
			description  = EXCLUDED.description,
			subscribers  = EXCLUDED.subscribers,
			over18       = EXCLUDED.over18,
			updated_at   = now()
		RETURNING id`

	var id int64
	err := r.db.QueryRowContext(ctx, q,
		info.Name, info.DisplayName, info.Title, info.Description,
		info.Subscribers, info.Over18, nullTime(info.CreatedUTC),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert subreddit %s: %w", info.Name, err)
	}
	return id, nil
}

// EnsureByName inserts a bare row for name if missing and returns its id.
// Used when posts arrive for a subreddit whose metadata has not been fetched.
func (r *SubredditRepo) EnsureByName(ctx context.Context, name string) (int64, error) {
	const q = `
		INSERT INTO subreddits (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`

	var id int64
	if err := r.db.QueryRowContext(ctx, q, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("ensure subreddit %s: %w", name, err)
	}
	return id, nil
}

// GetByName returns a subreddit row or (nil, nil) when absent.
func (r *SubredditRepo) GetByName(ctx context.Context, name string) (*SubredditRow, error) {
	const q = `
		SELECT id, name, display_name, title, description, subscribers, over18,
		       COALESCE(created_utc, 'epoch'::timestamptz), first_seen, updated_at
		FROM subreddits WHERE name = $1`

	var row SubredditRow
	err := r.db.QueryRowContext(ctx, q, name).Scan(
		&row.ID, &row.Name, &row.DisplayName, &row.Title, &row.Description,
		&row.Subscribers, &row.Over18, &row.CreatedUTC, &row.FirstSeen, &row.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get subreddit %s: %w", name, err)
	}
	return &row, nil
}

// List returns subreddits ordered by subscriber count.
func (r *SubredditRepo) List(ctx context.Context, limit, offset int) ([]SubredditRow, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	const q = `
		SELECT id, name, display_name, title, description, subscribers, over18,
		       COALESCE(created_utc, 'epoch'::timestamptz), first_seen, updated_at
		FROM subreddits
		ORDER BY subscribers DESC, name
		LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list subreddits: %w", err)
	}
	defer rows.Close()

	var out []SubredditRow
	for rows.Next() {
		var row SubredditRow
		if err := rows.Scan(
			&row.ID, &row.Name, &row.DisplayName, &row.Title, &row.Description,
			&row.Subscribers, &row.Over18, &row.CreatedUTC, &row.FirstSeen, &row.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// nullTime maps the zero time to NULL.
func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
