package db

import (
	"context"
	"fmt"
)

// schemaStatements create the tables and indexes idempotently. Order matters
// because of the foreign keys.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS subreddits (
		id           SERIAL PRIMARY KEY,
		name         TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		title        TEXT NOT NULL DEFAULT '',
		description  TEXT NOT NULL DEFAULT '',
		subscribers  INTEGER NOT NULL DEFAULT 0,
		over18       BOOLEAN NOT NULL DEFAULT FALSE,
		created_utc  TIMESTAMPTZ,
		first_seen   TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS posts (
		id           SERIAL PRIMARY KEY,
		reddit_id    TEXT NOT NULL UNIQUE,
		subreddit_id INTEGER NOT NULL REFERENCES subreddits(id) ON DELETE CASCADE,
		title        TEXT NOT NULL DEFAULT '',
		selftext     TEXT NOT NULL DEFAULT '',
		author       TEXT NOT NULL DEFAULT '',
		score        INTEGER NOT NULL DEFAULT 0,
		num_comments INTEGER NOT NULL DEFAULT 0,
		url          TEXT NOT NULL DEFAULT '',
		permalink    TEXT NOT NULL DEFAULT '',
		is_self      BOOLEAN NOT NULL DEFAULT FALSE,
		created_utc  TIMESTAMPTZ,
		fetched_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id               SERIAL PRIMARY KEY,
		reddit_id        TEXT NOT NULL UNIQUE,
		post_id          INTEGER NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		parent_reddit_id TEXT NOT NULL DEFAULT '',
		body             TEXT NOT NULL DEFAULT '',
		author           TEXT NOT NULL DEFAULT '',
		score            INTEGER NOT NULL DEFAULT 0,
		created_utc      TIMESTAMPTZ,
		fetched_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_subreddit_id ON posts(subreddit_id)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_created_utc ON posts(created_utc DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_fetched_at ON posts(fetched_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_score ON posts(score DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments(post_id)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_created_utc ON comments(created_utc DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_fetched_at ON comments(fetched_at DESC)`,
}

// EnsureSchema creates tables and indexes if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
