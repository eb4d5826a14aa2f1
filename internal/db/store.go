// Package db is the Postgres persistence layer: connection setup, schema
// bootstrap and the batched upsert repositories.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/onnwee/reddit-pulse/internal/config"
	"github.com/onnwee/reddit-pulse/internal/logger"
)

// Store wraps the shared *sql.DB and exposes the repositories.
type Store struct {
	db *sql.DB

	Subreddits *SubredditRepo
	Posts      *PostRepo
	Comments   *CommentRepo
}

// Init opens the pool from DATABASE_URL, verifies connectivity and ensures
// the schema exists.
func Init(ctx context.Context) (*Store, error) {
	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	conn, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	conn.SetMaxOpenConns(cfg.DBMaxOpenConns)
	conn.SetMaxIdleConns(cfg.DBMaxIdleConns)
	conn.SetConnMaxLifetime(cfg.DBConnLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := NewStore(conn)
	if err := s.EnsureSchema(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	logger.Info("database ready", "max_open_conns", cfg.DBMaxOpenConns)
	return s, nil
}

// NewStore wraps an existing connection, used by tests with a stub driver.
func NewStore(conn *sql.DB) *Store {
	batch := config.Load().UpsertBatchSize
	return &Store{
		db:         conn,
		Subreddits: &SubredditRepo{db: conn, batchSize: batch},
		Posts:      &PostRepo{db: conn, batchSize: batch},
		Comments:   &CommentRepo{db: conn, batchSize: batch},
	}
}

// DB exposes the underlying pool for health checks.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }
