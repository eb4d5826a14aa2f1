package db

import (
	"fmt"
	"strings"
	"testing"
)

func TestBuildPostUpsert(t *testing.T) {
	q := buildPostUpsert(2)

	if !strings.HasPrefix(q, "INSERT INTO posts (reddit_id, subreddit_id,") {
		t.Errorf("unexpected prefix: %s", q)
	}
	// Two rows of 11 placeholders each.
	for i := 1; i <= 22; i++ {
		if !strings.Contains(q, fmt.Sprintf("$%d", i)) {
			t.Errorf("missing placeholder $%d", i)
		}
	}
	if strings.Contains(q, "$23") {
		t.Error("too many placeholders")
	}
	if !strings.Contains(q, "ON CONFLICT (reddit_id) DO UPDATE") {
		t.Error("missing conflict clause")
	}
	if !strings.Contains(q, "RETURNING reddit_id, id") {
		t.Error("missing RETURNING clause")
	}

	// Only volatile columns are updated on conflict.
	conflict := q[strings.Index(q, "ON CONFLICT"):]
	for _, col := range []string{"score", "num_comments", "fetched_at", "updated_at"} {
		if !strings.Contains(conflict, col+" ") && !strings.Contains(conflict, col+"=") {
			t.Errorf("conflict clause missing volatile column %s", col)
		}
	}
	for _, col := range []string{"title", "selftext", "author", "permalink", "created_utc"} {
		if strings.Contains(conflict, col+" ") {
			t.Errorf("conflict clause must not overwrite %s", col)
		}
	}
}

func TestBuildCommentUpsert(t *testing.T) {
	q := buildCommentUpsert(3)

	for i := 1; i <= 21; i++ {
		if !strings.Contains(q, fmt.Sprintf("$%d", i)) {
			t.Errorf("missing placeholder $%d", i)
		}
	}
	if strings.Contains(q, "$22") {
		t.Error("too many placeholders")
	}
	if !strings.Contains(q, "ON CONFLICT (reddit_id) DO UPDATE") {
		t.Error("missing conflict clause")
	}

	conflict := q[strings.Index(q, "ON CONFLICT"):]
	for _, col := range []string{"score", "fetched_at", "updated_at"} {
		if !strings.Contains(conflict, col+" ") {
			t.Errorf("conflict clause missing volatile column %s", col)
		}
	}
	for _, col := range []string{"body", "author", "parent_reddit_id", "created_utc"} {
		if strings.Contains(conflict, col+" ") {
			t.Errorf("conflict clause must not overwrite %s", col)
		}
	}
}

func TestBuildUpsertSingleRow(t *testing.T) {
	q := buildPostUpsert(1)
	if strings.Count(q, "(") < 2 {
		t.Errorf("single-row statement malformed: %s", q)
	}
	if strings.Contains(q, "),(") {
		t.Error("single row should not contain a row separator")
	}
}
