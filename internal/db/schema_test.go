package db

import (
	"strings"
	"testing"
)

func TestSchemaIndexes(t *testing.T) {
	all := strings.Join(schemaStatements, "\n")
	for _, idx := range []string{
		"idx_posts_subreddit_id",
		"idx_posts_created_utc",
		"idx_posts_fetched_at",
		"idx_posts_score",
		"idx_comments_post_id",
		"idx_comments_created_utc",
		"idx_comments_fetched_at",
	} {
		if !strings.Contains(all, idx) {
			t.Errorf("schema missing index %s", idx)
		}
	}
}

func TestSchemaTablesBeforeIndexes(t *testing.T) {
	lastTable, firstIndex := -1, -1
	for i, stmt := range schemaStatements {
		switch {
		case strings.HasPrefix(stmt, "CREATE TABLE"):
			lastTable = i
		case strings.HasPrefix(stmt, "CREATE INDEX"):
			if firstIndex < 0 {
				firstIndex = i
			}
		}
	}
	if firstIndex >= 0 && firstIndex < lastTable {
		t.Error("indexes must come after all tables")
	}
}
