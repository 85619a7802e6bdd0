package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteStore persists search-term counts in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates the store and ensures its schema exists.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite database is nil")
	}

	schema := `
	CREATE TABLE IF NOT EXISTS search_terms (
		term TEXT PRIMARY KEY,
		count INTEGER NOT NULL DEFAULT 0,
		last_seen TEXT NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create search_terms table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) RecordSearch(ctx context.Context, term string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO search_terms (term, count, last_seen) VALUES (?, 1, ?)
		ON CONFLICT(term) DO UPDATE SET
			count = count + 1,
			last_seen = excluded.last_seen`,
		term, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to record search term: %w", err)
	}
	return nil
}

func (s *SQLiteStore) TopSearches(ctx context.Context, limit int) ([]SearchTerm, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT term, count FROM search_terms ORDER BY count DESC, term ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query search terms: %w", err)
	}
	defer rows.Close()

	var out []SearchTerm
	for rows.Next() {
		var t SearchTerm
		if err := rows.Scan(&t.Term, &t.Count); err != nil {
			return nil, fmt.Errorf("failed to scan search term: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
