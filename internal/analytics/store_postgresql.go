package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQLStore persists search-term counts in PostgreSQL.
type PostgreSQLStore struct {
	pool *pgxpool.Pool
}

// NewPostgreSQLStore creates the store and ensures its schema exists.
func NewPostgreSQLStore(pool *pgxpool.Pool) (*PostgreSQLStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("postgresql pool is nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	schema := `
	CREATE TABLE IF NOT EXISTS search_terms (
		term TEXT PRIMARY KEY,
		count BIGINT NOT NULL DEFAULT 0,
		last_seen TIMESTAMPTZ NOT NULL
	);
	`
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to create search_terms table: %w", err)
	}
	return &PostgreSQLStore{pool: pool}, nil
}

func (s *PostgreSQLStore) RecordSearch(ctx context.Context, term string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO search_terms (term, count, last_seen) VALUES ($1, 1, now())
		ON CONFLICT (term) DO UPDATE SET
			count = search_terms.count + 1,
			last_seen = now()`,
		term)
	if err != nil {
		return fmt.Errorf("failed to record search term: %w", err)
	}
	return nil
}

func (s *PostgreSQLStore) TopSearches(ctx context.Context, limit int) ([]SearchTerm, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT term, count FROM search_terms ORDER BY count DESC, term ASC LIMIT $1`, limit)
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
