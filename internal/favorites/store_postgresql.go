package favorites

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQLStore implements Store for PostgreSQL databases.
type PostgreSQLStore struct {
	pool *pgxpool.Pool
}

// NewPostgreSQLStore creates a new PostgreSQL favorites store, creating the
// favorites table if it doesn't exist.
func NewPostgreSQLStore(pool *pgxpool.Pool) (*PostgreSQLStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("connection pool is required")
	}

	_, err := pool.Exec(context.Background(), `
		CREATE TABLE IF NOT EXISTS favorites (
			user_id UUID NOT NULL,
			property_id UUID NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (user_id, property_id)
		)`)
	if err != nil {
		return nil, fmt.Errorf("failed to create favorites table: %w", err)
	}

	return &PostgreSQLStore{pool: pool}, nil
}

// List returns the property ids favorited by userID, newest first.
func (s *PostgreSQLStore) List(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT property_id FROM favorites WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan favorite: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Add inserts (userID, propertyID) if absent.
func (s *PostgreSQLStore) Add(ctx context.Context, userID, propertyID string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO favorites (user_id, property_id, created_at) VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING`,
		userID, propertyID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert favorite: %w", err)
	}
	return nil
}

// Remove deletes (userID, propertyID).
func (s *PostgreSQLStore) Remove(ctx context.Context, userID, propertyID string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM favorites WHERE user_id = $1 AND property_id = $2`, userID, propertyID)
	if err != nil {
		return fmt.Errorf("failed to delete favorite: %w", err)
	}
	return nil
}

// SyncBatch upserts every id in one batch round trip.
func (s *PostgreSQLStore) SyncBatch(ctx context.Context, userID string, propertyIDs []string) error {
	if len(propertyIDs) == 0 {
		return nil
	}

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, id := range propertyIDs {
		batch.Queue(`
			INSERT INTO favorites (user_id, property_id, created_at) VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING`, userID, id, now)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range propertyIDs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert favorites batch: %w", err)
		}
	}
	return nil
}
