package favorites

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteStore implements Store for SQLite databases.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite favorites store, creating the
// favorites table if it doesn't exist.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS favorites (
			user_id TEXT NOT NULL,
			property_id TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			PRIMARY KEY (user_id, property_id)
		)`)
	if err != nil {
		return nil, fmt.Errorf("failed to create favorites table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// List returns the property ids favorited by userID, newest first.
func (s *SQLiteStore) List(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT property_id FROM favorites WHERE user_id = ? ORDER BY created_at DESC`, userID)
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
func (s *SQLiteStore) Add(ctx context.Context, userID, propertyID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO favorites (user_id, property_id, created_at) VALUES (?, ?, ?)`,
		userID, propertyID, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to insert favorite: %w", err)
	}
	return nil
}

// Remove deletes (userID, propertyID).
func (s *SQLiteStore) Remove(ctx context.Context, userID, propertyID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM favorites WHERE user_id = ? AND property_id = ?`, userID, propertyID)
	if err != nil {
		return fmt.Errorf("failed to delete favorite: %w", err)
	}
	return nil
}

// SyncBatch upserts every id in one transaction.
func (s *SQLiteStore) SyncBatch(ctx context.Context, userID string, propertyIDs []string) error {
	if len(propertyIDs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, id := range propertyIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO favorites (user_id, property_id, created_at) VALUES (?, ?, ?)`,
			userID, id, now); err != nil {
			return fmt.Errorf("failed to upsert favorite %s: %w", id, err)
		}
	}

	return tx.Commit()
}
