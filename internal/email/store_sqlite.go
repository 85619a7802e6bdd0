package email

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/manny2375/2020realtorsblue-sub000/internal/core"
)

// SQLiteStore persists notification records and preferences in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates the store and ensures its schema exists.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite database is nil")
	}

	schema := `
	CREATE TABLE IF NOT EXISTS email_notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL DEFAULT '',
		recipient TEXT NOT NULL,
		template TEXT NOT NULL,
		subject TEXT NOT NULL,
		status TEXT NOT NULL,
		provider_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS email_preferences (
		user_id TEXT PRIMARY KEY,
		marketing INTEGER NOT NULL DEFAULT 1,
		price_alerts INTEGER NOT NULL DEFAULT 1,
		tour_confirmation INTEGER NOT NULL DEFAULT 1
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create email tables: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_email_notifications_user ON email_notifications(user_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_email_notifications_provider ON email_notifications(provider_id)",
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			slog.Warn("failed to create email index", "error", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) InsertBatch(ctx context.Context, records []*core.EmailNotification) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO email_notifications (id, user_id, recipient, template, subject, status, provider_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			rec.ID, rec.UserID, rec.Recipient, rec.Template, rec.Subject,
			rec.Status, rec.ProviderID,
			rec.CreatedAt.Format(time.RFC3339Nano), rec.UpdatedAt.Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("failed to insert notification: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) ListByUser(ctx context.Context, userID string, limit int) ([]core.EmailNotification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, recipient, template, subject, status, provider_id, created_at, updated_at
		FROM email_notifications WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var out []core.EmailNotification
	for rows.Next() {
		var rec core.EmailNotification
		var createdAt, updatedAt string
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Recipient, &rec.Template,
			&rec.Subject, &rec.Status, &rec.ProviderID, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Stats(ctx context.Context, userID string) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM email_notifications WHERE user_id = ? GROUP BY status`,
		userID)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to query notification stats: %w", err)
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, fmt.Errorf("failed to scan notification stats: %w", err)
		}
		applyStat(&stats, status, count)
	}
	return stats, rows.Err()
}

func (s *SQLiteStore) UpdateStatusByProviderID(ctx context.Context, providerID, status string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE email_notifications SET status = ?, updated_at = ? WHERE provider_id = ?`,
		status, time.Now().UTC().Format(time.RFC3339Nano), providerID)
	if err != nil {
		return false, fmt.Errorf("failed to update notification status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) GetPreferences(ctx context.Context, userID string) (*core.EmailPreferences, error) {
	prefs := &core.EmailPreferences{UserID: userID}
	var marketing, alerts, tours int
	err := s.db.QueryRowContext(ctx, `
		SELECT marketing, price_alerts, tour_confirmation FROM email_preferences WHERE user_id = ?`,
		userID).Scan(&marketing, &alerts, &tours)
	if err == sql.ErrNoRows {
		// Users who never saved preferences are opted in to everything.
		prefs.Marketing = true
		prefs.PriceAlerts = true
		prefs.TourConfirmation = true
		return prefs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query email preferences: %w", err)
	}
	prefs.Marketing = marketing != 0
	prefs.PriceAlerts = alerts != 0
	prefs.TourConfirmation = tours != 0
	return prefs, nil
}

func (s *SQLiteStore) UpsertPreferences(ctx context.Context, prefs *core.EmailPreferences) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO email_preferences (user_id, marketing, price_alerts, tour_confirmation)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			marketing = excluded.marketing,
			price_alerts = excluded.price_alerts,
			tour_confirmation = excluded.tour_confirmation`,
		prefs.UserID, boolToInt(prefs.Marketing), boolToInt(prefs.PriceAlerts), boolToInt(prefs.TourConfirmation))
	if err != nil {
		return fmt.Errorf("failed to upsert email preferences: %w", err)
	}
	return nil
}

func applyStat(stats *Stats, status string, count int) {
	stats.Total += count
	switch status {
	case core.EmailStatusQueued:
		stats.Queued += count
	case core.EmailStatusSent:
		stats.Sent += count
	case core.EmailStatusDelivered:
		stats.Delivered += count
	case core.EmailStatusBounced:
		stats.Bounced += count
	case core.EmailStatusFailed:
		stats.Failed += count
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
