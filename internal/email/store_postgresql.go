package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/manny2375/2020realtorsblue-sub000/internal/core"
)

// PostgreSQLStore persists notification records and preferences in PostgreSQL.
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
	CREATE TABLE IF NOT EXISTS email_notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL DEFAULT '',
		recipient TEXT NOT NULL,
		template TEXT NOT NULL,
		subject TEXT NOT NULL,
		status TEXT NOT NULL,
		provider_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS email_preferences (
		user_id TEXT PRIMARY KEY,
		marketing BOOLEAN NOT NULL DEFAULT TRUE,
		price_alerts BOOLEAN NOT NULL DEFAULT TRUE,
		tour_confirmation BOOLEAN NOT NULL DEFAULT TRUE
	);
	`
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to create email tables: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_email_notifications_user ON email_notifications(user_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_email_notifications_provider ON email_notifications(provider_id)",
	}
	for _, idx := range indexes {
		if _, err := pool.Exec(ctx, idx); err != nil {
			slog.Warn("failed to create email index", "error", err)
		}
	}

	return &PostgreSQLStore{pool: pool}, nil
}

func (s *PostgreSQLStore) InsertBatch(ctx context.Context, records []*core.EmailNotification) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(`
			INSERT INTO email_notifications (id, user_id, recipient, template, subject, status, provider_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			rec.ID, rec.UserID, rec.Recipient, rec.Template, rec.Subject,
			rec.Status, rec.ProviderID, rec.CreatedAt, rec.UpdatedAt)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert notification: %w", err)
		}
	}
	return nil
}

func (s *PostgreSQLStore) ListByUser(ctx context.Context, userID string, limit int) ([]core.EmailNotification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, recipient, template, subject, status, provider_id, created_at, updated_at
		FROM email_notifications WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var out []core.EmailNotification
	for rows.Next() {
		var rec core.EmailNotification
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Recipient, &rec.Template,
			&rec.Subject, &rec.Status, &rec.ProviderID, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgreSQLStore) Stats(ctx context.Context, userID string) (Stats, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT status, COUNT(*) FROM email_notifications WHERE user_id = $1 GROUP BY status`,
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

func (s *PostgreSQLStore) UpdateStatusByProviderID(ctx context.Context, providerID, status string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE email_notifications SET status = $1, updated_at = now() WHERE provider_id = $2`,
		status, providerID)
	if err != nil {
		return false, fmt.Errorf("failed to update notification status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgreSQLStore) GetPreferences(ctx context.Context, userID string) (*core.EmailPreferences, error) {
	prefs := &core.EmailPreferences{UserID: userID}
	err := s.pool.QueryRow(ctx, `
		SELECT marketing, price_alerts, tour_confirmation FROM email_preferences WHERE user_id = $1`,
		userID).Scan(&prefs.Marketing, &prefs.PriceAlerts, &prefs.TourConfirmation)
	if errors.Is(err, pgx.ErrNoRows) {
		prefs.Marketing = true
		prefs.PriceAlerts = true
		prefs.TourConfirmation = true
		return prefs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query email preferences: %w", err)
	}
	return prefs, nil
}

func (s *PostgreSQLStore) UpsertPreferences(ctx context.Context, prefs *core.EmailPreferences) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO email_preferences (user_id, marketing, price_alerts, tour_confirmation)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			marketing = EXCLUDED.marketing,
			price_alerts = EXCLUDED.price_alerts,
			tour_confirmation = EXCLUDED.tour_confirmation`,
		prefs.UserID, prefs.Marketing, prefs.PriceAlerts, prefs.TourConfirmation)
	if err != nil {
		return fmt.Errorf("failed to upsert email preferences: %w", err)
	}
	return nil
}
