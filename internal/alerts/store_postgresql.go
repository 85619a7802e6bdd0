package alerts

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

// PostgreSQLStore persists price alerts in PostgreSQL.
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
	CREATE TABLE IF NOT EXISTS price_alerts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		city TEXT NOT NULL DEFAULT '',
		property_type TEXT NOT NULL DEFAULT '',
		min_price_cents BIGINT NOT NULL DEFAULT 0,
		max_price_cents BIGINT NOT NULL DEFAULT 0,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL
	);
	`
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to create price_alerts table: %w", err)
	}

	if _, err := pool.Exec(ctx, "CREATE INDEX IF NOT EXISTS idx_price_alerts_user ON price_alerts(user_id)"); err != nil {
		slog.Warn("failed to create price_alerts index", "error", err)
	}

	return &PostgreSQLStore{pool: pool}, nil
}

const pgAlertColumns = "id, user_id, city, property_type, min_price_cents, max_price_cents, active, created_at"

func (s *PostgreSQLStore) CreateAlert(ctx context.Context, alert *core.PriceAlert) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO price_alerts (`+pgAlertColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		alert.ID, alert.UserID, alert.City, alert.PropertyType,
		alert.MinPriceCents, alert.MaxPriceCents, alert.Active, alert.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

func (s *PostgreSQLStore) ListAlertsByUser(ctx context.Context, userID string) ([]core.PriceAlert, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+pgAlertColumns+` FROM price_alerts WHERE user_id = $1 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()
	return scanAlerts(rows)
}

func (s *PostgreSQLStore) GetAlert(ctx context.Context, id string) (*core.PriceAlert, error) {
	var alert core.PriceAlert
	err := s.pool.QueryRow(ctx, `
		SELECT `+pgAlertColumns+` FROM price_alerts WHERE id = $1`, id).
		Scan(&alert.ID, &alert.UserID, &alert.City, &alert.PropertyType,
			&alert.MinPriceCents, &alert.MaxPriceCents, &alert.Active, &alert.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query alert: %w", err)
	}
	return &alert, nil
}

func (s *PostgreSQLStore) UpdateAlert(ctx context.Context, alert *core.PriceAlert) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE price_alerts
		SET city = $1, property_type = $2, min_price_cents = $3, max_price_cents = $4, active = $5
		WHERE id = $6`,
		alert.City, alert.PropertyType, alert.MinPriceCents, alert.MaxPriceCents,
		alert.Active, alert.ID)
	if err != nil {
		return fmt.Errorf("failed to update alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgreSQLStore) DeleteAlert(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM price_alerts WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	return nil
}

func (s *PostgreSQLStore) ListActiveMatching(ctx context.Context, property *core.Property) ([]core.PriceAlert, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+pgAlertColumns+` FROM price_alerts
		WHERE active
		  AND (city = '' OR lower(city) = lower($1))
		  AND (property_type = '' OR property_type = $2)
		  AND min_price_cents <= $3
		  AND (max_price_cents = 0 OR max_price_cents >= $3)`,
		property.City, property.PropertyType, property.PriceCents)
	if err != nil {
		return nil, fmt.Errorf("failed to match alerts: %w", err)
	}
	defer rows.Close()
	return scanAlerts(rows)
}

func scanAlerts(rows pgx.Rows) ([]core.PriceAlert, error) {
	var out []core.PriceAlert
	for rows.Next() {
		var alert core.PriceAlert
		if err := rows.Scan(&alert.ID, &alert.UserID, &alert.City, &alert.PropertyType,
			&alert.MinPriceCents, &alert.MaxPriceCents, &alert.Active, &alert.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		out = append(out, alert)
	}
	return out, rows.Err()
}
