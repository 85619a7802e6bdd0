package alerts

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/manny2375/2020realtorsblue-sub000/internal/core"
)

// SQLiteStore persists price alerts in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates the store and ensures its schema exists.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite database is nil")
	}

	schema := `
	CREATE TABLE IF NOT EXISTS price_alerts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		city TEXT NOT NULL DEFAULT '',
		property_type TEXT NOT NULL DEFAULT '',
		min_price_cents INTEGER NOT NULL DEFAULT 0,
		max_price_cents INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create price_alerts table: %w", err)
	}

	if _, err := db.Exec("CREATE INDEX IF NOT EXISTS idx_price_alerts_user ON price_alerts(user_id)"); err != nil {
		slog.Warn("failed to create price_alerts index", "error", err)
	}

	return &SQLiteStore{db: db}, nil
}

const alertColumns = "id, user_id, city, property_type, min_price_cents, max_price_cents, active, created_at"

func scanAlert(row interface{ Scan(...any) error }) (*core.PriceAlert, error) {
	var alert core.PriceAlert
	var active int
	var createdAt string
	if err := row.Scan(&alert.ID, &alert.UserID, &alert.City, &alert.PropertyType,
		&alert.MinPriceCents, &alert.MaxPriceCents, &active, &createdAt); err != nil {
		return nil, err
	}
	alert.Active = active != 0
	alert.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &alert, nil
}

func (s *SQLiteStore) CreateAlert(ctx context.Context, alert *core.PriceAlert) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO price_alerts (`+alertColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		alert.ID, alert.UserID, alert.City, alert.PropertyType,
		alert.MinPriceCents, alert.MaxPriceCents, boolToInt(alert.Active),
		alert.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListAlertsByUser(ctx context.Context, userID string) ([]core.PriceAlert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+alertColumns+` FROM price_alerts WHERE user_id = ? ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var out []core.PriceAlert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		out = append(out, *alert)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetAlert(ctx context.Context, id string) (*core.PriceAlert, error) {
	alert, err := scanAlert(s.db.QueryRowContext(ctx, `
		SELECT `+alertColumns+` FROM price_alerts WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query alert: %w", err)
	}
	return alert, nil
}

func (s *SQLiteStore) UpdateAlert(ctx context.Context, alert *core.PriceAlert) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE price_alerts
		SET city = ?, property_type = ?, min_price_cents = ?, max_price_cents = ?, active = ?
		WHERE id = ?`,
		alert.City, alert.PropertyType, alert.MinPriceCents, alert.MaxPriceCents,
		boolToInt(alert.Active), alert.ID)
	if err != nil {
		return fmt.Errorf("failed to update alert: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteAlert(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM price_alerts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListActiveMatching(ctx context.Context, property *core.Property) ([]core.PriceAlert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+alertColumns+` FROM price_alerts
		WHERE active = 1
		  AND (city = '' OR city = ? COLLATE NOCASE)
		  AND (property_type = '' OR property_type = ?)
		  AND min_price_cents <= ?
		  AND (max_price_cents = 0 OR max_price_cents >= ?)`,
		property.City, property.PropertyType, property.PriceCents, property.PriceCents)
	if err != nil {
		return nil, fmt.Errorf("failed to match alerts: %w", err)
	}
	defer rows.Close()

	var out []core.PriceAlert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		out = append(out, *alert)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
