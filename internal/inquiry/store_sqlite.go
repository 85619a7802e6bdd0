package inquiry

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/manny2375/2020realtorsblue-sub000/internal/core"
)

// SQLiteStore persists inquiries and tour requests in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates the store and ensures its schema exists.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite database is nil")
	}

	schema := `
	CREATE TABLE IF NOT EXISTS inquiries (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS tour_requests (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		preferred_date TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create inquiry tables: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_inquiries_created ON inquiries(created_at)",
		"CREATE INDEX IF NOT EXISTS idx_tour_requests_created ON tour_requests(created_at)",
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			slog.Warn("failed to create inquiry index", "error", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) CreateInquiry(ctx context.Context, inq *core.Inquiry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inquiries (id, property_id, name, email, phone, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		inq.ID, inq.PropertyID, inq.Name, inq.Email, inq.Phone, inq.Message,
		inq.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to insert inquiry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListInquiries(ctx context.Context, limit int) ([]core.Inquiry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, property_id, name, email, phone, message, created_at
		FROM inquiries ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query inquiries: %w", err)
	}
	defer rows.Close()

	var out []core.Inquiry
	for rows.Next() {
		var inq core.Inquiry
		var createdAt string
		if err := rows.Scan(&inq.ID, &inq.PropertyID, &inq.Name, &inq.Email,
			&inq.Phone, &inq.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan inquiry: %w", err)
		}
		inq.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, inq)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CreateTourRequest(ctx context.Context, req *core.TourRequest) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tour_requests (id, property_id, name, email, phone, preferred_date, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.PropertyID, req.Name, req.Email, req.Phone,
		req.PreferredDate, req.Message, req.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to insert tour request: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListTourRequests(ctx context.Context, limit int) ([]core.TourRequest, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, property_id, name, email, phone, preferred_date, message, created_at
		FROM tour_requests ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query tour requests: %w", err)
	}
	defer rows.Close()

	var out []core.TourRequest
	for rows.Next() {
		var req core.TourRequest
		var createdAt string
		if err := rows.Scan(&req.ID, &req.PropertyID, &req.Name, &req.Email,
			&req.Phone, &req.PreferredDate, &req.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan tour request: %w", err)
		}
		req.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, req)
	}
	return out, rows.Err()
}
