package inquiry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/manny2375/2020realtorsblue-sub000/internal/core"
)

// PostgreSQLStore persists inquiries and tour requests in PostgreSQL.
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
	CREATE TABLE IF NOT EXISTS inquiries (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS tour_requests (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		preferred_date TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	);
	`
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to create inquiry tables: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_inquiries_created ON inquiries(created_at)",
		"CREATE INDEX IF NOT EXISTS idx_tour_requests_created ON tour_requests(created_at)",
	}
	for _, idx := range indexes {
		if _, err := pool.Exec(ctx, idx); err != nil {
			slog.Warn("failed to create inquiry index", "error", err)
		}
	}

	return &PostgreSQLStore{pool: pool}, nil
}

func (s *PostgreSQLStore) CreateInquiry(ctx context.Context, inq *core.Inquiry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO inquiries (id, property_id, name, email, phone, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		inq.ID, inq.PropertyID, inq.Name, inq.Email, inq.Phone, inq.Message, inq.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert inquiry: %w", err)
	}
	return nil
}

func (s *PostgreSQLStore) ListInquiries(ctx context.Context, limit int) ([]core.Inquiry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, property_id, name, email, phone, message, created_at
		FROM inquiries ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query inquiries: %w", err)
	}
	defer rows.Close()

	var out []core.Inquiry
	for rows.Next() {
		var inq core.Inquiry
		if err := rows.Scan(&inq.ID, &inq.PropertyID, &inq.Name, &inq.Email,
			&inq.Phone, &inq.Message, &inq.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan inquiry: %w", err)
		}
		out = append(out, inq)
	}
	return out, rows.Err()
}

func (s *PostgreSQLStore) CreateTourRequest(ctx context.Context, req *core.TourRequest) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tour_requests (id, property_id, name, email, phone, preferred_date, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		req.ID, req.PropertyID, req.Name, req.Email, req.Phone,
		req.PreferredDate, req.Message, req.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert tour request: %w", err)
	}
	return nil
}

func (s *PostgreSQLStore) ListTourRequests(ctx context.Context, limit int) ([]core.TourRequest, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, property_id, name, email, phone, preferred_date, message, created_at
		FROM tour_requests ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query tour requests: %w", err)
	}
	defer rows.Close()

	var out []core.TourRequest
	for rows.Next() {
		var req core.TourRequest
		if err := rows.Scan(&req.ID, &req.PropertyID, &req.Name, &req.Email,
			&req.Phone, &req.PreferredDate, &req.Message, &req.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tour request: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}
