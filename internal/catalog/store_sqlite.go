package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/manny2375/2020realtorsblue-sub000/internal/core"
)

const propertyColumns = `id, title, description, address, city, state, zip_code, price_cents,
	property_type, status, bedrooms, bathrooms, square_feet, year_built, featured, agent_id,
	image_url, created_at`

// SQLiteStore implements Store for SQLite databases.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite catalog store, creating the properties
// and agents tables if they don't exist.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS agents (
			id TEXT PRIMARY KEY,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			email TEXT NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			bio TEXT NOT NULL DEFAULT '',
			photo_url TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS properties (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL,
			city TEXT NOT NULL,
			state TEXT NOT NULL DEFAULT '',
			zip_code TEXT NOT NULL DEFAULT '',
			price_cents INTEGER NOT NULL,
			property_type TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			bedrooms INTEGER NOT NULL DEFAULT 0,
			bathrooms REAL NOT NULL DEFAULT 0,
			square_feet INTEGER NOT NULL DEFAULT 0,
			year_built INTEGER NOT NULL DEFAULT 0,
			featured INTEGER NOT NULL DEFAULT 0,
			agent_id TEXT NOT NULL DEFAULT '' REFERENCES agents(id),
			image_url TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("failed to create catalog tables: %w", err)
		}
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_properties_city ON properties(city)",
		"CREATE INDEX IF NOT EXISTS idx_properties_status ON properties(status)",
		"CREATE INDEX IF NOT EXISTS idx_properties_price ON properties(price_cents)",
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			slog.Warn("failed to create index", "error", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// ListProperties returns listings matching the filter, newest first.
func (s *SQLiteStore) ListProperties(ctx context.Context, f PropertyFilter) ([]core.Property, error) {
	var conditions []string
	var args []interface{}

	if f.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, f.Status)
	}
	if f.PropertyType != "" {
		conditions = append(conditions, "property_type = ?")
		args = append(args, f.PropertyType)
	}
	if f.MinPriceCents > 0 {
		conditions = append(conditions, "price_cents >= ?")
		args = append(args, f.MinPriceCents)
	}
	if f.MaxPriceCents > 0 {
		conditions = append(conditions, "price_cents <= ?")
		args = append(args, f.MaxPriceCents)
	}
	if f.MinBedrooms > 0 {
		conditions = append(conditions, "bedrooms >= ?")
		args = append(args, f.MinBedrooms)
	}
	if f.MinBathrooms > 0 {
		conditions = append(conditions, "bathrooms >= ?")
		args = append(args, f.MinBathrooms)
	}
	if f.City != "" {
		conditions = append(conditions, "city = ? COLLATE NOCASE")
		args = append(args, f.City)
	}
	if f.Featured != nil {
		conditions = append(conditions, "featured = ?")
		args = append(args, boolToInt(*f.Featured))
	}

	limit, offset := clampLimitOffset(f.Limit, f.Offset)
	args = append(args, limit, offset)

	query := "SELECT " + propertyColumns + " FROM properties" + buildWhereClause(conditions) +
		" ORDER BY created_at DESC LIMIT ? OFFSET ?"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query properties: %w", err)
	}
	defer rows.Close()

	return scanProperties(rows)
}

// GetProperty returns the listing for id.
func (s *SQLiteStore) GetProperty(ctx context.Context, id string) (*core.Property, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+propertyColumns+" FROM properties WHERE id = ?", id)
	p, err := scanProperty(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan property: %w", err)
	}
	return p, nil
}

// SearchProperties matches the query against title, description, address,
// and city.
func (s *SQLiteStore) SearchProperties(ctx context.Context, query string, limit int) ([]core.Property, error) {
	limit, _ = clampLimitOffset(limit, 0)
	pattern := "%" + escapeLikeWildcards(query) + "%"

	rows, err := s.db.QueryContext(ctx, "SELECT "+propertyColumns+` FROM properties
		WHERE title LIKE ? ESCAPE '\'
		   OR description LIKE ? ESCAPE '\'
		   OR address LIKE ? ESCAPE '\'
		   OR city LIKE ? ESCAPE '\'
		ORDER BY created_at DESC LIMIT ?`,
		pattern, pattern, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search properties: %w", err)
	}
	defer rows.Close()

	return scanProperties(rows)
}

// CreateProperty inserts a listing.
func (s *SQLiteStore) CreateProperty(ctx context.Context, p *core.Property) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO properties (id, title, description, address, city, state, zip_code,
			price_cents, property_type, status, bedrooms, bathrooms, square_feet,
			year_built, featured, agent_id, image_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Description, p.Address, p.City, p.State, p.ZipCode,
		p.PriceCents, p.PropertyType, p.Status, p.Bedrooms, p.Bathrooms, p.SquareFeet,
		p.YearBuilt, boolToInt(p.Featured), p.AgentID, p.ImageURL,
		p.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert property: %w", err)
	}
	return nil
}

// ListAgents returns all agent profiles.
func (s *SQLiteStore) ListAgents(ctx context.Context) ([]core.Agent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, first_name, last_name, email, phone, title, bio, photo_url, created_at
		FROM agents ORDER BY last_name, first_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query agents: %w", err)
	}
	defer rows.Close()

	var agents []core.Agent
	for rows.Next() {
		var a core.Agent
		var createdAt string
		if err := rows.Scan(&a.ID, &a.FirstName, &a.LastName, &a.Email, &a.Phone, &a.Title, &a.Bio, &a.PhotoURL, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan agent: %w", err)
		}
		a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// GetAgent returns the agent profile for id.
func (s *SQLiteStore) GetAgent(ctx context.Context, id string) (*core.Agent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, email, phone, title, bio, photo_url, created_at
		FROM agents WHERE id = ?`, id)

	var a core.Agent
	var createdAt string
	if err := row.Scan(&a.ID, &a.FirstName, &a.LastName, &a.Email, &a.Phone, &a.Title, &a.Bio, &a.PhotoURL, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan agent: %w", err)
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &a, nil
}

// CreateAgent inserts an agent profile.
func (s *SQLiteStore) CreateAgent(ctx context.Context, a *core.Agent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agents (id, first_name, last_name, email, phone, title, bio, photo_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.FirstName, a.LastName, a.Email, a.Phone, a.Title, a.Bio, a.PhotoURL,
		a.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert agent: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProperty(row rowScanner) (*core.Property, error) {
	var p core.Property
	var featured int
	var createdAt string
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Address, &p.City, &p.State, &p.ZipCode,
		&p.PriceCents, &p.PropertyType, &p.Status, &p.Bedrooms, &p.Bathrooms, &p.SquareFeet,
		&p.YearBuilt, &featured, &p.AgentID, &p.ImageURL, &createdAt)
	if err != nil {
		return nil, err
	}
	p.Featured = featured != 0
	p.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &p, nil
}

func scanProperties(rows *sql.Rows) ([]core.Property, error) {
	var properties []core.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		properties = append(properties, *p)
	}
	return properties, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
