package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/manny2375/2020realtorsblue-sub000/internal/core"
)

// PostgreSQLStore implements Store for PostgreSQL databases.
type PostgreSQLStore struct {
	pool *pgxpool.Pool
}

// NewPostgreSQLStore creates a new PostgreSQL catalog store, creating the
// properties and agents tables if they don't exist.
func NewPostgreSQLStore(pool *pgxpool.Pool) (*PostgreSQLStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("connection pool is required")
	}

	ctx := context.Background()
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS agents (
			id UUID PRIMARY KEY,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			email TEXT NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			bio TEXT NOT NULL DEFAULT '',
			photo_url TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS properties (
			id UUID PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL,
			city TEXT NOT NULL,
			state TEXT NOT NULL DEFAULT '',
			zip_code TEXT NOT NULL DEFAULT '',
			price_cents BIGINT NOT NULL,
			property_type TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			bedrooms INTEGER NOT NULL DEFAULT 0,
			bathrooms DOUBLE PRECISION NOT NULL DEFAULT 0,
			square_feet INTEGER NOT NULL DEFAULT 0,
			year_built INTEGER NOT NULL DEFAULT 0,
			featured BOOLEAN NOT NULL DEFAULT FALSE,
			agent_id UUID REFERENCES agents(id),
			image_url TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create catalog tables: %w", err)
		}
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_properties_city ON properties(city)",
		"CREATE INDEX IF NOT EXISTS idx_properties_status ON properties(status)",
		"CREATE INDEX IF NOT EXISTS idx_properties_price ON properties(price_cents)",
	}
	for _, idx := range indexes {
		if _, err := pool.Exec(ctx, idx); err != nil {
			slog.Warn("failed to create index", "error", err)
		}
	}

	return &PostgreSQLStore{pool: pool}, nil
}

// ListProperties returns listings matching the filter, newest first.
func (s *PostgreSQLStore) ListProperties(ctx context.Context, f PropertyFilter) ([]core.Property, error) {
	var conditions []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Status != "" {
		conditions = append(conditions, "status = "+arg(f.Status))
	}
	if f.PropertyType != "" {
		conditions = append(conditions, "property_type = "+arg(f.PropertyType))
	}
	if f.MinPriceCents > 0 {
		conditions = append(conditions, "price_cents >= "+arg(f.MinPriceCents))
	}
	if f.MaxPriceCents > 0 {
		conditions = append(conditions, "price_cents <= "+arg(f.MaxPriceCents))
	}
	if f.MinBedrooms > 0 {
		conditions = append(conditions, "bedrooms >= "+arg(f.MinBedrooms))
	}
	if f.MinBathrooms > 0 {
		conditions = append(conditions, "bathrooms >= "+arg(f.MinBathrooms))
	}
	if f.City != "" {
		conditions = append(conditions, "LOWER(city) = LOWER("+arg(f.City)+")")
	}
	if f.Featured != nil {
		conditions = append(conditions, "featured = "+arg(*f.Featured))
	}

	limit, offset := clampLimitOffset(f.Limit, f.Offset)
	query := "SELECT " + propertyColumns + " FROM properties" + buildWhereClause(conditions) +
		" ORDER BY created_at DESC LIMIT " + arg(limit) + " OFFSET " + arg(offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query properties: %w", err)
	}
	defer rows.Close()

	return scanPgProperties(rows)
}

// GetProperty returns the listing for id.
func (s *PostgreSQLStore) GetProperty(ctx context.Context, id string) (*core.Property, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+propertyColumns+" FROM properties WHERE id = $1", id)
	p, err := scanPgProperty(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan property: %w", err)
	}
	return p, nil
}

// SearchProperties matches the query against title, description, address,
// and city.
func (s *PostgreSQLStore) SearchProperties(ctx context.Context, query string, limit int) ([]core.Property, error) {
	limit, _ = clampLimitOffset(limit, 0)
	pattern := "%" + escapeLikeWildcards(query) + "%"

	rows, err := s.pool.Query(ctx, "SELECT "+propertyColumns+` FROM properties
		WHERE title ILIKE $1 OR description ILIKE $1 OR address ILIKE $1 OR city ILIKE $1
		ORDER BY created_at DESC LIMIT $2`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search properties: %w", err)
	}
	defer rows.Close()

	return scanPgProperties(rows)
}

// CreateProperty inserts a listing.
func (s *PostgreSQLStore) CreateProperty(ctx context.Context, p *core.Property) error {
	var agentID interface{}
	if p.AgentID != "" {
		agentID = p.AgentID
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO properties (id, title, description, address, city, state, zip_code,
			price_cents, property_type, status, bedrooms, bathrooms, square_feet,
			year_built, featured, agent_id, image_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		p.ID, p.Title, p.Description, p.Address, p.City, p.State, p.ZipCode,
		p.PriceCents, p.PropertyType, p.Status, p.Bedrooms, p.Bathrooms, p.SquareFeet,
		p.YearBuilt, p.Featured, agentID, p.ImageURL, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert property: %w", err)
	}
	return nil
}

// ListAgents returns all agent profiles.
func (s *PostgreSQLStore) ListAgents(ctx context.Context) ([]core.Agent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, first_name, last_name, email, phone, title, bio, photo_url, created_at
		FROM agents ORDER BY last_name, first_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query agents: %w", err)
	}
	defer rows.Close()

	var agents []core.Agent
	for rows.Next() {
		var a core.Agent
		if err := rows.Scan(&a.ID, &a.FirstName, &a.LastName, &a.Email, &a.Phone, &a.Title, &a.Bio, &a.PhotoURL, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan agent: %w", err)
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// GetAgent returns the agent profile for id.
func (s *PostgreSQLStore) GetAgent(ctx context.Context, id string) (*core.Agent, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, email, phone, title, bio, photo_url, created_at
		FROM agents WHERE id = $1`, id)

	var a core.Agent
	if err := row.Scan(&a.ID, &a.FirstName, &a.LastName, &a.Email, &a.Phone, &a.Title, &a.Bio, &a.PhotoURL, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan agent: %w", err)
	}
	return &a, nil
}

// CreateAgent inserts an agent profile.
func (s *PostgreSQLStore) CreateAgent(ctx context.Context, a *core.Agent) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO agents (id, first_name, last_name, email, phone, title, bio, photo_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.FirstName, a.LastName, a.Email, a.Phone, a.Title, a.Bio, a.PhotoURL, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert agent: %w", err)
	}
	return nil
}

func scanPgProperty(row pgx.Row) (*core.Property, error) {
	var p core.Property
	var agentID *string
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Address, &p.City, &p.State, &p.ZipCode,
		&p.PriceCents, &p.PropertyType, &p.Status, &p.Bedrooms, &p.Bathrooms, &p.SquareFeet,
		&p.YearBuilt, &p.Featured, &agentID, &p.ImageURL, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if agentID != nil {
		p.AgentID = *agentID
	}
	return &p, nil
}

func scanPgProperties(rows pgx.Rows) ([]core.Property, error) {
	var properties []core.Property
	for rows.Next() {
		p, err := scanPgProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		properties = append(properties, *p)
	}
	return properties, rows.Err()
}
