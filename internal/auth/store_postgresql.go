package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/manny2375/2020realtorsblue-sub000/internal/core"
)

// PostgreSQLStore implements Store for PostgreSQL databases.
type PostgreSQLStore struct {
	pool *pgxpool.Pool
}

// NewPostgreSQLStore creates a new PostgreSQL auth store, creating the users
// and sessions tables if they don't exist.
func NewPostgreSQLStore(pool *pgxpool.Pool) (*PostgreSQLStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("connection pool is required")
	}

	ctx := context.Background()
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'user',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id),
			expires_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id)`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create auth tables: %w", err)
		}
	}

	return &PostgreSQLStore{pool: pool}, nil
}

// CreateUser persists a new user.
func (s *PostgreSQLStore) CreateUser(ctx context.Context, user *core.User, passwordHash string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, first_name, last_name, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.Email, passwordHash, user.FirstName, user.LastName, user.Role, user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUserByEmail returns the user and its password hash.
func (s *PostgreSQLStore) GetUserByEmail(ctx context.Context, email string) (*core.User, string, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, first_name, last_name, role, created_at
		FROM users WHERE email = $1`, email)

	var user core.User
	var hash string
	if err := row.Scan(&user.ID, &user.Email, &hash, &user.FirstName, &user.LastName, &user.Role, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, hash, nil
}

// GetUserByID returns the user for id.
func (s *PostgreSQLStore) GetUserByID(ctx context.Context, id string) (*core.User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, first_name, last_name, role, created_at
		FROM users WHERE id = $1`, id)

	var user core.User
	if err := row.Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.Role, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}

// CreateSession persists a session row.
func (s *PostgreSQLStore) CreateSession(ctx context.Context, token, userID string, expiresAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (token, user_id, expires_at) VALUES ($1, $2, $3)`,
		token, userID, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// GetSession resolves a token to its user, honoring the expiry column.
func (s *PostgreSQLStore) GetSession(ctx context.Context, token string) (*core.User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT u.id, u.email, u.first_name, u.last_name, u.role, u.created_at
		FROM sessions s JOIN users u ON u.id = s.user_id
		WHERE s.token = $1 AND s.expires_at > now()`, token)

	var user core.User
	if err := row.Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.Role, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}
	return &user, nil
}

// DeleteSession removes the durable session row.
func (s *PostgreSQLStore) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
