package auth

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/manny2375/2020realtorsblue-sub000/internal/core"
)

// SQLiteStore implements Store for SQLite databases.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite auth store, creating the users and
// sessions tables if they don't exist.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'user',
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id),
			expires_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("failed to create auth tables: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// CreateUser persists a new user.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *core.User, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, first_name, last_name, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, passwordHash, user.FirstName, user.LastName, user.Role,
		user.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrEmailExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUserByEmail returns the user and its password hash.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*core.User, string, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, first_name, last_name, role, created_at
		FROM users WHERE email = ?`, email)

	var user core.User
	var hash, createdAt string
	if err := row.Scan(&user.ID, &user.Email, &hash, &user.FirstName, &user.LastName, &user.Role, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to scan user: %w", err)
	}
	user.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &user, hash, nil
}

// GetUserByID returns the user for id.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*core.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, first_name, last_name, role, created_at
		FROM users WHERE id = ?`, id)

	var user core.User
	var createdAt string
	if err := row.Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.Role, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	user.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &user, nil
}

// CreateSession persists a session row.
func (s *SQLiteStore) CreateSession(ctx context.Context, token, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)`,
		token, userID, expiresAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// GetSession resolves a token to its user, honoring the expiry column.
func (s *SQLiteStore) GetSession(ctx context.Context, token string) (*core.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.email, u.first_name, u.last_name, u.role, u.created_at, s.expires_at
		FROM sessions s JOIN users u ON u.id = s.user_id
		WHERE s.token = ?`, token)

	var user core.User
	var createdAt, expiresAt string
	if err := row.Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.Role, &createdAt, &expiresAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	exp, err := time.Parse(time.RFC3339Nano, expiresAt)
	if err != nil || time.Now().After(exp) {
		return nil, ErrNotFound
	}

	user.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &user, nil
}

// DeleteSession removes the durable session row.
func (s *SQLiteStore) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
