// Package auth provides user accounts, durable sessions, and the
// read-through session cache used by the router.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/manny2375/2020realtorsblue-sub000/internal/cache"
	"github.com/manny2375/2020realtorsblue-sub000/internal/core"
	"github.com/manny2375/2020realtorsblue-sub000/internal/storage"
)

// DefaultSessionTTL matches the session cache TTL: seven days.
const DefaultSessionTTL = 7 * 24 * time.Hour

// Sentinel errors surfaced by the store implementations.
var (
	ErrNotFound    = errors.New("auth: not found")
	ErrEmailExists = errors.New("auth: email already exists")
)

// Store is the durable backend for users and sessions.
// Implementations must be safe for concurrent use.
type Store interface {
	// CreateUser persists a new user. Returns ErrEmailExists when the email
	// is already registered.
	CreateUser(ctx context.Context, user *core.User, passwordHash string) error

	// GetUserByEmail returns the user and its password hash.
	GetUserByEmail(ctx context.Context, email string) (*core.User, string, error)

	// GetUserByID returns the user for id.
	GetUserByID(ctx context.Context, id string) (*core.User, error)

	// CreateSession persists a session row.
	CreateSession(ctx context.Context, token, userID string, expiresAt time.Time) error

	// GetSession resolves a token to its user. Expired sessions report
	// ErrNotFound.
	GetSession(ctx context.Context, token string) (*core.User, error)

	// DeleteSession removes the durable session row.
	DeleteSession(ctx context.Context, token string) error
}

// NewStore creates the Store matching the storage backend.
func NewStore(store storage.Storage) (Store, error) {
	switch store.Type() {
	case storage.TypeSQLite:
		return NewSQLiteStore(store.SQLiteDB())
	case storage.TypePostgreSQL:
		pool, ok := store.PostgreSQLPool().(*pgxpool.Pool)
		if !ok {
			return nil, fmt.Errorf("invalid PostgreSQL pool type: %T", store.PostgreSQLPool())
		}
		return NewPostgreSQLStore(pool)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", store.Type())
	}
}

// Authenticator combines the durable store with the session cache.
// Reads go cache-first; a cache miss falls back to the durable table and
// repopulates the cache on success.
type Authenticator struct {
	store      Store
	sessions   *SessionCache
	sessionTTL time.Duration

	now func() time.Time
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(store Store, sessions *SessionCache, sessionTTL time.Duration) *Authenticator {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &Authenticator{
		store:      store,
		sessions:   sessions,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// RegisterParams holds validated registration input.
type RegisterParams struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register creates a new user account with a bcrypt-hashed password.
func (a *Authenticator) Register(ctx context.Context, p RegisterParams) (*core.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &core.User{
		ID:        uuid.NewString(),
		Email:     strings.ToLower(strings.TrimSpace(p.Email)),
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Role:      core.RoleUser,
		CreatedAt: a.now().UTC(),
	}

	if err := a.store.CreateUser(ctx, user, string(hash)); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and, on success, creates a durable session and
// caches it. Returns the opaque session token.
func (a *Authenticator) Login(ctx context.Context, email, password string) (string, *core.User, error) {
	user, hash, err := a.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil, ErrNotFound
		}
		return "", nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return "", nil, ErrNotFound
	}

	token := newSessionToken()
	expiresAt := a.now().Add(a.sessionTTL)

	if err := a.store.CreateSession(ctx, token, user.ID, expiresAt); err != nil {
		return "", nil, fmt.Errorf("failed to create session: %w", err)
	}

	// Best effort: a failed cache write just means the first authenticated
	// request repopulates it.
	a.sessions.Set(ctx, token, user)

	return token, user, nil
}

// Validate resolves a session token to its user: session cache first, then
// the durable table with an expiry check, repopulating the cache on success.
func (a *Authenticator) Validate(ctx context.Context, token string) (*core.User, error) {
	if token == "" {
		return nil, ErrNotFound
	}

	if user, ok := a.sessions.Get(ctx, token); ok {
		return user, nil
	}

	user, err := a.store.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}

	a.sessions.Set(ctx, token, user)
	return user, nil
}

// Logout removes the session. The durable row goes first: if the process
// crashes mid-logout the cache entry merely outlives it by at most its own
// TTL, which is an accepted bound.
func (a *Authenticator) Logout(ctx context.Context, token string) error {
	if err := a.store.DeleteSession(ctx, token); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return a.sessions.Delete(ctx, token)
}

// newSessionToken returns an opaque token long enough to make guessing
// infeasible: two UUIDs with the dashes stripped (64 hex chars).
func newSessionToken() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}

// sessionKeyPrefix namespaces session entries in the key-value store.
const sessionKeyPrefix = "session:"

// SessionCache is the read-through accelerator in front of the durable
// session table. Entries live under session:<token> with a 7-day TTL.
type SessionCache struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewSessionCache creates a SessionCache with the given TTL (7 days if zero).
func NewSessionCache(c *cache.Cache, ttl time.Duration) *SessionCache {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionCache{cache: c, ttl: ttl}
}

// Set caches the user record under the token. Failures are absorbed by the
// cache layer; the durable table remains the source of truth.
func (s *SessionCache) Set(ctx context.Context, token string, user *core.User) {
	_ = s.cache.Set(ctx, sessionKeyPrefix+token, user, s.ttl)
}

// Get returns the cached user record for token, if present.
func (s *SessionCache) Get(ctx context.Context, token string) (*core.User, bool) {
	var user core.User
	if !s.cache.Get(ctx, sessionKeyPrefix+token, &user) {
		return nil, false
	}
	return &user, true
}

// Delete removes the cached session.
func (s *SessionCache) Delete(ctx context.Context, token string) error {
	return s.cache.Delete(ctx, sessionKeyPrefix+token)
}
