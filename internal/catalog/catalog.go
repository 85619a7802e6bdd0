// Package catalog provides read and write access to property listings and
// agent profiles, with a cache-aside layer over list queries.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/manny2375/2020realtorsblue-sub000/internal/core"
	"github.com/manny2375/2020realtorsblue-sub000/internal/storage"
)

// Pagination bounds for list queries.
const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// PropertyFilter narrows a property list query. Zero values mean "no
// constraint". Prices are in cents.
type PropertyFilter struct {
	Status        string
	PropertyType  string
	MinPriceCents int64
	MaxPriceCents int64
	MinBedrooms   int
	MinBathrooms  float64
	City          string
	Featured      *bool
	Limit         int
	Offset        int
}

// CanonicalString renders the filter deterministically for cache keying.
func (f PropertyFilter) CanonicalString() string {
	featured := "nil"
	if f.Featured != nil {
		featured = fmt.Sprintf("%t", *f.Featured)
	}
	return fmt.Sprintf("status=%s|type=%s|minp=%d|maxp=%d|minbed=%d|minbath=%g|city=%s|featured=%s|limit=%d|offset=%d",
		f.Status, f.PropertyType, f.MinPriceCents, f.MaxPriceCents,
		f.MinBedrooms, f.MinBathrooms, strings.ToLower(f.City), featured,
		f.Limit, f.Offset)
}

// Store is the durable backend for listings and agents.
// Implementations must be safe for concurrent use.
type Store interface {
	ListProperties(ctx context.Context, filter PropertyFilter) ([]core.Property, error)
	GetProperty(ctx context.Context, id string) (*core.Property, error)
	SearchProperties(ctx context.Context, query string, limit int) ([]core.Property, error)
	CreateProperty(ctx context.Context, p *core.Property) error

	ListAgents(ctx context.Context) ([]core.Agent, error)
	GetAgent(ctx context.Context, id string) (*core.Agent, error)
	CreateAgent(ctx context.Context, a *core.Agent) error
}

// ErrNotFound is returned for unknown property or agent ids.
var ErrNotFound = errors.New("catalog: not found")

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

// escapeLikeWildcards escapes SQL LIKE wildcard characters in user input
// to prevent wildcard injection. Escapes \, %, and _.
func escapeLikeWildcards(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// buildWhereClause joins condition strings into a SQL WHERE clause.
// Returns an empty string when conditions is empty.
func buildWhereClause(conditions []string) string {
	if len(conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conditions, " AND ")
}

// clampLimitOffset normalises pagination parameters:
//   - limit defaults to 50 and is capped at 100
//   - offset floors at 0
func clampLimitOffset(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
