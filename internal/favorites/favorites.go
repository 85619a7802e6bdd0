// Package favorites holds the server-side favorite set and the client-side
// reconciler that merges an optimistic local list into it.
package favorites

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/manny2375/2020realtorsblue-sub000/internal/storage"
)

// Store is the durable per-user favorite set. Add and SyncBatch are
// idempotent: inserting an id that is already present is a no-op, which is
// what makes client retries safe.
type Store interface {
	// List returns the property ids favorited by userID.
	List(ctx context.Context, userID string) ([]string, error)

	// Add inserts (userID, propertyID) if absent.
	Add(ctx context.Context, userID, propertyID string) error

	// Remove deletes (userID, propertyID). Removing an absent pair is not
	// an error.
	Remove(ctx context.Context, userID, propertyID string) error

	// SyncBatch upserts every id in one batch.
	SyncBatch(ctx context.Context, userID string, propertyIDs []string) error
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
