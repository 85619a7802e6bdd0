package favorites

import (
	"context"
	"log/slog"
	"sync"
)

// ToggleState tracks one toggle through the optimistic-update lifecycle.
type ToggleState int

const (
	// Idle means no toggle is in progress for the id.
	Idle ToggleState = iota
	// PendingOptimisticApplied means the local state changed but no server
	// call has started (unauthenticated, or not yet issued).
	PendingOptimisticApplied
	// Reconciling means the server mutation is in flight.
	Reconciling
	// Settled means the server confirmed the optimistic state.
	Settled
	// RolledBack means the server rejected the mutation and the local state
	// was reverted.
	RolledBack
)

// String implements fmt.Stringer for log output.
func (s ToggleState) String() string {
	switch s {
	case Idle:
		return "idle"
	case PendingOptimisticApplied:
		return "pending"
	case Reconciling:
		return "reconciling"
	case Settled:
		return "settled"
	case RolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// LocalStore is the durable local list backing the reconciler
// (browser local storage in the original product; a file on disk here).
type LocalStore interface {
	Load() ([]string, error)
	Save(ids []string) error
}

// APIClient is the server surface the reconciler talks to.
type APIClient interface {
	AddFavorite(ctx context.Context, propertyID string) error
	RemoveFavorite(ctx context.Context, propertyID string) error
	SyncFavorites(ctx context.Context, propertyIDs []string) error
	ListFavorites(ctx context.Context) ([]string, error)
}

// Reconciler holds the client-side favorite set. Mutations apply
// optimistically to local state and are pushed to the server best-effort;
// a failed push reverts local state without surfacing an error. Overlapping
// toggles on the same id are serialized here, so the server sees
// last-writer-wins, which is fine for favoriting.
type Reconciler struct {
	mu     sync.Mutex
	local  LocalStore
	client APIClient // nil while signed out

	ids       map[string]struct{}
	observers []func(propertyID string, favorited bool)
}

// NewReconciler creates a Reconciler seeded from the local store.
// A load failure starts with an empty set; the local file heals on the
// next save.
func NewReconciler(local LocalStore, client APIClient) *Reconciler {
	r := &Reconciler{
		local:  local,
		client: client,
		ids:    make(map[string]struct{}),
	}
	ids, err := local.Load()
	if err != nil {
		slog.Warn("failed to load local favorites, starting empty", "error", err)
		return r
	}
	for _, id := range ids {
		r.ids[id] = struct{}{}
	}
	return r
}

// SetClient installs or clears the server client, e.g. on sign-in/out.
func (r *Reconciler) SetClient(client APIClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.client = client
}

// Subscribe registers a change observer. Observers run synchronously after
// every local membership change, including rollbacks, with the mutex
// released, so they may read the reconciler from the callback.
func (r *Reconciler) Subscribe(fn func(propertyID string, favorited bool)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, fn)
}

// IsFavorited is a pure membership check against in-memory state; no I/O.
func (r *Reconciler) IsFavorited(propertyID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ids[propertyID]
	return ok
}

// Favorites returns a snapshot of the current in-memory set.
func (r *Reconciler) Favorites() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.ids))
	for id := range r.ids {
		ids = append(ids, id)
	}
	return ids
}

// Toggle flips membership for propertyID. The new state applies locally
// first; if a session exists, the matching server mutation follows. A server
// failure reverts the local state and is NOT returned to the caller; the
// optimistic UI is allowed to diverge transiently from server truth. The
// returned state reports where the toggle ended up.
func (r *Reconciler) Toggle(ctx context.Context, propertyID string) ToggleState {
	r.mu.Lock()

	_, was := r.ids[propertyID]
	nowFavorited := !was
	observers := r.applyLocked(propertyID, nowFavorited)
	client := r.client

	r.mu.Unlock()

	// Observers run unlocked so they may read reconciler state.
	notify(observers, propertyID, nowFavorited)

	if client == nil {
		return PendingOptimisticApplied
	}

	var err error
	if nowFavorited {
		err = client.AddFavorite(ctx, propertyID)
	} else {
		err = client.RemoveFavorite(ctx, propertyID)
	}
	if err == nil {
		return Settled
	}

	slog.Warn("favorite mutation failed, rolling back", "property_id", propertyID, "error", err)

	r.mu.Lock()
	observers = r.applyLocked(propertyID, was)
	r.mu.Unlock()

	notify(observers, propertyID, was)

	return RolledBack
}

// Sync pushes the accumulated local list to the server in one batch,
// typically right after sign-in. On success the local list is cleared and
// the set reloads from the server, which is now the source of truth. On
// failure the local list is left intact so the next sign-in retries the same
// batch. Duplicates are safe because server-side insertion is idempotent.
func (r *Reconciler) Sync(ctx context.Context) error {
	r.mu.Lock()
	client := r.client
	ids := make([]string, 0, len(r.ids))
	for id := range r.ids {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	if client == nil {
		return nil
	}

	if len(ids) > 0 {
		if err := client.SyncFavorites(ctx, ids); err != nil {
			return err
		}
		// Server confirmed; only now clear local state.
		r.mu.Lock()
		r.ids = make(map[string]struct{})
		if err := r.local.Save(nil); err != nil {
			slog.Warn("failed to clear local favorites", "error", err)
		}
		r.mu.Unlock()
	}

	serverIDs, err := client.ListFavorites(ctx)
	if err != nil {
		return err
	}

	serverSet := make(map[string]struct{}, len(serverIDs))
	for _, id := range serverIDs {
		serverSet[id] = struct{}{}
	}

	r.mu.Lock()
	r.ids = serverSet
	if err := r.local.Save(serverIDs); err != nil {
		slog.Warn("failed to persist local favorites", "error", err)
	}
	observers := r.observers
	r.mu.Unlock()

	// Diff against the pre-sync snapshot: ids gained from the server are
	// announced favorited, ids the reload dropped are announced removed.
	before := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		before[id] = struct{}{}
	}
	for _, id := range serverIDs {
		if _, ok := before[id]; !ok {
			notify(observers, id, true)
		}
	}
	for _, id := range ids {
		if _, ok := serverSet[id]; !ok {
			notify(observers, id, false)
		}
	}
	return nil
}

// applyLocked sets membership and persists the local list. Caller holds
// r.mu; the returned observer snapshot must be notified after unlocking,
// since observers are free to call back into IsFavorited or Favorites.
func (r *Reconciler) applyLocked(propertyID string, favorited bool) []func(string, bool) {
	if favorited {
		r.ids[propertyID] = struct{}{}
	} else {
		delete(r.ids, propertyID)
	}

	ids := make([]string, 0, len(r.ids))
	for id := range r.ids {
		ids = append(ids, id)
	}
	if err := r.local.Save(ids); err != nil {
		slog.Warn("failed to persist local favorites", "error", err)
	}

	return r.observers
}

func notify(observers []func(string, bool), propertyID string, favorited bool) {
	for _, fn := range observers {
		fn(propertyID, favorited)
	}
}
