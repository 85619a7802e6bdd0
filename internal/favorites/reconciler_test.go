package favorites

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient records calls and fails on demand.
type fakeClient struct {
	failMutations bool
	failSync      bool

	added     []string
	removed   []string
	synced    [][]string
	serverIDs []string
}

func (f *fakeClient) AddFavorite(_ context.Context, id string) error {
	if f.failMutations {
		return errors.New("server unavailable")
	}
	f.added = append(f.added, id)
	f.serverIDs = append(f.serverIDs, id)
	return nil
}

func (f *fakeClient) RemoveFavorite(_ context.Context, id string) error {
	if f.failMutations {
		return errors.New("server unavailable")
	}
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeClient) SyncFavorites(_ context.Context, ids []string) error {
	if f.failSync {
		return errors.New("server unavailable")
	}
	f.synced = append(f.synced, ids)
	f.serverIDs = append(f.serverIDs, ids...)
	return nil
}

func (f *fakeClient) ListFavorites(_ context.Context) ([]string, error) {
	if f.failSync {
		return nil, errors.New("server unavailable")
	}
	return f.serverIDs, nil
}

func newTestLocal(t *testing.T) *FileLocalStore {
	t.Helper()
	return NewFileLocalStore(filepath.Join(t.TempDir(), "favorites.json"))
}

func TestToggleUnauthenticated(t *testing.T) {
	ctx := context.Background()
	local := newTestLocal(t)
	r := NewReconciler(local, nil)

	state := r.Toggle(ctx, "p1")
	assert.Equal(t, PendingOptimisticApplied, state)
	assert.True(t, r.IsFavorited("p1"))

	// The local store persisted the change
	ids, err := local.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, ids)

	// Toggling again removes it
	state = r.Toggle(ctx, "p1")
	assert.Equal(t, PendingOptimisticApplied, state)
	assert.False(t, r.IsFavorited("p1"))
}

func TestToggleSettles(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}
	r := NewReconciler(newTestLocal(t), client)

	state := r.Toggle(ctx, "p1")
	assert.Equal(t, Settled, state)
	assert.True(t, r.IsFavorited("p1"))
	assert.Equal(t, []string{"p1"}, client.added)

	state = r.Toggle(ctx, "p1")
	assert.Equal(t, Settled, state)
	assert.False(t, r.IsFavorited("p1"))
	assert.Equal(t, []string{"p1"}, client.removed)
}

func TestToggleRollsBackOnServerFailure(t *testing.T) {
	ctx := context.Background()
	local := newTestLocal(t)
	client := &fakeClient{failMutations: true}
	r := NewReconciler(local, client)

	// No panic and no error escapes; the state reports the rollback.
	state := r.Toggle(ctx, "p1")
	assert.Equal(t, RolledBack, state)

	// Local state reverted to pre-toggle membership
	assert.False(t, r.IsFavorited("p1"))
	ids, err := local.Load()
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestToggleRollbackRestoresMembership(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}
	r := NewReconciler(newTestLocal(t), client)

	require.Equal(t, Settled, r.Toggle(ctx, "p1"))

	// A failing un-favorite reverts to favorited
	client.failMutations = true
	state := r.Toggle(ctx, "p1")
	assert.Equal(t, RolledBack, state)
	assert.True(t, r.IsFavorited("p1"))
}

func TestSyncPushesBatchAndClearsLocal(t *testing.T) {
	ctx := context.Background()
	local := newTestLocal(t)
	require.NoError(t, local.Save([]string{"p1", "p2"}))

	client := &fakeClient{}
	r := NewReconciler(local, client)

	require.NoError(t, r.Sync(ctx))

	// One batch call with the accumulated local list
	require.Len(t, client.synced, 1)
	got := append([]string(nil), client.synced[0]...)
	sort.Strings(got)
	assert.Equal(t, []string{"p1", "p2"}, got)

	// The set reloaded from the server, which is now authoritative
	assert.True(t, r.IsFavorited("p1"))
	assert.True(t, r.IsFavorited("p2"))
}

func TestSyncFailureKeepsLocalList(t *testing.T) {
	ctx := context.Background()
	local := newTestLocal(t)
	require.NoError(t, local.Save([]string{"p1"}))

	client := &fakeClient{failSync: true}
	r := NewReconciler(local, client)

	require.Error(t, r.Sync(ctx))

	// Local list left intact for the next attempt
	ids, err := local.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, ids)
	assert.True(t, r.IsFavorited("p1"))

	// Retry after recovery pushes the same batch; server-side idempotent
	// insert makes the duplicate safe.
	client.failSync = false
	require.NoError(t, r.Sync(ctx))
	require.Len(t, client.synced, 1)
	assert.Equal(t, []string{"p1"}, client.synced[0])
}

func TestSyncWithEmptyLocalListOnlyReloads(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{serverIDs: []string{"p9"}}
	r := NewReconciler(newTestLocal(t), client)

	require.NoError(t, r.Sync(ctx))
	assert.Empty(t, client.synced, "no batch call for an empty local list")
	assert.True(t, r.IsFavorited("p9"))
}

func TestObserversSeeChanges(t *testing.T) {
	ctx := context.Background()
	r := NewReconciler(newTestLocal(t), nil)

	type event struct {
		id        string
		favorited bool
	}
	var events []event
	r.Subscribe(func(id string, favorited bool) {
		events = append(events, event{id, favorited})
	})

	r.Toggle(ctx, "p1")
	r.Toggle(ctx, "p1")

	require.Len(t, events, 2)
	assert.Equal(t, event{"p1", true}, events[0])
	assert.Equal(t, event{"p1", false}, events[1])
}

func TestObserverCanReadStateFromCallback(t *testing.T) {
	ctx := context.Background()
	r := NewReconciler(newTestLocal(t), nil)

	// A UI listener naturally reads membership back; that must not block
	// against the mutation that triggered the callback.
	var seen []bool
	r.Subscribe(func(id string, _ bool) {
		seen = append(seen, r.IsFavorited(id))
	})

	done := make(chan struct{})
	go func() {
		r.Toggle(ctx, "p1")
		r.Toggle(ctx, "p1")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Toggle did not return with a state-reading observer subscribed")
	}

	assert.Equal(t, []bool{true, false}, seen)
}

func TestObserverReadsStateOnRollback(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{failMutations: true}
	r := NewReconciler(newTestLocal(t), client)

	var seen []bool
	r.Subscribe(func(id string, _ bool) {
		seen = append(seen, r.IsFavorited(id))
	})

	state := r.Toggle(ctx, "p1")
	assert.Equal(t, RolledBack, state)

	// Optimistic apply, then the revert; each callback observed the set
	// as it stood after its change.
	assert.Equal(t, []bool{true, false}, seen)
}

// staleListClient reports a fixed server list regardless of what was pushed.
type staleListClient struct {
	*fakeClient
	list []string
}

func (c *staleListClient) ListFavorites(context.Context) ([]string, error) {
	return c.list, nil
}

func TestSyncNotifiesAdditionsAndRemovals(t *testing.T) {
	ctx := context.Background()
	local := newTestLocal(t)
	require.NoError(t, local.Save([]string{"p1", "p2"}))

	// The server keeps p1, drops p2, and contributes p3.
	client := &staleListClient{fakeClient: &fakeClient{}, list: []string{"p1", "p3"}}
	r := NewReconciler(local, client)

	type event struct {
		id        string
		favorited bool
	}
	var events []event
	r.Subscribe(func(id string, favorited bool) {
		events = append(events, event{id, favorited})
	})

	require.NoError(t, r.Sync(ctx))

	assert.True(t, r.IsFavorited("p3"))
	assert.False(t, r.IsFavorited("p2"))

	// Only the delta is announced: p1 survived unchanged and stays quiet.
	assert.ElementsMatch(t, []event{{"p3", true}, {"p2", false}}, events)
}
