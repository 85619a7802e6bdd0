package kv

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// storeUnderTest builds each Store implementation against a controllable clock.
func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  NewRedisStoreFromClient(client, "test:"),
	}
}

func TestStorePutGetDelete(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			// Absent key
			_, err := store.Get(ctx, "missing")
			if !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound for missing key, got %v", err)
			}

			// Round trip
			if err := store.Put(ctx, "k1", []byte(`{"a":1}`), 0); err != nil {
				t.Fatalf("unexpected error on put: %v", err)
			}
			got, err := store.Get(ctx, "k1")
			if err != nil {
				t.Fatalf("unexpected error on get: %v", err)
			}
			if string(got) != `{"a":1}` {
				t.Errorf("expected stored value back, got %q", got)
			}

			// Delete, then absent again
			if err := store.Delete(ctx, "k1"); err != nil {
				t.Fatalf("unexpected error on delete: %v", err)
			}
			if _, err := store.Get(ctx, "k1"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound after delete, got %v", err)
			}

			// Deleting an absent key is not an error
			if err := store.Delete(ctx, "k1"); err != nil {
				t.Fatalf("unexpected error deleting absent key: %v", err)
			}
		})
	}
}

func TestStoreList(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			for _, k := range []string{"rate_limit:1.2.3.4", "rate_limit:5.6.7.8", "session:abc"} {
				if err := store.Put(ctx, k, []byte("x"), 0); err != nil {
					t.Fatalf("unexpected error on put: %v", err)
				}
			}

			keys, err := store.List(ctx, "rate_limit:")
			if err != nil {
				t.Fatalf("unexpected error on list: %v", err)
			}
			sort.Strings(keys)
			want := []string{"rate_limit:1.2.3.4", "rate_limit:5.6.7.8"}
			if len(keys) != len(want) {
				t.Fatalf("expected %d keys, got %v", len(want), keys)
			}
			for i := range want {
				if keys[i] != want[i] {
					t.Errorf("key %d: expected %q, got %q", i, want[i], keys[i])
				}
			}
		})
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	store.SetClock(func() time.Time { return now })

	if err := store.Put(ctx, "k", []byte("v"), 10*time.Second); err != nil {
		t.Fatalf("unexpected error on put: %v", err)
	}

	if _, err := store.Get(ctx, "k"); err != nil {
		t.Fatalf("expected live key before expiry, got %v", err)
	}

	now = base.Add(11 * time.Second)
	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
}

func TestRedisStoreExpiry(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	store := NewRedisStoreFromClient(client, "test:")

	if err := store.Put(ctx, "k", []byte("v"), 10*time.Second); err != nil {
		t.Fatalf("unexpected error on put: %v", err)
	}

	mr.FastForward(11 * time.Second)

	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
}
