package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/manny2375/2020realtorsblue-sub000/internal/kv"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	c := New(store)

	in := sample{Name: "listing", Count: 3}
	if err := c.Set(ctx, "k", in, time.Minute); err != nil {
		t.Fatalf("unexpected error on set: %v", err)
	}

	var out sample
	if !c.Get(ctx, "k", &out) {
		t.Fatal("expected cache hit")
	}
	if out != in {
		t.Errorf("expected %+v back, got %+v", in, out)
	}
}

func TestCacheMissOnAbsence(t *testing.T) {
	c := New(kv.NewMemoryStore())

	var out sample
	if c.Get(context.Background(), "missing", &out) {
		t.Fatal("expected miss for absent key")
	}
}

func TestCacheMissOnExpiry(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	store.SetClock(func() time.Time { return now })

	c := New(store)
	if err := c.Set(ctx, "k", sample{Name: "x"}, 30*time.Second); err != nil {
		t.Fatalf("unexpected error on set: %v", err)
	}

	now = base.Add(31 * time.Second)

	var out sample
	if c.Get(ctx, "k", &out) {
		t.Fatal("expected miss after TTL elapsed")
	}
}

func TestCacheCorruptionIsMiss(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	c := New(store)

	// Write garbage directly under the cache key
	if err := store.Put(ctx, "k", []byte("not json"), 0); err != nil {
		t.Fatalf("unexpected error on put: %v", err)
	}

	var out sample
	if c.Get(ctx, "k", &out) {
		t.Fatal("expected corrupted entry to read as miss")
	}

	// Self-heal: the next populate overwrites the corrupted entry
	if err := c.Set(ctx, "k", sample{Name: "fresh"}, time.Minute); err != nil {
		t.Fatalf("unexpected error on set: %v", err)
	}
	if !c.Get(ctx, "k", &out) {
		t.Fatal("expected hit after repopulate")
	}
	if out.Name != "fresh" {
		t.Errorf("expected repopulated value, got %+v", out)
	}
}

func TestGetOrPopulate(t *testing.T) {
	t.Run("populates on miss then hits", func(t *testing.T) {
		ctx := context.Background()
		c := New(kv.NewMemoryStore())

		calls := 0
		fill := func(ctx context.Context) (any, error) {
			calls++
			return sample{Name: "filled", Count: calls}, nil
		}

		var out sample
		if err := c.GetOrPopulate(ctx, "k", time.Minute, &out, fill); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Name != "filled" || calls != 1 {
			t.Fatalf("expected one fill call, got %d (out=%+v)", calls, out)
		}

		// Second read is served from cache
		var out2 sample
		if err := c.GetOrPopulate(ctx, "k", time.Minute, &out2, fill); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls != 1 {
			t.Errorf("expected fill not to run on hit, got %d calls", calls)
		}
		if out2.Count != 1 {
			t.Errorf("expected cached value, got %+v", out2)
		}
	})

	t.Run("fill error propagates", func(t *testing.T) {
		c := New(kv.NewMemoryStore())
		wantErr := errors.New("db down")

		var out sample
		err := c.GetOrPopulate(context.Background(), "k", time.Minute, &out, func(ctx context.Context) (any, error) {
			return nil, wantErr
		})
		if !errors.Is(err, wantErr) {
			t.Fatalf("expected fill error, got %v", err)
		}
	})
}

func TestEntryEnvelope(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := New(store)
	c.SetClock(func() time.Time { return base })

	if err := c.Set(ctx, "k", sample{Name: "x"}, 90*time.Second); err != nil {
		t.Fatalf("unexpected error on set: %v", err)
	}

	raw, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("unexpected error reading raw entry: %v", err)
	}

	// The envelope records write time and TTL alongside the value
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	if entry.WrittenAtMillis != base.UnixMilli() {
		t.Errorf("expected writtenAtMillis %d, got %d", base.UnixMilli(), entry.WrittenAtMillis)
	}
	if entry.TTLSeconds != 90 {
		t.Errorf("expected ttlSeconds 90, got %d", entry.TTLSeconds)
	}
}
