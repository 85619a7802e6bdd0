// Package ratelimit implements a fixed-window request counter on top of a
// kv.Store. Windows are aligned, non-overlapping time buckets: a burst at
// the end of one window followed by another at the start of the next can
// admit up to twice the limit in a short span. That is a characteristic of
// the algorithm, not a bug.
//
// The read-then-write sequence is not atomic: two concurrent requests for
// the same identifier can both read a stale count and both be admitted,
// so an admitted window's count can exceed the limit under bursts at the
// boundary. Deployments that need a hard guarantee should move to an
// atomic increment or a token bucket.
package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/manny2375/2020realtorsblue-sub000/internal/kv"
)

const keyPrefix = "rate_limit:"

// Prometheus metric for rejected requests
var rateLimitRejections = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "realtorsblue_rate_limit_rejections_total",
		Help: "Total number of requests rejected by the fixed-window rate limiter",
	},
)

// window is the stored counter for one identifier in one bucket.
type window struct {
	Count             int   `json:"count"`
	WindowStartMillis int64 `json:"windowStartMillis"`
}

// Result reports the outcome of a rate-limit check.
type Result struct {
	Allowed   bool
	Remaining int
	// ResetTime is the start of the next window, in epoch millis.
	ResetTime int64
}

// Limiter counts requests per identifier in fixed windows.
// It fails open: if the store is unreachable the request is admitted and a
// warning is logged, since the limiter is a defense-in-depth control here,
// not a correctness gate.
type Limiter struct {
	store kv.Store

	// now is swappable so tests can place requests in specific buckets.
	now func() time.Time
}

// New creates a Limiter over the given store.
func New(store kv.Store) *Limiter {
	return &Limiter{
		store: store,
		now:   time.Now,
	}
}

// SetClock overrides the limiter's clock. Tests only.
func (l *Limiter) SetClock(now func() time.Time) {
	l.now = now
}

// Check records one request for identifier and reports whether it is within
// limit for the current window. The stored entry's TTL equals the window
// length, so stale windows age out without explicit cleanup.
func (l *Limiter) Check(ctx context.Context, identifier string, limit int, windowSize time.Duration) Result {
	nowMillis := l.now().UnixMilli()
	windowMillis := windowSize.Milliseconds()
	windowStart := nowMillis / windowMillis * windowMillis
	resetTime := windowStart + windowMillis

	key := keyPrefix + identifier

	count := 0
	data, err := l.store.Get(ctx, key)
	switch {
	case err == nil:
		var w window
		if jsonErr := json.Unmarshal(data, &w); jsonErr != nil {
			slog.Warn("malformed rate window, starting fresh", "identifier", identifier, "error", jsonErr)
		} else if w.WindowStartMillis == windowStart {
			// Same bucket; a mismatched bucket means the previous window,
			// which is implicitly discarded.
			count = w.Count
		}
	case errors.Is(err, kv.ErrNotFound):
		// First request in this window
	default:
		slog.Warn("rate limit store unavailable, failing open", "identifier", identifier, "error", err)
		return Result{Allowed: true, Remaining: limit, ResetTime: resetTime}
	}

	count++
	allowed := count <= limit

	if allowed {
		data, err := json.Marshal(window{Count: count, WindowStartMillis: windowStart})
		if err != nil {
			return Result{Allowed: true, Remaining: remaining(limit, count), ResetTime: resetTime}
		}
		if err := l.store.Put(ctx, key, data, windowSize); err != nil {
			slog.Warn("failed to persist rate window, failing open", "identifier", identifier, "error", err)
		}
	} else {
		rateLimitRejections.Inc()
	}

	return Result{
		Allowed:   allowed,
		Remaining: remaining(limit, count),
		ResetTime: resetTime,
	}
}

func remaining(limit, count int) int {
	if r := limit - count; r > 0 {
		return r
	}
	return 0
}

// Identifier builds the store key suffix for a client address, normalizing
// the empty case so misconfigured proxies still share one bucket.
func Identifier(clientIP string) string {
	if clientIP == "" {
		return "unknown"
	}
	return clientIP
}
