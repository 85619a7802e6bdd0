// Package analytics records search activity and exposes request metrics.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/manny2375/2020realtorsblue-sub000/internal/cache"
	"github.com/manny2375/2020realtorsblue-sub000/internal/storage"
)

// PopularTTL bounds how stale the popular-searches ranking may get.
const PopularTTL = 10 * time.Minute

const popularCacheKey = "analytics:popular_searches"

// RequestsTotal counts handled HTTP requests, labeled for dashboards.
var RequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "realtorsblue_http_requests_total",
		Help: "Total number of handled HTTP requests",
	},
	[]string{"method", "path", "status"},
)

// SearchTerm is one ranked entry in the popular-searches listing.
type SearchTerm struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// Store is the durable backend for search-term counts.
type Store interface {
	// RecordSearch increments the lifetime count for a normalized term.
	RecordSearch(ctx context.Context, term string) error

	// TopSearches returns the highest-count terms, descending.
	TopSearches(ctx context.Context, limit int) ([]SearchTerm, error)
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

// Service records searches and serves the cached popular-search ranking.
type Service struct {
	store Store
	cache *cache.Cache
}

// NewService wires the store with the shared cache layer.
func NewService(store Store, c *cache.Cache) *Service {
	return &Service{store: store, cache: c}
}

// RecordSearch normalizes and counts a search term. Recording is
// best-effort: failures are logged and never surfaced to the searcher.
func (s *Service) RecordSearch(ctx context.Context, term string) {
	term = NormalizeTerm(term)
	if term == "" {
		return
	}
	if err := s.store.RecordSearch(ctx, term); err != nil {
		slog.Warn("failed to record search term", "term", term, "error", err)
	}
}

// PopularSearches returns the top-ranked terms, served cache-aside with
// PopularTTL staleness.
func (s *Service) PopularSearches(ctx context.Context, limit int) ([]SearchTerm, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	var terms []SearchTerm
	key := fmt.Sprintf("%s:%d", popularCacheKey, limit)
	err := s.cache.GetOrPopulate(ctx, key, PopularTTL, &terms, func(ctx context.Context) (any, error) {
		return s.store.TopSearches(ctx, limit)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load popular searches: %w", err)
	}
	return terms, nil
}

// Summary reports the registered counters as a JSON-friendly snapshot,
// gathered from the default Prometheus registry.
type Summary struct {
	Requests            float64 `json:"requests"`
	CacheHits           float64 `json:"cacheHits"`
	CacheMisses         float64 `json:"cacheMisses"`
	RateLimitRejections float64 `json:"rateLimitRejections"`
}

// GatherSummary sums the service's counters from the default registry.
func GatherSummary() (Summary, error) {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return Summary{}, fmt.Errorf("failed to gather metrics: %w", err)
	}

	var s Summary
	for _, fam := range families {
		var total float64
		for _, m := range fam.GetMetric() {
			if c := m.GetCounter(); c != nil {
				total += c.GetValue()
			}
		}
		switch fam.GetName() {
		case "realtorsblue_http_requests_total":
			s.Requests = total
		case "realtorsblue_cache_hits_total":
			s.CacheHits = total
		case "realtorsblue_cache_misses_total":
			s.CacheMisses = total
		case "realtorsblue_rate_limit_rejections_total":
			s.RateLimitRejections = total
		}
	}
	return s, nil
}

// NormalizeTerm lowercases and collapses whitespace so count rows merge
// case and spacing variants of the same query.
func NormalizeTerm(term string) string {
	return strings.Join(strings.Fields(strings.ToLower(term)), " ")
}
