package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/manny2375/2020realtorsblue-sub000/internal/cache"
	"github.com/manny2375/2020realtorsblue-sub000/internal/core"
)

// ListCacheTTL bounds the staleness of cached property list queries.
// Reads age out on TTL; writes through CreateProperty purge the family.
const ListCacheTTL = 30 * time.Minute

const listCachePrefix = "properties:list:"

// Service fronts the catalog store with cache-aside list queries.
type Service struct {
	store Store
	cache *cache.Cache
}

// NewService creates a Service.
func NewService(store Store, c *cache.Cache) *Service {
	return &Service{store: store, cache: c}
}

// ListProperties serves a filtered list, cache-aside with a 30-minute TTL.
func (s *Service) ListProperties(ctx context.Context, f PropertyFilter) ([]core.Property, error) {
	var properties []core.Property
	err := s.cache.GetOrPopulate(ctx, listCacheKey(f), ListCacheTTL, &properties, func(ctx context.Context) (any, error) {
		return s.store.ListProperties(ctx, f)
	})
	if err != nil {
		return nil, err
	}
	return properties, nil
}

// GetProperty returns a single listing straight from the store.
func (s *Service) GetProperty(ctx context.Context, id string) (*core.Property, error) {
	return s.store.GetProperty(ctx, id)
}

// SearchProperties runs a free-text search straight from the store.
func (s *Service) SearchProperties(ctx context.Context, query string, limit int) ([]core.Property, error) {
	return s.store.SearchProperties(ctx, query, limit)
}

// ListAgents returns all agent profiles.
func (s *Service) ListAgents(ctx context.Context) ([]core.Agent, error) {
	return s.store.ListAgents(ctx)
}

// GetAgent returns a single agent profile.
func (s *Service) GetAgent(ctx context.Context, id string) (*core.Agent, error) {
	return s.store.GetAgent(ctx, id)
}

// CreateProperty stores a new listing and purges cached list queries so
// the listing shows up without waiting out the TTL.
func (s *Service) CreateProperty(ctx context.Context, p *core.Property) error {
	if err := s.store.CreateProperty(ctx, p); err != nil {
		return err
	}
	if err := s.cache.DeletePrefix(ctx, listCachePrefix); err != nil {
		slog.Warn("failed to purge property list cache", "error", err)
	}
	return nil
}

// CreateAgent stores a new agent profile.
func (s *Service) CreateAgent(ctx context.Context, a *core.Agent) error {
	return s.store.CreateAgent(ctx, a)
}

// listCacheKey hashes the canonical filter string so arbitrary filter
// combinations map to fixed-size cache keys.
func listCacheKey(f PropertyFilter) string {
	return fmt.Sprintf("properties:list:%016x", xxhash.Sum64String(f.CanonicalString()))
}
