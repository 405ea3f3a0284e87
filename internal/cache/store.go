package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/zentikhq/zentik-sync/internal/entity"
)

// DomainNotifications is the query-key namespace for the notification
// feed; invalidating it drops every cached list under the domain.
const DomainNotifications = "notifications"

// Store is the normalized entity cache: a flat identity-key → entity
// map plus denormalized query results keyed by query name.
type Store interface {
	Write(ctx context.Context, key entity.Key, e entity.Entity) error
	Get(ctx context.Context, key entity.Key) (entity.Entity, bool, error)
	WriteListResult(ctx context.Context, queryKey string, keys []entity.Key) error
	ListResult(ctx context.Context, queryKey string) ([]entity.Key, bool, error)
	Invalidate(ctx context.Context, domainKey string) error
}

// MemoryStore is the in-process Store used on platforms without a
// shared cache and throughout the tests. Entity writes are
// independently atomic under the mutex.
type MemoryStore struct {
	mu          sync.RWMutex
	entities    map[entity.Key]entity.Entity
	listResults map[string][]entity.Key
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entities:    map[entity.Key]entity.Entity{},
		listResults: map[string][]entity.Key{},
	}
}

// Write stores the entity under its identity key, last write wins.
func (s *MemoryStore) Write(ctx context.Context, key entity.Key, e entity.Entity) error {
	if key == "" {
		return fmt.Errorf("entity key is required")
	}
	if got, ok := e.Key(); !ok || got != key {
		return fmt.Errorf("entity does not match key %s", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[key] = e
	return nil
}

// Get returns the entity stored under key.
func (s *MemoryStore) Get(ctx context.Context, key entity.Key) (entity.Entity, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[key]
	return e, ok, nil
}

// WriteListResult replaces the denormalized result for queryKey.
func (s *MemoryStore) WriteListResult(ctx context.Context, queryKey string, keys []entity.Key) error {
	if queryKey == "" {
		return fmt.Errorf("query key is required")
	}
	copied := make([]entity.Key, len(keys))
	copy(copied, keys)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.listResults[queryKey] = copied
	return nil
}

// ListResult returns the cached result for queryKey.
func (s *MemoryStore) ListResult(ctx context.Context, queryKey string) ([]entity.Key, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys, ok := s.listResults[queryKey]
	if !ok {
		return nil, false, nil
	}
	copied := make([]entity.Key, len(keys))
	copy(copied, keys)
	return copied, true, nil
}

// Invalidate drops every cached query result under the domain prefix.
// Entity records stay; only derived list results are recomputed.
func (s *MemoryStore) Invalidate(ctx context.Context, domainKey string) error {
	if domainKey == "" {
		return fmt.Errorf("domain key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for queryKey := range s.listResults {
		if queryKey == domainKey || strings.HasPrefix(queryKey, domainKey+":") {
			delete(s.listResults, queryKey)
		}
	}
	return nil
}
