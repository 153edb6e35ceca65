package discovery

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// memoryCacheStore implements the CacheStore interface using an in-memory map.
type memoryCacheStore struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewMemoryCacheStore creates a new in-memory cache store.
func NewMemoryCacheStore() CacheStore {
	return &memoryCacheStore{entries: make(map[string]cacheEntry)}
}

// Fetch implements the CacheStore interface for memory storage.
// Expired entries are removed on access.
func (s *memoryCacheStore) Fetch(_ context.Context, namespace string, ttl time.Duration) ([]Descriptor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.entries[namespace]
	if !exists {
		return nil, false
	}
	if ttl > 0 && time.Since(entry.storedAt) > ttl {
		delete(s.entries, namespace)
		log.Debug().Str("namespace", namespace).Msg("cache entry expired")
		return nil, false
	}
	return append([]Descriptor(nil), entry.descs...), true
}

// Save implements the CacheStore interface for memory storage.
func (s *memoryCacheStore) Save(_ context.Context, namespace string, descs []Descriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[namespace] = cacheEntry{
		descs:    append([]Descriptor(nil), descs...),
		storedAt: time.Now(),
	}
}

// Drop implements the CacheStore interface for memory storage.
func (s *memoryCacheStore) Drop(_ context.Context, namespace string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, namespace)
}

// Clear implements the CacheStore interface for memory storage.
func (s *memoryCacheStore) Clear(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]cacheEntry)
}

var _ CacheStore = (*memoryCacheStore)(nil)
