package discovery

import (
	"context"
	"time"
)

// CacheStore defines the interface for holding memoized discovery results
// on behalf of CachedSource.
type CacheStore interface {
	// Fetch returns the descriptors cached for a namespace and whether the
	// entry is still fresh for the given ttl. A non-positive ttl means
	// entries never expire.
	Fetch(ctx context.Context, namespace string, ttl time.Duration) ([]Descriptor, bool)

	// Save stores the descriptors for a namespace, stamping the entry with
	// the current time.
	Save(ctx context.Context, namespace string, descs []Descriptor)

	// Drop removes the entry for a namespace.
	Drop(ctx context.Context, namespace string)

	// Clear removes all entries.
	Clear(ctx context.Context)
}

// cacheEntry holds the cached descriptors for one namespace in the memory
// store.
type cacheEntry struct {
	descs    []Descriptor
	storedAt time.Time
}
