package discovery

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// CacheOptions holds configuration for CachedSource.
type CacheOptions struct {
	// TTL bounds how long a namespace's discovery result is reused
	// (default: 5m). Zero or negative means entries live until invalidated.
	TTL time.Duration
	// Store holds the cached entries (default: in-memory).
	Store CacheStore
}

// CacheOption defines a function type for setting cache options.
type CacheOption func(*CacheOptions)

// DefaultCacheTTL is the default freshness bound for cached discovery
// results.
const DefaultCacheTTL = 5 * time.Minute

// newCacheOptions creates default options and applies user overrides.
func newCacheOptions(opts ...CacheOption) *CacheOptions {
	options := &CacheOptions{TTL: DefaultCacheTTL}
	for _, o := range opts {
		o(options)
	}
	if options.Store == nil {
		options.Store = NewMemoryCacheStore()
	}
	return options
}

// WithCacheTTL sets the freshness bound for cached entries.
func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(o *CacheOptions) {
		o.TTL = ttl
	}
}

// WithCacheStore sets the backing store for cached entries.
func WithCacheStore(store CacheStore) CacheOption {
	return func(o *CacheOptions) {
		if store != nil {
			o.Store = store
		}
	}
}

// CachedSource memoizes another source's Discover results per namespace.
// Worth wrapping around sources that walk files or the network when many
// managers are constructed over the same namespaces.
type CachedSource struct {
	src  Source
	opts *CacheOptions
}

// NewCachedSource wraps src with a cache.
func NewCachedSource(src Source, opts ...CacheOption) *CachedSource {
	return &CachedSource{src: src, opts: newCacheOptions(opts...)}
}

// Discover returns the cached descriptors when fresh, otherwise asks the
// wrapped source and stores its result. Failed discoveries are not cached.
func (c *CachedSource) Discover(ctx context.Context, namespace string) ([]Descriptor, error) {
	if descs, ok := c.opts.Store.Fetch(ctx, namespace, c.opts.TTL); ok {
		log.Debug().Str("namespace", namespace).Int("count", len(descs)).Msg("discovery served from cache")
		return descs, nil
	}

	descs, err := c.src.Discover(ctx, namespace)
	if err != nil {
		return nil, err
	}
	c.opts.Store.Save(ctx, namespace, descs)
	return descs, nil
}

// Invalidate drops the cached entry for a namespace, forcing the next
// Discover to hit the wrapped source.
func (c *CachedSource) Invalidate(ctx context.Context, namespace string) {
	c.opts.Store.Drop(ctx, namespace)
}

// Reset drops every cached entry.
func (c *CachedSource) Reset(ctx context.Context) {
	c.opts.Store.Clear(ctx)
}

var _ Source = (*CachedSource)(nil)
