// File: ecwt.cache.ristretto.imp.go

package ecwt

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
)

// DefaultCacheEntries is the capacity used when RistrettoCache is created
// with a non-positive size.
const DefaultCacheEntries = 10000

// RistrettoCache is a DecodeCache backed by ristretto. Every entry costs 1,
// so maxEntries bounds the number of cached tokens.
type RistrettoCache struct {
	cache *ristretto.Cache
}

// NewRistrettoCache creates a decode cache holding up to maxEntries tokens.
func NewRistrettoCache(maxEntries int64) (*RistrettoCache, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheEntries
	}

	// Costs count entries, not bytes.
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        maxEntries * 10,
		MaxCost:            maxEntries,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decode cache: %w", err)
	}

	return &RistrettoCache{cache: cache}, nil
}

// Get implements DecodeCache.
func (c *RistrettoCache) Get(key string) (CacheEntry, bool) {
	v, ok := c.cache.Get(key)
	if !ok {
		return CacheEntry{}, false
	}
	entry, ok := v.(CacheEntry)
	return entry, ok
}

// Set implements DecodeCache. Writes are flushed before returning so the
// next Get observes them.
func (c *RistrettoCache) Set(key string, entry CacheEntry, ttl time.Duration) {
	if c.cache.SetWithTTL(key, entry, 1, ttl) {
		c.cache.Wait()
	}
}

// Clear implements DecodeCache.
func (c *RistrettoCache) Clear() {
	c.cache.Clear()
}

// Close stops the cache goroutines.
func (c *RistrettoCache) Close() {
	c.cache.Close()
}
