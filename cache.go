package ecwt

import (
	"time"
)

// CacheEntry is what the decode cache keeps per token string.
type CacheEntry struct {
	Identifier Identifier
	TTL        *int64
	Data       Data
}

// DecodeCache is a local key-value cache with per-entry expiry. A ttl of
// zero means the entry does not expire.
type DecodeCache interface {
	Get(key string) (CacheEntry, bool)
	Set(key string, entry CacheEntry, ttl time.Duration)
	Clear()
}

// cacheTTL bounds a cache entry by the remaining validity of its token.
// ok is false when the token has no validity left and must not be cached.
func cacheTTL(createdMs int64, ttl *int64, nowMs int64) (time.Duration, bool) {
	if ttl == nil {
		return 0, true
	}
	remaining := createdMs + *ttl*1000 - nowMs
	if remaining <= 0 {
		return 0, false
	}
	return time.Duration(remaining) * time.Millisecond, true
}
