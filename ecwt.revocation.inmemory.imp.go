// File: ecwt.revocation.inmemory.imp.go

package ecwt

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryRevocationStore is an in-memory implementation of RevocationStore.
// Suitable for development, testing, or single-instance deployments
type MemoryRevocationStore struct {
	mu              sync.RWMutex
	sets            map[string]map[string]int64
	now             func() time.Time
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	cleanupOnce     sync.Once
}

// NewMemoryRevocationStore creates a new in-memory revocation store.
// When cleanupInterval is positive, entries whose expiry has passed are
// removed on that interval until Close is called.
func NewMemoryRevocationStore(cleanupInterval time.Duration) *MemoryRevocationStore {
	store := &MemoryRevocationStore{
		sets:            make(map[string]map[string]int64),
		now:             time.Now,
		cleanupInterval: cleanupInterval,
		stopCleanup:     make(chan struct{}),
	}

	if cleanupInterval > 0 {
		go store.periodicCleanup()
	}

	return store
}

// Upsert implements RevocationStore.
func (m *MemoryRevocationStore) Upsert(ctx context.Context, key, member string, score int64) error {
	if member == "" {
		return fmt.Errorf("member cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.sets[key]
	if !ok {
		set = make(map[string]int64)
		m.sets[key] = set
	}
	set[member] = score

	return nil
}

// Score implements RevocationStore. Presence is reported regardless of the
// score value, like ZSCORE.
func (m *MemoryRevocationStore) Score(ctx context.Context, key, member string) (int64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	score, ok := m.sets[key][member]
	return score, ok, nil
}

// Prune implements RevocationPruner.
func (m *MemoryRevocationStore) Prune(ctx context.Context, key string, before int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for member, score := range m.sets[key] {
		if score < before {
			delete(m.sets[key], member)
			removed++
		}
	}
	return removed, nil
}

// periodicCleanup runs background cleanup of expired entries
func (m *MemoryRevocationStore) periodicCleanup() {
	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	ctx := context.Background()

	for {
		select {
		case <-m.stopCleanup:
			return
		case <-ticker.C:
			m.mu.RLock()
			keys := make([]string, 0, len(m.sets))
			for key := range m.sets {
				keys = append(keys, key)
			}
			m.mu.RUnlock()

			now := m.now().UnixMilli()
			for _, key := range keys {
				_, _ = m.Prune(ctx, key, now)
			}
		}
	}
}

// Close stops the background cleanup goroutine
// Call this when shutting down the application
func (m *MemoryRevocationStore) Close() error {
	m.cleanupOnce.Do(func() {
		close(m.stopCleanup)
	})
	return nil
}

// Stats returns the number of revoked ids per key.
// Useful for monitoring and debugging
func (m *MemoryRevocationStore) Stats() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make(map[string]int, len(m.sets))
	for key, set := range m.sets {
		stats[key] = len(set)
	}
	return stats
}
