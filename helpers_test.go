package ecwt

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

var testKey = bytes.Repeat([]byte{0x42}, KeySize)

func testSchema() Schema {
	return Schema{
		"user_id": func(v any) bool {
			s, ok := v.(string)
			return ok && s != ""
		},
		"role": nil,
	}
}

func testConfig() Config {
	config := DefaultConfig(testKey)
	config.Namespace = "test"
	config.Schema = testSchema()
	return config
}

func newTestFactory(t testing.TB, opts ...Option) *Factory {
	t.Helper()
	factory, err := NewFactory(testConfig(), opts...)
	require.NoError(t, err)
	return factory
}

// testClock is a settable clock for expiry decisions.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now()}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// after sets the clock to d after the token's creation.
func (c *testClock) after(token *Token, d time.Duration) {
	c.Set(token.CreatedAt().Add(d))
}

// recordingStore counts calls on top of a memory store.
type recordingStore struct {
	*MemoryRevocationStore
	upserts atomic.Int32
	lookups atomic.Int32
	fail    atomic.Bool
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryRevocationStore: NewMemoryRevocationStore(0)}
}

var errStoreDown = errors.New("store is down")

func (s *recordingStore) Upsert(ctx context.Context, key, member string, score int64) error {
	s.upserts.Add(1)
	if s.fail.Load() {
		return errStoreDown
	}
	return s.MemoryRevocationStore.Upsert(ctx, key, member, score)
}

func (s *recordingStore) Score(ctx context.Context, key, member string) (int64, bool, error) {
	s.lookups.Add(1)
	if s.fail.Load() {
		return 0, false, errStoreDown
	}
	return s.MemoryRevocationStore.Score(ctx, key, member)
}

// recordingCache is a map-backed DecodeCache remembering the TTL of each Set.
type recordingCache struct {
	mu      sync.Mutex
	entries map[string]CacheEntry
	ttls    map[string]time.Duration
	sets    int
}

func newRecordingCache() *recordingCache {
	return &recordingCache{
		entries: make(map[string]CacheEntry),
		ttls:    make(map[string]time.Duration),
	}
}

func (c *recordingCache) Get(key string) (CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	return entry, ok
}

func (c *recordingCache) Set(key string, entry CacheEntry, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry
	c.ttls[key] = ttl
	c.sets++
}

func (c *recordingCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]CacheEntry)
	c.ttls = make(map[string]time.Duration)
}

func (c *recordingCache) setCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets
}

// switchCipher wraps a Cipher and can be told to fail every Decrypt.
type switchCipher struct {
	Cipher
	failDecrypt atomic.Bool
	decrypts    atomic.Int32
}

func newSwitchCipher(t testing.TB) *switchCipher {
	t.Helper()
	c, err := NewXChaCha20Poly1305(testKey)
	require.NoError(t, err)
	return &switchCipher{Cipher: c}
}

func (c *switchCipher) Decrypt(blob []byte) ([]byte, error) {
	c.decrypts.Add(1)
	if c.failDecrypt.Load() {
		return nil, errors.New("decrypt disabled")
	}
	return c.Cipher.Decrypt(blob)
}

// saturatedEntropy yields ten 0xff bytes, filling a ULID random part, then
// repeats the little-endian word 1 so monotonic increments stay small.
type saturatedEntropy struct {
	n int
}

func (r *saturatedEntropy) Read(p []byte) (int, error) {
	for i := range p {
		switch {
		case r.n < 10:
			p[i] = 0xff
		case (r.n-10)%4 == 0:
			p[i] = 0x01
		default:
			p[i] = 0x00
		}
		r.n++
	}
	return len(p), nil
}

func newTestRedis(t testing.TB) (*miniredis.Miniredis, *RedisRevocationStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store, err := NewRedisRevocationStore(client)
	require.NoError(t, err)
	return mr, store
}

func redisOptions(mr *miniredis.Miniredis) *redis.Options {
	return &redis.Options{Addr: mr.Addr()}
}

// unreachableRedisOptions points at a closed miniredis.
func unreachableRedisOptions() *redis.Options {
	mr, err := miniredis.Run()
	if err != nil {
		panic(err)
	}
	addr := mr.Addr()
	mr.Close()
	return &redis.Options{Addr: addr, MaxRetries: -1, DialTimeout: 200 * time.Millisecond}
}
