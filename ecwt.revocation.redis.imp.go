// File: ecwt.revocation.redis.imp.go

package ecwt

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRevocationStore keeps revoked token ids in a sorted set scored by
// their expiry in milliseconds.
type RedisRevocationStore struct {
	client redis.UniversalClient
}

// NewRedisRevocationStore creates a new Redis-based revocation store
func NewRedisRevocationStore(client redis.UniversalClient) (*RedisRevocationStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisRevocationStore{
		client: client,
	}, nil
}

// Upsert implements RevocationStore with ZADD.
func (r *RedisRevocationStore) Upsert(ctx context.Context, key, member string, score int64) error {
	if member == "" {
		return fmt.Errorf("member cannot be empty")
	}

	if err := r.client.ZAdd(ctx, key, redis.Z{Score: float64(score), Member: member}).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

// Score implements RevocationStore with ZSCORE.
func (r *RedisRevocationStore) Score(ctx context.Context, key, member string) (int64, bool, error) {
	score, err := r.client.ZScore(ctx, key, member).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis error: %w", err)
	}

	if score >= float64(math.MaxInt64) {
		return math.MaxInt64, true, nil
	}
	return int64(score), true, nil
}

// Prune implements RevocationPruner with ZREMRANGEBYSCORE, removing entries
// whose expiry is strictly before the given millisecond timestamp.
func (r *RedisRevocationStore) Prune(ctx context.Context, key string, before int64) (int64, error) {
	removed, err := r.client.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(before, 10)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis error: %w", err)
	}
	return removed, nil
}

// Count returns the number of revoked ids held at key.
func (r *RedisRevocationStore) Count(ctx context.Context, key string) (int64, error) {
	n, err := r.client.ZCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis error: %w", err)
	}
	return n, nil
}
