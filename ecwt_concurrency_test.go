// File: ecwt_concurrency_test.go

package ecwt

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentTokenOperations(t *testing.T) {
	ctx := context.Background()
	cache, err := NewRistrettoCache(1000)
	require.NoError(t, err)
	defer cache.Close()

	_, store := newTestRedis(t)
	factory := newTestFactory(t, WithDecodeCache(cache), WithRevocationStore(store))

	const workers = 20
	const perWorker = 25

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[string]struct{})
	)

	t.Run("Concurrent creation and verification", func(t *testing.T) {
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < perWorker; i++ {
					token, err := factory.Create(ctx, map[string]any{"user_id": "alice"}, WithTTL(time.Minute))
					if !assert.NoError(t, err) {
						return
					}
					verified, err := factory.Verify(ctx, token.String())
					if !assert.NoError(t, err) {
						return
					}
					assert.Equal(t, token.ID(), verified.ID())

					mu.Lock()
					ids[token.ID()] = struct{}{}
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Len(t, ids, workers*perWorker)
	})

	t.Run("Concurrent revocation", func(t *testing.T) {
		token, err := factory.Create(ctx, map[string]any{"user_id": "alice"}, WithTTL(time.Minute))
		require.NoError(t, err)

		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, token.Revoke(ctx))
			}()
		}
		wg.Wait()

		_, err = factory.Verify(ctx, token.String())
		assert.ErrorIs(t, err, ErrRevoked)
	})
}
