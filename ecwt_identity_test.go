// File: ecwt_identity_test.go

package ecwt

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestULIDSource(t *testing.T) {
	ctx := context.Background()

	t.Run("Strictly increasing", func(t *testing.T) {
		source := NewULIDSource()
		var prev Identifier
		for i := 0; i < 1000; i++ {
			id, err := source.Issue(ctx)
			require.NoError(t, err)
			if prev != nil {
				require.Equal(t, 1, bytes.Compare(id.Bytes(), prev.Bytes()))
				require.Greater(t, id.String(), prev.String())
			}
			prev = id
		}
	})

	t.Run("Frozen clock", func(t *testing.T) {
		frozen := time.Now()
		source := NewULIDSource(WithULIDClock(func() time.Time { return frozen }))

		a, err := source.Issue(ctx)
		require.NoError(t, err)
		b, err := source.Issue(ctx)
		require.NoError(t, err)

		assert.Equal(t, frozen.UnixMilli(), a.UnixMilli())
		assert.Equal(t, frozen.UnixMilli(), b.UnixMilli())
		assert.Equal(t, 1, bytes.Compare(b.Bytes(), a.Bytes()))
	})

	t.Run("Clock stepping backwards", func(t *testing.T) {
		clock := newTestClock()
		source := NewULIDSource(WithULIDClock(clock.Now))

		a, err := source.Issue(ctx)
		require.NoError(t, err)
		clock.Set(clock.Now().Add(-time.Minute))
		b, err := source.Issue(ctx)
		require.NoError(t, err)

		assert.Equal(t, 1, bytes.Compare(b.Bytes(), a.Bytes()))
		assert.Equal(t, a.UnixMilli(), b.UnixMilli())
	})

	t.Run("Overflow moves to the next millisecond", func(t *testing.T) {
		frozen := time.Now()
		source := NewULIDSource(
			WithULIDClock(func() time.Time { return frozen }),
			WithULIDEntropy(&saturatedEntropy{}),
		)

		a, err := source.Issue(ctx)
		require.NoError(t, err)
		b, err := source.Issue(ctx)
		require.NoError(t, err)

		assert.Equal(t, a.UnixMilli()+1, b.UnixMilli())
		assert.Equal(t, 1, bytes.Compare(b.Bytes(), a.Bytes()))
	})

	t.Run("Overflow wait honors context", func(t *testing.T) {
		frozen := time.Now()
		source := NewULIDSource(
			WithULIDClock(func() time.Time { return frozen }),
			WithULIDEntropy(&saturatedEntropy{}),
		)

		_, err := source.Issue(ctx)
		require.NoError(t, err)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err = source.Issue(cancelled)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("Parse", func(t *testing.T) {
		source := NewULIDSource()
		id, err := source.Issue(ctx)
		require.NoError(t, err)

		parsed, err := source.Parse(id.Bytes())
		require.NoError(t, err)
		assert.Equal(t, id.String(), parsed.String())
		assert.Equal(t, id.UnixMilli(), parsed.UnixMilli())

		_, err = source.Parse([]byte{1, 2, 3})
		assert.Error(t, err)
	})
}

func TestUUIDv7Source(t *testing.T) {
	ctx := context.Background()
	source := NewUUIDv7Source()

	t.Run("Strictly increasing", func(t *testing.T) {
		var prev Identifier
		for i := 0; i < 200; i++ {
			id, err := source.Issue(ctx)
			require.NoError(t, err)
			if prev != nil {
				require.Equal(t, 1, bytes.Compare(id.Bytes(), prev.Bytes()))
			}
			prev = id
		}
	})

	t.Run("Embedded time", func(t *testing.T) {
		before := time.Now().UnixMilli()
		id, err := source.Issue(ctx)
		require.NoError(t, err)
		after := time.Now().UnixMilli()

		assert.GreaterOrEqual(t, id.UnixMilli(), before)
		// The uuid package may borrow from the next millisecond under load.
		assert.LessOrEqual(t, id.UnixMilli(), after+5)
	})

	t.Run("Parse", func(t *testing.T) {
		id, err := source.Issue(ctx)
		require.NoError(t, err)

		parsed, err := source.Parse(id.Bytes())
		require.NoError(t, err)
		assert.Equal(t, id.String(), parsed.String())

		v4 := uuid.New()
		_, err = source.Parse(v4[:])
		assert.Error(t, err)

		_, err = source.Parse([]byte{1, 2})
		assert.Error(t, err)
	})

	t.Run("Cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := source.Issue(cancelled)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
