package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker(t *testing.T) {
	ctx := context.Background()
	locker := NewLocalLocker()

	t.Run("second acquire on a held lease fails", func(t *testing.T) {
		ok, err := locker.Acquire(ctx, "order:1", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = locker.Acquire(ctx, "order:1", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("release frees the lease", func(t *testing.T) {
		require.NoError(t, locker.Release(ctx, "order:1"))

		ok, err := locker.Acquire(ctx, "order:1", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("distinct keys do not contend", func(t *testing.T) {
		ok, err := locker.Acquire(ctx, "order:2", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("expired lease can be re-acquired", func(t *testing.T) {
		ok, err := locker.Acquire(ctx, "order:3", -time.Second)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = locker.Acquire(ctx, "order:3", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("empty key is rejected", func(t *testing.T) {
		_, err := locker.Acquire(ctx, "", time.Minute)
		assert.Error(t, err)
	})
}
