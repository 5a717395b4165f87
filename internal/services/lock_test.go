package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitLock(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	lock := NewSubmitLock(rdb, 30*time.Second)
	ctx := context.Background()

	acquired, err := lock.Acquire(ctx, 1, 10)
	require.NoError(t, err)
	assert.True(t, acquired)

	// Same user and problem is blocked while held.
	acquired, err = lock.Acquire(ctx, 1, 10)
	require.NoError(t, err)
	assert.False(t, acquired)

	// Different problem or user is independent.
	acquired, err = lock.Acquire(ctx, 1, 11)
	require.NoError(t, err)
	assert.True(t, acquired)
	acquired, err = lock.Acquire(ctx, 2, 10)
	require.NoError(t, err)
	assert.True(t, acquired)

	lock.Release(ctx, 1, 10)
	acquired, err = lock.Acquire(ctx, 1, 10)
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestSubmitLockExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	lock := NewSubmitLock(rdb, time.Second)
	ctx := context.Background()

	acquired, err := lock.Acquire(ctx, 1, 10)
	require.NoError(t, err)
	require.True(t, acquired)

	// A crashed request must not hold the lock past the TTL.
	mr.FastForward(2 * time.Second)

	acquired, err = lock.Acquire(ctx, 1, 10)
	require.NoError(t, err)
	assert.True(t, acquired)
}
