package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-invitations/internal/logger"
)

// setupTestRedis starts an in-memory Redis and a client connected to it.
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestAcquireOncePerDay(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	first := NewRunLock(client, time.Hour, logger.NewNopLogger())
	second := NewRunLock(client, time.Hour, logger.NewNopLogger())

	ok, err := first.Acquire(ctx, "2026-07-02")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Acquire(ctx, "2026-07-02")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = second.Acquire(ctx, "2026-07-03")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, time.Hour, mr.TTL("reminders:run:2026-07-02"))
}

func TestReleaseOnlyOwnLock(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	holder := NewRunLock(client, time.Hour, logger.NewNopLogger())
	other := NewRunLock(client, time.Hour, logger.NewNopLogger())

	ok, err := holder.Acquire(ctx, "2026-07-02")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, other.Release(ctx, "2026-07-02"))
	assert.True(t, mr.Exists("reminders:run:2026-07-02"))

	require.NoError(t, holder.Release(ctx, "2026-07-02"))
	assert.False(t, mr.Exists("reminders:run:2026-07-02"))

	// Releasing twice is harmless.
	require.NoError(t, holder.Release(ctx, "2026-07-02"))
}

func TestLockExpires(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	lock := NewRunLock(client, time.Minute, logger.NewNopLogger())

	ok, err := lock.Acquire(ctx, "2026-07-02")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)

	ok, err = NewRunLock(client, time.Minute, logger.NewNopLogger()).Acquire(ctx, "2026-07-02")
	require.NoError(t, err)
	assert.True(t, ok)
}
