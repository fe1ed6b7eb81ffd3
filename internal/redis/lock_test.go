package redisclient

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestWithSlotLock_RunsCallback(t *testing.T) {
	locker := NewRedisSlotLocker(newTestClient(t), time.Second)

	ran := false
	err := locker.WithSlotLock(context.Background(), 55, func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, ran)
}

func TestWithSlotLock_SecondAcquireFails(t *testing.T) {
	client := newTestClient(t)
	outer := NewRedisSlotLocker(client, time.Minute)
	inner := NewRedisSlotLocker(client, time.Minute)

	err := outer.WithSlotLock(context.Background(), 7, func(ctx context.Context) error {
		return inner.WithSlotLock(ctx, 7, func(ctx context.Context) error {
			t.Fatal("inner critical section must not run")
			return nil
		})
	})
	require.ErrorIs(t, err, ErrLockNotAcquired)
}

func TestWithSlotLock_ReleasedAfterReturn(t *testing.T) {
	client := newTestClient(t)
	locker := NewRedisSlotLocker(client, time.Minute)

	require.NoError(t, locker.WithSlotLock(context.Background(), 9, func(ctx context.Context) error {
		return nil
	}))
	// Lock key must be gone, so a fresh acquire succeeds.
	require.NoError(t, locker.WithSlotLock(context.Background(), 9, func(ctx context.Context) error {
		return nil
	}))
}

func TestWithSlotLock_DistinctSlotsDoNotContend(t *testing.T) {
	client := newTestClient(t)
	locker := NewRedisSlotLocker(client, time.Minute)

	err := locker.WithSlotLock(context.Background(), 1, func(ctx context.Context) error {
		return locker.WithSlotLock(ctx, 2, func(ctx context.Context) error {
			return nil
		})
	})
	require.NoError(t, err)
}
