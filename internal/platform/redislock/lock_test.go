package redislock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/fatflowers/tgpass/pkg/tool"
)

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	cli := redis.NewClient(&redis.Options{Addr: addr, DB: 14})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := cli.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not reachable at %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = cli.Close() })
	return cli
}

func TestRedisLockerExclusive(t *testing.T) {
	cli := testRedis(t)
	ctx := context.Background()
	l := NewRedisLocker(cli)
	key := "test:lock:" + tool.GenerateUUIDV7()

	token, err := l.TryLock(ctx, key, 5*time.Second)
	require.NoError(t, err)

	_, err = l.TryLock(ctx, key, 5*time.Second)
	require.ErrorIs(t, err, ErrNotAcquired)

	// a foreign token does not release the lock
	require.NoError(t, l.Unlock(ctx, key, "someone-else"))
	_, err = l.TryLock(ctx, key, 5*time.Second)
	require.ErrorIs(t, err, ErrNotAcquired)

	require.NoError(t, l.Unlock(ctx, key, token))
	again, err := l.TryLock(ctx, key, 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, l.Unlock(ctx, key, again))
}

func TestNoopAlwaysAcquires(t *testing.T) {
	var l Locker = Noop{}
	a, err := l.TryLock(context.Background(), "k", time.Second)
	require.NoError(t, err)
	_, err = l.TryLock(context.Background(), "k", time.Second)
	require.NoError(t, err)
	require.NoError(t, l.Unlock(context.Background(), "k", a))
}
