package redislock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cfgpkg "github.com/fatflowers/tgpass/pkg/config"
)

// ErrNotAcquired is returned when another holder owns the key.
var ErrNotAcquired = errors.New("redislock: lock not acquired")

// Locker is a best-effort mutual exclusion keyed by string.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

type RedisLocker struct {
	cli *redis.Client
}

func NewRedisLocker(cli *redis.Client) *RedisLocker {
	return &RedisLocker{cli: cli}
}

// TryLock makes a single SET NX attempt.
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := l.cli.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNotAcquired
	}
	return token, nil
}

var luaUnlock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

// Unlock deletes key only if it still holds token.
func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	return luaUnlock.Run(ctx, l.cli, []string{key}, token).Err()
}

// Noop always acquires. Used when Redis is not configured.
type Noop struct{}

func (Noop) TryLock(context.Context, string, time.Duration) (string, error) { return "noop", nil }
func (Noop) Unlock(context.Context, string, string) error { return nil }

// New connects to Redis when redis.addr is set. A failed ping is logged and
// the lock degrades to Noop, since the lock only narrows a duplicate window.
func New(lc fx.Lifecycle, cfg *cfgpkg.Config, log *zap.SugaredLogger) Locker {
	rc := cfg.Redis
	if rc.Addr == "" {
		log.Infow("redis not configured, initiation lock disabled")
		return Noop{}
	}
	cli := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := cli.Ping(pingCtx).Err(); err != nil {
		log.Warnw("redis ping failed, initiation lock disabled", "addr", rc.Addr, "err", err)
		_ = cli.Close()
		return Noop{}
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Infow("closing redis client")
			return cli.Close()
		},
	})
	log.Infow("redis connected", "addr", rc.Addr)
	return NewRedisLocker(cli)
}

var Module = fx.Options(
	fx.Provide(New),
)
