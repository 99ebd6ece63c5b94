package lock

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/paygate/pkg/config"
)

// ErrNotAcquired is returned when the lock could not be taken before ctx ended.
var ErrNotAcquired = errors.New("lock: not acquired")

// Locker serialises work on a key across callers. The returned unlock must be
// called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// NewLocker uses Redis when an address is configured so several replicas share
// one lock per order; otherwise it falls back to a process local lock.
func NewLocker(lc fx.Lifecycle, l *zap.SugaredLogger, cfg *config.Config) (Locker, error) {
	if cfg.Redis.Addr == "" {
		l.Infow("order lock: using in-process locker")
		return NewMemory(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				l.Errorw("order lock: redis ping failed", "addr", cfg.Redis.Addr, "err", err)
				return err
			}
			l.Infow("order lock: using redis", "addr", cfg.Redis.Addr)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return NewRedis(client, l, cfg.Redis.LockTTL), nil
}

var Module = fx.Options(
	fx.Provide(NewLocker),
)

const defaultRetryInterval = 50 * time.Millisecond
