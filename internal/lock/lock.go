// Package lock provides short-lived exclusive leases. The service uses them to
// serialize work on one order and to keep send cycles single-flight across
// replicas.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/mct-integration/orderbridge/internal/config"
)

// Locker hands out named leases. Acquire reports false when the lease is held
// elsewhere; a lease expires on its own after the ttl if never released.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Module provides the configured locker to the Fx graph.
var Module = fx.Provide(NewLocker)

// NewLocker initialises the configured lock backend (redis or local).
func NewLocker(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Locker, error) {
	switch cfg.Lock.Driver {
	case "local":
		if logger != nil {
			logger.Info("using in-process locks; run a single replica")
		}
		return NewLocalLocker(), nil
	case "redis":
		return newRedisLocker(lc, cfg.Lock, logger)
	default:
		return nil, fmt.Errorf("unsupported lock driver: %s", cfg.Lock.Driver)
	}
}

type redisLocker struct {
	client *goredis.Client
}

func newRedisLocker(lc fx.Lifecycle, cfg config.Lock, logger *zap.Logger) (Locker, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("ping redis: %w", err)
			}
			if logger != nil {
				logger.Info("redis locker connected", zap.String("addr", cfg.Redis.Addr))
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return &redisLocker{client: client}, nil
}

func (l *redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if key == "" {
		return false, errors.New("lock key is required")
	}
	return l.client.SetNX(ctx, key, "1", ttl).Result()
}

func (l *redisLocker) Release(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return l.client.Del(ctx, key).Err()
}

// localLocker serializes within one process. Good enough for a single replica
// and for tests.
type localLocker struct {
	mu     sync.Mutex
	leases map[string]time.Time
}

// NewLocalLocker returns an in-process Locker.
func NewLocalLocker() Locker {
	return &localLocker{leases: make(map[string]time.Time)}
}

func (l *localLocker) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if key == "" {
		return false, errors.New("lock key is required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if expiry, held := l.leases[key]; held && expiry.After(now) {
		return false, nil
	}
	l.leases[key] = now.Add(ttl)
	return true, nil
}

func (l *localLocker) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.leases, key)
	return nil
}
