package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore wraps a redis client and context for operations.
type RedisStore struct {
	Client *redis.Client
	Ctx    context.Context
	// RetryInterval is how long Acquire waits between attempts on a held lock.
	RetryInterval time.Duration
}

// InitRedis initializes a Redis client and returns a RedisStore.
func InitRedis(addr string) (*RedisStore, error) {
	rs := &RedisStore{
		Client:        redis.NewClient(&redis.Options{Addr: addr}),
		Ctx:           context.Background(),
		RetryInterval: 50 * time.Millisecond,
	}

	// Add OpenTelemetry instrumentation to Redis client
	if err := redisotel.InstrumentTracing(rs.Client); err != nil {
		return nil, fmt.Errorf("failed to instrument redis tracing: %w", err)
	}

	if err := rs.Client.Ping(rs.Ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	zap.L().Info("Connected to Redis", zap.String("addr", addr))
	return rs, nil
}

// releaseScript deletes the lock only if it still holds our token, so an expired lock
// re-acquired by another worker is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

func lockKey(key string) string {
	return "lock:" + key
}

// TryAcquire makes a single attempt at the lock. It returns the lock token, or "" when
// the lock is held by someone else.
func (r *RedisStore) TryAcquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := r.Client.SetNX(ctx, lockKey(key), token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

// Release frees the lock if token still owns it.
func (r *RedisStore) Release(ctx context.Context, key, token string) error {
	if err := releaseScript.Run(ctx, r.Client, []string{lockKey(key)}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock %s: %w", key, err)
	}
	return nil
}

// Acquire blocks until the lock on key is held or ctx is done. The lock expires after ttl
// even if the returned release func is never called.
func (r *RedisStore) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	interval := r.RetryInterval
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	for {
		token, err := r.TryAcquire(ctx, key, ttl)
		if err != nil {
			return nil, err
		}
		if token != "" {
			return func() {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := r.Release(ctx, key, token); err != nil {
					zap.L().Warn("redis lock release", zap.String("key", key), zap.Error(err))
				}
			}, nil
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// Close shuts down the Redis client.
func (r *RedisStore) Close() {
	if r != nil && r.Client != nil {
		if err := r.Client.Close(); err != nil {
			zap.L().Error("redis close", zap.Error(err))
		}
	}
}
