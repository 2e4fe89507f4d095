package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Locker guards a tick across processes. Release must be safe to call once
// the lock has expired.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	client *redis.Client
	logger zerolog.Logger
}

func NewRedisLocker(client *redis.Client, logger *zerolog.Logger) *RedisLocker {
	return &RedisLocker{
		client: client,
		logger: logger.With().Str("component", "tick_lock").Logger(),
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	return func() { l.release(key, token) }, true, nil
}

// release drops the lock if it still holds token. A lock that cannot be
// released makes later ticks skip until its TTL runs out.
func (l *RedisLocker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	deleted, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int()
	if err != nil {
		l.logger.Warn().Err(err).Str("key", key).Msg("failed to release tick lock")
		return
	}
	if deleted == 0 {
		l.logger.Debug().Str("key", key).Msg("tick lock expired before release")
	}
}

func lockKey(name string) string {
	return "tick_lock:" + name
}
