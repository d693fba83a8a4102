package runlock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix       = "reporting:runlock:"
	defaultLeaseTTL = time.Minute
	retryInterval   = 200 * time.Millisecond
)

// releaseScript deletes the lease only when the stored token still matches,
// so a lock that expired and was re-acquired elsewhere is never removed by
// the previous holder.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker coordinates runs across processes with a Redis lease. The
// lease carries a TTL so a crashed run cannot hold the lock forever.
type RedisLocker struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultLeaseTTL
	}
	return &RedisLocker{redis: client, ttl: ttl}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (Lock, error) {
	redisKey := keyPrefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.redis.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire run lock for %s: %w", key, err)
		}
		if ok {
			return &redisLock{redis: l.redis, key: redisKey, token: token}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquiring run lock for %s: %w", key, ctx.Err())
		case <-ticker.C:
		}
	}
}

type redisLock struct {
	redis *redis.Client
	key   string
	token string
}

func (l *redisLock) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.redis, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("failed to release run lock: %w", err)
	}
	return nil
}
