package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisLockKeyPrefix = "sagaline:lock:"

// releaseScript deletes the lock only when the stored token matches, so a
// writer cannot release a lock that expired and was re-acquired by another.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLockerOptions configures acquisition behavior.
type RedisLockerOptions struct {
	// TTL bounds how long a crashed writer can hold the lock.
	TTL time.Duration
	// RetryInterval is the poll interval while the lock is contended.
	RetryInterval time.Duration
}

// RedisLocker implements Locker across processes with SET NX PX and a fencing
// token per acquisition.
type RedisLocker struct {
	client        redis.UniversalClient
	ttl           time.Duration
	retryInterval time.Duration
}

// NewRedisLocker creates a distributed locker over a Redis client.
func NewRedisLocker(client redis.UniversalClient, options RedisLockerOptions) (*RedisLocker, error) {
	if client == nil {
		return nil, fmt.Errorf("lock: redis client cannot be nil")
	}
	if options.TTL <= 0 {
		options.TTL = 30 * time.Second
	}
	if options.RetryInterval <= 0 {
		options.RetryInterval = 50 * time.Millisecond
	}
	return &RedisLocker{
		client:        client,
		ttl:           options.TTL,
		retryInterval: options.RetryInterval,
	}, nil
}

// Acquire polls SET NX until the lock is held or ctx is done.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (Release, error) {
	redisKey := redisLockKeyPrefix + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("lock: acquire %s: %w", key, err)
		}
		if ok {
			return func(releaseCtx context.Context) error {
				if err := releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err(); err != nil && err != redis.Nil {
					return fmt.Errorf("lock: release %s: %w", key, err)
				}
				return nil
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryInterval):
		}
	}
}
