package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

// Only the holder's token may delete the key.
var unlockScript = backend.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RedisLocker coordinates writers across processes with SET NX PX.
// A holder that dies loses the lock when its ttl expires.
type RedisLocker struct {
	client     *backend.Client
	prefix     string
	retryEvery time.Duration
}

// NewRedisLocker creates a locker whose keys are namespaced by prefix
func NewRedisLocker(client *backend.Client, prefix string) *RedisLocker {
	return &RedisLocker{
		client:     client,
		prefix:     prefix,
		retryEvery: 50 * time.Millisecond,
	}
}

// Lock polls until it sets key or ctx is done. The key expires after
// ttl so a crashed holder cannot keep it forever.
func (l *RedisLocker) Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error) {
	lockKey := l.prefix + "lock:" + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.retryEvery)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis error acquiring lock: %w", err)
		}
		if ok {
			return func(ctx context.Context) error {
				return unlockScript.Run(ctx, l.client, []string{lockKey}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
