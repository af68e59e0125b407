package lock

import (
	"context"
	"fmt"

	backend "github.com/redis/go-redis/v9"
)

// Open builds the locker named by kind ("memory" or "redis"). The
// returned close func releases the Redis client, if any.
func Open(ctx context.Context, kind, redisAddr string) (Locker, func() error, error) {
	switch kind {
	case "", "memory":
		return NewMemoryLocker(), func() error { return nil }, nil
	case "redis":
		client := backend.NewClient(&backend.Options{Addr: redisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", redisAddr, err)
		}
		return NewRedisLocker(client, "subway:"), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown lock backend %q", kind)
	}
}
