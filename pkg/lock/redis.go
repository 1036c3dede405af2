package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const lockKeyPrefix = "lifecycle:execution-lock:"

// Unlock only when the stored token is ours, so an expired lock re-acquired
// by another worker is never released by the old holder.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// RedisLocker coordinates execution advancement across multiple workers
// using SET NX with a TTL.
type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) Acquire(ctx context.Context, executionID string, ttl time.Duration) (Release, error) {
	key := lockKeyPrefix + executionID
	token := uuid.New().String()

	acquired, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire execution lock: %w", err)
	}

	if !acquired {
		return nil, ErrAlreadyLocked
	}

	release := func(ctx context.Context) error {
		err := l.client.Eval(ctx, releaseScript, []string{key}, token).Err()
		if err != nil {
			return fmt.Errorf("failed to release execution lock: %w", err)
		}

		return nil
	}

	return release, nil
}
