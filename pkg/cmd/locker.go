package cmd

import (
	"fmt"

	"github.com/pulsecrm/lifecycle/pkg/lock"
	"github.com/redis/go-redis/v9"
)

// NewLocker returns a Redis-backed execution locker when a Redis URL is
// given, otherwise the process-local one. Multi-worker deployments must use
// Redis or two workers can advance the same execution.
func NewLocker(redisURL string) lock.Locker {
	if redisURL == "" {
		return lock.NewMemoryLocker()
	}

	options, err := redis.ParseURL(redisURL)
	if err != nil {
		panic(fmt.Errorf("failed to parse redis URL: %w", err))
	}

	return lock.NewRedisLocker(redis.NewClient(options))
}
