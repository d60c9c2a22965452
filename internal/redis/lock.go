package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lock is a best-effort single-writer lock backed by SET NX with a TTL.
// The monthly drawing runner takes one per (month, year, tier) period so
// an overlapping manual re-trigger cannot race a scheduled firing into a
// second gift card.
type Lock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLock creates a lock manager with the given TTL. The TTL bounds how
// long a crashed holder can block the next run.
func NewLock(client *redis.Client, ttl time.Duration) *Lock {
	return &Lock{client: client, ttl: ttl}
}

// Acquire attempts to take the named lock. Returns false without error
// when another holder has it.
func (l *Lock) Acquire(ctx context.Context, name string) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockKey(name), time.Now().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %q: %w", name, err)
	}
	return ok, nil
}

// Release frees the named lock. Releasing a lock that expired or was
// never held is not an error.
func (l *Lock) Release(ctx context.Context, name string) error {
	if err := l.client.Del(ctx, lockKey(name)).Err(); err != nil {
		return fmt.Errorf("failed to release lock %q: %w", name, err)
	}
	return nil
}

func lockKey(name string) string {
	return "lock:" + name
}
