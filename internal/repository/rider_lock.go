package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/autopool/service-rides/internal/common/domain"
)

const riderLockTTL = 10 * time.Second

// RedisRiderLocker serializes booking creation per rider with a short-lived
// Redis lock. The database's partial unique index is the backstop; the lock
// just keeps concurrent creates from both reaching the insert.
type RedisRiderLocker struct {
	client *redis.Client
}

// NewRedisRiderLocker creates a new RedisRiderLocker.
func NewRedisRiderLocker(client *redis.Client) *RedisRiderLocker {
	return &RedisRiderLocker{client: client}
}

// AcquireRiderLock takes the rider's creation lock. The returned release
// function is safe to call after the TTL has expired the key.
func (l *RedisRiderLocker) AcquireRiderLock(ctx context.Context, riderID uuid.UUID) (func(), error) {
	key := fmt.Sprintf("rides:lock:rider:%s", riderID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, riderLockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire rider lock: %w", err)
	}
	if !ok {
		return nil, domain.NewConflictError("another booking request for this rider is in progress")
	}

	release := func() {
		// Delete only our own token so an expired lock reacquired by
		// another request is not released from under it.
		const script = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`
		l.client.Eval(context.Background(), script, []string{key}, token)
	}
	return release, nil
}
