// Package cache holds the Redis-backed request idempotency guard.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyPrefix = "idempotency:"
	idempotencyKeyTTL    = 24 * time.Hour
)

// releaseScript deletes the key only while it still holds the caller's token,
// so a late release cannot drop a claim taken by a retry after expiry.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

type RedisIdempotency struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisIdempotency(client *redis.Client) *RedisIdempotency {
	return &RedisIdempotency{client: client, ttl: idempotencyKeyTTL}
}

// Claim records key as in use by token. It returns false if another request
// already holds it.
func (r *RedisIdempotency) Claim(ctx context.Context, key, token string) (bool, error) {
	ok, err := r.client.SetNX(ctx, idempotencyKeyPrefix+key, token, r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim idempotency key: %w", err)
	}
	return ok, nil
}

// Release frees key if token still owns it. Called when the guarded request
// failed so the client may retry.
func (r *RedisIdempotency) Release(ctx context.Context, key, token string) error {
	if err := releaseScript.Run(ctx, r.client, []string{idempotencyKeyPrefix + key}, token).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
