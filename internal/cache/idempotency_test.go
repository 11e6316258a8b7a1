package cache

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestClaim_OnlyOnce(t *testing.T) {
	client := getRedisClient(t)
	ctx := context.Background()
	guard := NewRedisIdempotency(client)
	key := "test-" + uuid.NewString()
	defer client.Del(ctx, idempotencyKeyPrefix+key)

	ok, err := guard.Claim(ctx, key, "req-1")
	if err != nil || !ok {
		t.Fatalf("Expected first claim to succeed, got %v, %v", ok, err)
	}
	ok, err = guard.Claim(ctx, key, "req-2")
	if err != nil || ok {
		t.Fatalf("Expected second claim to fail, got %v, %v", ok, err)
	}
}

func TestRelease_OnlyByOwner(t *testing.T) {
	client := getRedisClient(t)
	ctx := context.Background()
	guard := NewRedisIdempotency(client)
	key := "test-" + uuid.NewString()
	defer client.Del(ctx, idempotencyKeyPrefix+key)

	if _, err := guard.Claim(ctx, key, "owner"); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if err := guard.Release(ctx, key, "intruder"); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if ok, _ := guard.Claim(ctx, key, "other"); ok {
		t.Fatal("Key released by a non-owner")
	}

	if err := guard.Release(ctx, key, "owner"); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if ok, _ := guard.Claim(ctx, key, "other"); !ok {
		t.Error("Expected key to be claimable after owner released it")
	}
}

func TestClaim_Concurrent(t *testing.T) {
	client := getRedisClient(t)
	ctx := context.Background()
	guard := NewRedisIdempotency(client)
	key := "test-" + uuid.NewString()
	defer client.Del(ctx, idempotencyKeyPrefix+key)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, err := guard.Claim(ctx, key, uuid.NewString()); err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("Expected exactly one winner, got %d", wins.Load())
	}
}
