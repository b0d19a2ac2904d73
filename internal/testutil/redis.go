package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultTestRedisURL = "redis://localhost:6379/15"

// NewTestRedis connects to TEST_REDIS_URL and skips the test when Redis is
// unreachable.
func NewTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		url = defaultTestRedisURL
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("failed to parse redis url: %v", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("skipping Redis integration tests: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// UniqueStream returns a stream key that is deleted when the test ends.
func UniqueStream(t *testing.T, client *redis.Client, prefix string) string {
	t.Helper()
	key := fmt.Sprintf("%s:%s", prefix, uuid.NewString())
	t.Cleanup(func() { _ = client.Del(context.Background(), key).Err() })
	return key
}
