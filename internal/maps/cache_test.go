package maps

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestRedisCache_RoundTrip(t *testing.T) {
	addr := os.Getenv("RIDEMATCH_REDIS_ADDR")
	if addr == "" {
		t.Skip("RIDEMATCH_REDIS_ADDR not set; skipping Redis-backed cache test")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("ping redis: %v", err)
	}

	c := NewRedisCache(client)
	key := "test:" + time.Now().Format(time.RFC3339Nano)
	t.Cleanup(func() { client.Del(ctx, c.prefix+key) })

	if _, ok, err := c.Get(ctx, key); err != nil || ok {
		t.Fatalf("get before set: ok=%v err=%v", ok, err)
	}
	if err := c.Set(ctx, key, []byte(`{"duration":60}`), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := c.Get(ctx, key)
	if err != nil || !ok || string(got) != `{"duration":60}` {
		t.Fatalf("get = %q ok=%v err=%v", got, ok, err)
	}
	if ttl := client.TTL(ctx, c.prefix+key).Val(); ttl <= 0 || ttl > time.Minute {
		t.Errorf("ttl = %v", ttl)
	}
}
