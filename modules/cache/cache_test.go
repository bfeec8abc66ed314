package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// Unit tests require Redis running on localhost:6379 and skip otherwise.
const testRedisAddr = "localhost:6379"

// setupTestCache creates a cache instance for testing.
func setupTestCache(t *testing.T, prefix string) (*Cache, func()) {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: testRedisAddr,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}

	cleanupKeys(ctx, client, prefix+"*")

	cache := New(client, prefix, 5*time.Minute)

	cleanup := func() {
		cleanupKeys(ctx, client, prefix+"*")
		client.Close()
	}

	return cache, cleanup
}

// cleanupKeys removes all keys matching the pattern.
func cleanupKeys(ctx context.Context, client *redis.Client, pattern string) {
	var cursor uint64
	for {
		keys, nextCursor, err := client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return
		}
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
}

func TestNew(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: testRedisAddr})
	defer client.Close()

	cache := New(client, "contenido:", 10*time.Minute)

	if cache == nil {
		t.Fatal("New() returned nil")
	}
	if cache.prefix != "contenido:" {
		t.Errorf("prefix = %q, want %q", cache.prefix, "contenido:")
	}
	if cache.ttl != 10*time.Minute {
		t.Errorf("ttl = %v, want %v", cache.ttl, 10*time.Minute)
	}
	if cache.stats == nil {
		t.Error("stats is nil")
	}
}

func TestCache_SetAndGet(t *testing.T) {
	cache, cleanup := setupTestCache(t, "test:contenido:")
	defer cleanup()

	ctx := context.Background()

	type cachedContent struct {
		DocumentID string `json:"documentId"`
		Contenido  string `json:"contenido"`
	}

	value := cachedContent{DocumentID: "doc-1", Contenido: "<p>hola</p>"}
	if err := cache.Set(ctx, "proyecto:doc-1", value); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var got cachedContent
	hit, err := cache.Get(ctx, "proyecto:doc-1", &got)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !hit {
		t.Fatal("Get() reported miss for existing key")
	}
	if got != value {
		t.Errorf("Get() = %+v, want %+v", got, value)
	}
}

func TestCache_GetMiss(t *testing.T) {
	cache, cleanup := setupTestCache(t, "test:miss:")
	defer cleanup()

	var dest string
	hit, err := cache.Get(context.Background(), "nope", &dest)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if hit {
		t.Error("Get() reported hit for missing key")
	}
}

func TestCache_Delete(t *testing.T) {
	cache, cleanup := setupTestCache(t, "test:delete:")
	defer cleanup()

	ctx := context.Background()

	if err := cache.Set(ctx, "proyecto:doc-1", "contenido"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := cache.Delete(ctx, "proyecto:doc-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	var dest string
	hit, err := cache.Get(ctx, "proyecto:doc-1", &dest)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if hit {
		t.Error("Get() reported hit after Delete()")
	}

	// Deleting a missing key is not an error.
	if err := cache.Delete(ctx, "proyecto:doc-1"); err != nil {
		t.Errorf("Delete() of missing key error = %v", err)
	}
}

func TestCache_Stats(t *testing.T) {
	cache, cleanup := setupTestCache(t, "test:stats:")
	defer cleanup()

	ctx := context.Background()

	if err := cache.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var dest string
	if _, err := cache.Get(ctx, "k", &dest); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if _, err := cache.Get(ctx, "missing", &dest); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	stats := cache.GetStats()
	if stats.Hits != 1 {
		t.Errorf("Hits = %d, want 1", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Misses = %d, want 1", stats.Misses)
	}
	if stats.Sets != 1 {
		t.Errorf("Sets = %d, want 1", stats.Sets)
	}
	if stats.HitRate != 50 {
		t.Errorf("HitRate = %v, want 50", stats.HitRate)
	}
}
