package cache

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-monolith/mono"
	"github.com/redis/go-redis/v9"
)

const defaultTTL = 5 * time.Minute

// Module provides the content read cache as a mono module. When REDIS_ADDR is
// unset the module starts disabled and Cache() returns nil; consumers must
// treat a nil cache as a pass-through.
type Module struct {
	cache     *Cache
	client    *redis.Client
	redisAddr string
	prefix    string
	ttl       time.Duration
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new cache module configured from the environment.
func NewModule() *Module {
	return &Module{
		redisAddr: os.Getenv("REDIS_ADDR"),
		prefix:    "contenido:",
		ttl:       defaultTTL,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "cache"
}

// Start connects to Redis when an address is configured.
func (m *Module) Start(ctx context.Context) error {
	if m.redisAddr == "" {
		log.Println("[cache] REDIS_ADDR not set, content cache disabled")
		return nil
	}

	m.client = redis.NewClient(&redis.Options{
		Addr:         m.redisAddr,
		PoolSize:     50,
		MinIdleConns: 5,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := m.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	m.cache = New(m.client, m.prefix, m.ttl)
	log.Printf("[cache] Connected to Redis at %s (prefix: %s, TTL: %s)", m.redisAddr, m.prefix, m.ttl)
	return nil
}

// Stop closes the Redis connection.
func (m *Module) Stop(_ context.Context) error {
	if m.client != nil {
		if err := m.client.Close(); err != nil {
			return fmt.Errorf("failed to close Redis connection: %w", err)
		}
	}
	log.Println("[cache] Module stopped")
	return nil
}

// Health returns the health status.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.cache == nil {
		return mono.HealthStatus{
			Healthy: true,
			Message: "disabled",
		}
	}

	if err := m.cache.Ping(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("redis ping failed: %v", err),
		}
	}

	stats := m.cache.GetStats()
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"hits":     stats.Hits,
			"misses":   stats.Misses,
			"hit_rate": stats.HitRate,
		},
	}
}

// Cache returns the cache, or nil when disabled.
func (m *Module) Cache() *Cache {
	return m.cache
}
