// Package cache provides concrete implementations of the CACHE
// collaborator (spec.md §6): an external, reference-counted holder for
// reference subtrees imported from peers. The dual-tree queue core only
// ever calls LockCache on this contract; Release exists for the task
// consumer side of the accounting described in spec.md §4.6.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config mirrors the Redis connection options the teacher's
// DatabaseManager defaults, scoped to just what a reference-count cache
// needs.
type Config struct {
	Host     string        `yaml:"host" env:"DUALTREE_CACHE_HOST"`
	Port     int           `yaml:"port" env:"DUALTREE_CACHE_PORT"`
	Password string        `yaml:"password" env:"DUALTREE_CACHE_PASSWORD"`
	DB       int           `yaml:"db" env:"DUALTREE_CACHE_DB"`
	PoolSize int           `yaml:"pool_size" env:"DUALTREE_CACHE_POOL_SIZE"`
	Timeout  time.Duration `yaml:"timeout" env:"DUALTREE_CACHE_TIMEOUT"`
}

func (c *Config) setDefaults() {
	if c.Port == 0 {
		c.Port = 6379
	}
	if c.PoolSize == 0 {
		c.PoolSize = 10
	}
	if c.Timeout == 0 {
		c.Timeout = 3 * time.Second
	}
}

// ReferenceCache backs the reference count of each cache slot with a
// Redis INCRBY against key "refcount:<cache_id>". It is safe to call from
// multiple goroutines concurrently (the only requirement the core places
// on its CACHE collaborator, spec.md §5).
type ReferenceCache struct {
	client *redis.Client
	logger *slog.Logger
}

// New dials Redis using cfg and returns a ready-to-use ReferenceCache.
func New(cfg *Config, logger *slog.Logger) (*ReferenceCache, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.setDefaults()

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache: connect to redis: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &ReferenceCache{client: client, logger: logger}, nil
}

// LockCache implements dualtree.CacheLocker: it adds count to the
// reference count of the slot identified by cacheID.
func (c *ReferenceCache) LockCache(cacheID string, count int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	n, err := c.client.IncrBy(ctx, refKey(cacheID), int64(count)).Result()
	if err != nil {
		return fmt.Errorf("cache: lock %s by %d: %w", cacheID, count, err)
	}
	c.logger.Debug("locked cache slot", "cache_id", cacheID, "delta", count, "refcount", n)
	return nil
}

// Release decrements the reference count of cacheID by count. This is the
// task consumer's responsibility per spec.md §4.6; the queue core never
// calls it.
func (c *ReferenceCache) Release(cacheID string, count int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	n, err := c.client.DecrBy(ctx, refKey(cacheID), int64(count)).Result()
	if err != nil {
		return fmt.Errorf("cache: release %s by %d: %w", cacheID, count, err)
	}
	if n < 0 {
		c.logger.Warn("cache refcount went negative", "cache_id", cacheID, "refcount", n)
	}
	return nil
}

// RefCount returns the current reference count for cacheID, mainly for
// diagnostics and tests.
func (c *ReferenceCache) RefCount(cacheID string) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	n, err := c.client.Get(ctx, refKey(cacheID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

// Close releases the underlying Redis connection pool.
func (c *ReferenceCache) Close() error {
	return c.client.Close()
}

func refKey(cacheID string) string {
	return "refcount:" + cacheID
}
