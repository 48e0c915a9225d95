package pagesync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// LocalCache holds the last known snapshot per tenant for instant hydration.
type LocalCache interface {
	Get(ctx context.Context, businessID string) (Record, bool, error)
	Set(ctx context.Context, rec Record) error
}

// RedisCache stores one JSON blob per tenant in Redis.
type RedisCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisCache creates a Redis-backed cache. A zero ttl keeps entries until overwritten.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if client == nil {
		panic("pagesync: redis client required")
	}
	return &RedisCache{redis: client, ttl: ttl}
}

func (c *RedisCache) key(businessID string) string {
	return fmt.Sprintf("bookingpage:cache:%s", businessID)
}

// Get returns the cached record, reporting false on a miss.
func (c *RedisCache) Get(ctx context.Context, businessID string) (Record, bool, error) {
	data, err := c.redis.Get(ctx, c.key(businessID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("pagesync: cache get: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, false, fmt.Errorf("pagesync: cache unmarshal: %w", err)
	}
	return rec, true, nil
}

// Set overwrites the tenant's cached record.
func (c *RedisCache) Set(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("pagesync: cache marshal: %w", err)
	}
	if err := c.redis.Set(ctx, c.key(rec.BusinessID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("pagesync: cache set: %w", err)
	}
	return nil
}

// MemoryCache is an in-process LocalCache used when Redis is unavailable.
type MemoryCache struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{records: make(map[string]Record)}
}

func (c *MemoryCache) Get(_ context.Context, businessID string) (Record, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[businessID]
	return rec, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, rec Record) error {
	c.mu.Lock()
	c.records[rec.BusinessID] = rec
	c.mu.Unlock()
	return nil
}
