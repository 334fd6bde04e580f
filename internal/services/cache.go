package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lumen-journal/lumen-backend/internal/database"
)

const (
	// CacheKeyPrefix is the Redis key prefix for cached data
	CacheKeyPrefix = "cache:"
	// DefaultCacheTTL is the default insight/summary cache lifetime
	DefaultCacheTTL = 8 * time.Hour
	// MinCacheTTL and MaxCacheTTL clamp caller-supplied TTLs
	MinCacheTTL = 1 * time.Hour
	MaxCacheTTL = 24 * time.Hour
)

// CacheService is a thin JSON cache over Redis. Used mainly to avoid
// re-running LLM calls (insights) inside the TTL window.
type CacheService struct{}

// Get retrieves a value from cache. A miss is (false, nil), not an error.
func (c *CacheService) Get(key string, dest interface{}) (bool, error) {
	ctx := context.Background()
	val, err := database.RedisClient.Get(ctx, CacheKeyPrefix+key).Result()
	if err != nil {
		return false, nil // Cache miss
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores a value in cache with default TTL
func (c *CacheService) Set(key string, value interface{}) error {
	return c.SetWithTTL(key, value, DefaultCacheTTL)
}

// SetWithTTL stores a value in cache with a TTL clamped to [MinCacheTTL, MaxCacheTTL].
func (c *CacheService) SetWithTTL(key string, value interface{}, ttl time.Duration) error {
	if ttl < MinCacheTTL {
		ttl = MinCacheTTL
	}
	if ttl > MaxCacheTTL {
		ttl = MaxCacheTTL
	}

	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return database.RedisClient.Set(ctx, CacheKeyPrefix+key, jsonData, ttl).Err()
}

// Delete removes a value from cache
func (c *CacheService) Delete(key string) error {
	ctx := context.Background()
	return database.RedisClient.Del(ctx, CacheKeyPrefix+key).Err()
}

// Exists checks if a key exists in cache
func (c *CacheService) Exists(key string) (bool, error) {
	ctx := context.Background()
	count, err := database.RedisClient.Exists(ctx, CacheKeyPrefix+key).Result()
	return count > 0, err
}

// CacheKey generates a cache key for a specific resource
func CacheKey(resource string, identifier string) string {
	return fmt.Sprintf("%s:%s", resource, identifier)
}

// Global cache service instance
var Cache = &CacheService{}
