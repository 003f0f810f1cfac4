// Package cache provides a small Redis-backed cache used for the product
// listing. The handler treats a nil Cache as "caching disabled", so the
// storefront runs fine without a Redis instance.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Get returns "" on a cache miss, error only on transport failures.
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
	GenerateKey(operation, key string) string
}

type redisCache struct {
	client   *redis.Client
	keyspace string
}

func NewRedisCache(addr, keyspace string) Cache {
	return &redisCache{
		client:   redis.NewClient(&redis.Options{Addr: addr}),
		keyspace: keyspace,
	}
}

func (r redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r redisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}

	if err != nil {
		return "", err
	}

	return val, nil
}

// Delete drops a key, used to invalidate the catalog after seeding.
func (r redisCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r redisCache) GenerateKey(operation, key string) string {
	return fmt.Sprintf("%s:%s:%s", r.keyspace, operation, key)
}
