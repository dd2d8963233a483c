package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// factPrefix namespaces the precomputed display strings.
const factPrefix = "fact:"

// GetFact returns a cached fact or ErrCacheMiss.
func (c *Cache) GetFact(ctx context.Context, key string) (string, error) {
	value, err := c.client.Get(ctx, factPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("failed to get fact %s: %w", key, err)
	}
	return value, nil
}

// SetFact stores a fact without expiry. Facts are overwritten by the next
// refresh rather than aging out.
func (c *Cache) SetFact(ctx context.Context, key, value string) error {
	if err := c.client.Set(ctx, factPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set fact %s: %w", key, err)
	}
	return nil
}

// DeleteFact removes a fact. Deleting an absent key is not an error.
func (c *Cache) DeleteFact(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, factPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete fact %s: %w", key, err)
	}
	return nil
}
