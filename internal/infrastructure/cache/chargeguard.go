package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// chargeKeyPrefix is the prefix for all charge attempt markers
	chargeKeyPrefix = "billing:charge:"
	// DefaultChargeMarkerTTL keeps a marker alive well past the longest
	// retry gap so a crashed attempt stays visible until reconciled.
	DefaultChargeMarkerTTL = 48 * time.Hour
)

// RedisChargeGuard marks a renewal attempt as in flight before the gateway
// call. SetNX makes acquisition atomic across worker instances, so a
// crashed or concurrent sweep cannot charge the same attempt twice.
type RedisChargeGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisChargeGuard creates a new RedisChargeGuard instance
func NewRedisChargeGuard(client *redis.Client, ttl time.Duration) *RedisChargeGuard {
	if ttl <= 0 {
		ttl = DefaultChargeMarkerTTL
	}
	return &RedisChargeGuard{client: client, ttl: ttl}
}

// buildKey builds the Redis key for a charge attempt marker
// Format: billing:charge:{subscription_id}:{marker}
func (g *RedisChargeGuard) buildKey(subscriptionID uint, marker string) string {
	return fmt.Sprintf("%s%d:%s", chargeKeyPrefix, subscriptionID, marker)
}

// Acquire atomically claims the marker. Returns false when another run
// already claimed it.
func (g *RedisChargeGuard) Acquire(ctx context.Context, subscriptionID uint, marker string) (bool, error) {
	key := g.buildKey(subscriptionID, marker)

	acquired, err := g.client.SetNX(ctx, key, "1", g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire charge marker: %w", err)
	}

	return acquired, nil
}

// Release clears the marker after an attempt that consumed no money.
func (g *RedisChargeGuard) Release(ctx context.Context, subscriptionID uint, marker string) error {
	key := g.buildKey(subscriptionID, marker)

	if err := g.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to release charge marker: %w", err)
	}

	return nil
}
