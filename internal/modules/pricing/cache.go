// README: Fee config list cache; every write invalidates it so multi-record saves refetch once.
package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const configsCacheKey = "fees:configs"

type ConfigCache interface {
	Get(ctx context.Context) ([]FeeConfig, bool, error)
	Set(ctx context.Context, configs []FeeConfig) error
	Invalidate(ctx context.Context) error
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context) ([]FeeConfig, bool, error) {
	raw, err := c.client.Get(ctx, configsCacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var configs []FeeConfig
	if err := json.Unmarshal(raw, &configs); err != nil {
		// A payload from an older schema is treated as a miss.
		return nil, false, nil
	}
	return configs, true, nil
}

func (c *RedisCache) Set(ctx context.Context, configs []FeeConfig) error {
	raw, err := json.Marshal(configs)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, configsCacheKey, raw, c.ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, configsCacheKey).Err()
}

type nopCache struct{}

func (nopCache) Get(context.Context) ([]FeeConfig, bool, error) { return nil, false, nil }
func (nopCache) Set(context.Context, []FeeConfig) error { return nil }
func (nopCache) Invalidate(context.Context) error { return nil }
