package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCache) Seen(ctx context.Context, id string) (bool, error) {
	set, err := c.rdb.SetNX(ctx, "seen:"+id, 1, c.ttl).Result()
	if err != nil {
		return false, err
	}
	return !set, nil
}
