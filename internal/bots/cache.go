package bots

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisCommands is the slice of the redis client the cache needs.
// *redis.Client implements it; tests substitute an in-memory stand-in.
type redisCommands interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Cache is a redis read-through cache for bot configs. A nil *Cache is valid
// and disables caching, so deployments without redis run unchanged. Cache
// errors are logged and otherwise ignored: the store is the source of truth.
type Cache struct {
	client redisCommands
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

func cacheKey(botID string) string {
	return "bot:" + botID
}

func (c *Cache) Get(ctx context.Context, botID string) (Config, bool) {
	if c == nil {
		return Config{}, false
	}
	data, err := c.client.Get(ctx, cacheKey(botID)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("bot cache get failed: %v", err)
		}
		return Config{}, false
	}
	var cfg Config
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		return Config{}, false
	}
	return cfg, true
}

func (c *Cache) Set(ctx context.Context, cfg Config) {
	if c == nil {
		return
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(cfg.BotID), data, c.ttl).Err(); err != nil {
		log.Printf("bot cache set failed: %v", err)
	}
}

func (c *Cache) Delete(ctx context.Context, botID string) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, cacheKey(botID)).Err(); err != nil {
		log.Printf("bot cache delete failed: %v", err)
	}
}
