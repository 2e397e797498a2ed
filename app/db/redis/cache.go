package redis

import (
	"context"
	"time"

	"mp3bot/m/v2/app/config"
	"mp3bot/m/v2/app/util"

	r "github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

// Client is a redis client
type Client interface {
	Del(ctx context.Context, keys ...string) *r.IntCmd
	Get(ctx context.Context, key string) *r.StringCmd
	Keys(ctx context.Context, pattern string) *r.StringSliceCmd
	Ping(ctx context.Context) *r.StatusCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *r.StatusCmd
}

// NewClient creates a new redis client, or returns nil when no host is configured
func NewClient(cfg config.Redis) Client {
	if cfg.Host == "" {
		return nil
	}
	port := cfg.Port
	if port == "" {
		port = "6379"
	}
	client := r.NewClient(&r.Options{
		Addr:     cfg.Host + ":" + port,
		Password: cfg.Password,
		DB:       0,
	})
	_, err := client.Ping(context.TODO()).Result()
	util.Assert(err == nil, "Redis connection failed", err)
	return client
}

// Define a function to wrap another function in Redis cache.
func WrapInCache(c Client, key string, duration time.Duration, fn func() (string, error)) func() (string, error) {
	return func() (string, error) {
		cachedData, err := c.Get(context.Background(), key).Result()
		if err == nil {
			return cachedData, nil
		}
		// Cache miss or Redis error. Call the original function.
		data, err := fn()
		if err != nil {
			return "", err
		}
		if err := c.Set(context.Background(), key, data, duration).Err(); err != nil {
			log.Warnf("failed to cache %s: %v", key, err)
		}
		return data, nil
	}
}
