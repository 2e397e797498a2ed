package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"mp3bot/m/v2/app/db"

	r "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
)

func TestWrapInCache(t *testing.T) {
	client := NewMockRedisClient()
	calls := 0
	fetch := WrapInCache(client, "system-status", time.Minute, func() (string, error) {
		calls++
		return `{"store":{"available":true}}`, nil
	})

	for i := 0; i < 2; i++ {
		value, err := fetch()
		assert.NoError(t, err)
		assert.Equal(t, `{"store":{"available":true}}`, value)
	}
	assert.Equal(t, 1, calls)
}

func TestWrapInCacheDoesNotCacheErrors(t *testing.T) {
	client := NewMockRedisClient()
	calls := 0
	fetch := WrapInCache(client, "media-info:x", time.Minute, func() (string, error) {
		calls++
		return "", errors.New("yt-dlp failed")
	})

	_, err := fetch()
	assert.Error(t, err)
	_, err = fetch()
	assert.Error(t, err)
	assert.Equal(t, 2, calls)
}

type unwritableRedis struct {
	*MockRedisClient
}

func (u unwritableRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *r.StatusCmd {
	cmd := r.NewStatusCmd(ctx)
	cmd.SetErr(errors.New("redis: connection refused"))
	return cmd
}

func TestWrapInCacheReturnsDataWhenSetFails(t *testing.T) {
	client := unwritableRedis{NewMockRedisClient()}
	calls := 0
	fetch := WrapInCache(client, "media-info:dQw4w9WgXcQ", time.Minute, func() (string, error) {
		calls++
		return `{"id":"dQw4w9WgXcQ"}`, nil
	})

	for i := 0; i < 2; i++ {
		value, err := fetch()
		assert.NoError(t, err)
		assert.Equal(t, `{"id":"dQw4w9WgXcQ"}`, value)
	}
	assert.Equal(t, 2, calls)
}

func TestStore(t *testing.T) {
	store := NewStore(NewMockRedisClient())
	type payments map[string]string

	var got payments
	assert.True(t, errors.Is(store.Load(context.Background(), "payments", &got), db.ErrNotFound))

	assert.NoError(t, store.Save(context.Background(), "payments", payments{"123": "pending"}))
	assert.NoError(t, store.Load(context.Background(), "payments", &got))
	assert.Equal(t, "pending", got["123"])
	assert.NoError(t, store.Ping(context.Background()))
}

func TestMockKeys(t *testing.T) {
	client := NewMockRedisClient()
	client.Set(context.Background(), "media-info:a", "1", 0)
	client.Set(context.Background(), "media-info:b", "2", 0)
	client.Set(context.Background(), "system-status", "3", 0)

	keys := client.Keys(context.Background(), "media-info:*").Val()
	assert.ElementsMatch(t, []string{"media-info:a", "media-info:b"}, keys)
	assert.Equal(t, int64(2), client.Del(context.Background(), keys...).Val())
}
