package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"mp3bot/m/v2/app/db"

	r "github.com/go-redis/redis/v8"
)

const storeKeyPrefix = "mp3bot:document:"

// Store keeps each document as a JSON string under its own key.
type Store struct {
	client Client
}

func NewStore(client Client) *Store {
	return &Store{client: client}
}

func (s *Store) Load(ctx context.Context, name string, v any) error {
	data, err := s.client.Get(ctx, storeKeyPrefix+name).Result()
	if errors.Is(err, r.Nil) {
		return db.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("Load: failed to get %s: %w", name, err)
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return fmt.Errorf("Load: failed to parse %s: %w", name, err)
	}
	return nil
}

func (s *Store) Save(ctx context.Context, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("Save: failed to marshal %s: %w", name, err)
	}
	if err := s.client.Set(ctx, storeKeyPrefix+name, string(data), 0).Err(); err != nil {
		return fmt.Errorf("Save: failed to set %s: %w", name, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close(ctx context.Context) error {
	if closer, ok := s.client.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
