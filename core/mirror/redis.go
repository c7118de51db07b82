package mirror

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores values in Redis, without expiry.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend returns a backend on the given Redis client.
func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

// Load reads the value stored under key.
func (b *RedisBackend) Load(ctx context.Context, key string) ([]byte, time.Time, error) {
	raw, err := b.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, time.Time{}, ErrNoValue
	}
	if err != nil {
		return nil, time.Time{}, err
	}
	var e envelope
	if err := json.Unmarshal(raw, &e); err != nil || e.Value == nil {
		return nil, time.Time{}, ErrCorrupt
	}
	return e.Value, e.Timestamp, nil
}

// Store writes the value under key.
func (b *RedisBackend) Store(ctx context.Context, key string, value []byte, timestamp time.Time) error {
	raw, err := json.Marshal(envelope{Timestamp: timestamp, Value: value})
	if err != nil {
		return err
	}
	return b.client.Set(ctx, key, raw, 0).Err()
}

// Remove deletes the value stored under key.
func (b *RedisBackend) Remove(ctx context.Context, key string) error {
	return b.client.Del(ctx, key).Err()
}
