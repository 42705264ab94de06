// Package cache is a small JSON key/value store used for session state.
// Redis backs it in production; Memory keeps single-process deployments and
// tests free of external services.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shashiranjanraj/canteen/config"
	"github.com/shashiranjanraj/canteen/pkg/metrics"
)

// Store holds JSON-encoded values under string keys.
type Store interface {
	// Get decodes the value at key into dest. ok is false on a miss.
	Get(ctx context.Context, key string, dest any) (ok bool, err error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	// CompareAndDelete removes key only while it still holds value.
	CompareAndDelete(ctx context.Context, key string, value any) (bool, error)
}

// Redis is a Store backed by a go-redis client.
type Redis struct {
	rdb *redis.Client
}

// Connect dials Redis and verifies the connection with a ping.
func Connect(ctx context.Context) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr(),
		Password: config.RedisPassword(),
		DB:       0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cache: redis ping: %w", err)
	}
	return &Redis{rdb: rdb}, nil
}

// NewRedis wraps an existing client.
func NewRedis(rdb *redis.Client) *Redis { return &Redis{rdb: rdb} }

// Client exposes the underlying client so the queue can share the connection.
func (r *Redis) Client() *redis.Client { return r.rdb }

func (r *Redis) Close() error { return r.rdb.Close() }

func (r *Redis) Get(ctx context.Context, key string, dest any) (bool, error) {
	val, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheMisses.WithLabelValues("redis").Inc()
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache: get %s: %w", key, err)
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	metrics.CacheHits.WithLabelValues("redis").Inc()
	return true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	return r.rdb.Set(ctx, key, data, ttl).Err()
}

func (r *Redis) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("cache: encode %s: %w", key, err)
	}
	return r.rdb.SetNX(ctx, key, data, ttl).Result()
}

var compareAndDelete = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

func (r *Redis) CompareAndDelete(ctx context.Context, key string, value any) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("cache: encode %s: %w", key, err)
	}
	n, err := compareAndDelete.Run(ctx, r.rdb, []string{key}, data).Int()
	if err != nil {
		return false, fmt.Errorf("cache: compare and delete %s: %w", key, err)
	}
	return n == 1, nil
}

func (r *Redis) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.rdb.Del(ctx, keys...).Err()
}
