package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDriver is a FIFO list shared by every server process pointed at the
// same Redis: RPUSH to enqueue, BLPOP to take.
type RedisDriver struct {
	rdb  *redis.Client
	list string
	wait time.Duration
}

// NewRedisDriver uses the list canteen:queue:jobs on rdb, normally the
// session cache's client.
func NewRedisDriver(rdb *redis.Client) *RedisDriver {
	return &RedisDriver{rdb: rdb, list: "canteen:queue:jobs", wait: 5 * time.Second}
}

func (d *RedisDriver) Push(ctx context.Context, payload []byte) error {
	if err := d.rdb.RPush(ctx, d.list, payload).Err(); err != nil {
		return fmt.Errorf("queue/redis: rpush %s: %w", d.list, err)
	}
	return nil
}

func (d *RedisDriver) Pop(ctx context.Context) ([]byte, error) {
	kv, err := d.rdb.BLPop(ctx, d.wait, d.list).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("queue/redis: blpop %s: %w", d.list, err)
	case len(kv) != 2:
		return nil, nil
	}
	// kv is [list, value].
	return []byte(kv[1]), nil
}
