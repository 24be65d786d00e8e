package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"venuebot/pkg/metrics"
)

// RedisQueue is a Redis list used as a FIFO: RPUSH at the tail, LPOP at the head.
type RedisQueue struct {
	client redis.Cmdable
	key    string
}

func NewRedisQueue(client redis.Cmdable, key string) (*RedisQueue, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if key == "" {
		return nil, errors.New("queue key is required")
	}

	return &RedisQueue{client: client, key: key}, nil
}

// Push returns once Redis has acknowledged the append.
func (q *RedisQueue) Push(ctx context.Context, payload []byte) error {
	startedAt := time.Now()
	err := q.client.RPush(ctx, q.key, payload).Err()
	metrics.RedisLatency.WithLabelValues("rpush").Observe(time.Since(startedAt).Seconds())
	if err != nil {
		metrics.QueueErrors.WithLabelValues("push").Inc()
		return fmt.Errorf("push %s: %w", q.key, err)
	}

	metrics.MessagesEnqueued.Inc()
	return nil
}

func (q *RedisQueue) Pop(ctx context.Context) ([]byte, bool, error) {
	startedAt := time.Now()
	payload, err := q.client.LPop(ctx, q.key).Bytes()
	metrics.RedisLatency.WithLabelValues("lpop").Observe(time.Since(startedAt).Seconds())
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("pop %s: %w", q.key, err)
	}

	return payload, true, nil
}

// Len reports the current queue depth.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}
