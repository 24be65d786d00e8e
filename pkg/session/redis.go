package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"venuebot/pkg/metrics"
	"venuebot/pkg/venue"
)

// answersField is the hash field holding the cached search.
const answersField = "answers"

// RedisStore keeps sessions in one hash per chat.
type RedisStore struct {
	client redis.Cmdable
}

// NewRedisStore wraps an existing connection; the caller owns its lifecycle.
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

// userKey returns the hash key for a chat's session.
func userKey(chatID int64) string {
	return fmt.Sprintf("users:%d", chatID)
}

func (s *RedisStore) Save(ctx context.Context, chatID int64, result venue.SearchResult) error {
	if result == nil {
		result = venue.SearchResult{}
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	startedAt := time.Now()
	err = s.client.HSet(ctx, userKey(chatID), answersField, data).Err()
	metrics.RedisLatency.WithLabelValues("hset").Observe(time.Since(startedAt).Seconds())
	if err != nil {
		return fmt.Errorf("save session %d: %w", chatID, err)
	}

	return nil
}

func (s *RedisStore) Load(ctx context.Context, chatID int64) (venue.SearchResult, error) {
	startedAt := time.Now()
	data, err := s.client.HGet(ctx, userKey(chatID), answersField).Bytes()
	metrics.RedisLatency.WithLabelValues("hget").Observe(time.Since(startedAt).Seconds())
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %d: %w", chatID, err)
	}

	var result venue.SearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode session %d: %w", chatID, err)
	}

	return result, nil
}
