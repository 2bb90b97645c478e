package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"dms_sales/internal/domain/value"
)

const redisKeyPrefix = "dms:deal:idempotency:"

// RedisStore разделяет ключи между инстансами сервиса.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Reserve(ctx context.Context, key string, id value.DealID) (value.DealID, bool, error) {
	ok, err := s.client.SetNX(ctx, redisKeyPrefix+key, id.String(), s.ttl).Result()
	if err != nil {
		return value.DealID{}, false, fmt.Errorf("redis.SetNX: %w", err)
	}

	if ok {
		return id, true, nil
	}

	stored, err := s.client.Get(ctx, redisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return s.Reserve(ctx, key, id)
	}
	if err != nil {
		return value.DealID{}, false, fmt.Errorf("redis.Get: %w", err)
	}

	existing, err := value.ParseDealID(stored)
	if err != nil {
		return value.DealID{}, false, fmt.Errorf("value.ParseDealID: %w", err)
	}

	return existing, false, nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis.Del: %w", err)
	}

	return nil
}
