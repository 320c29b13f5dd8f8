package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smokyabdulrahman/prayer-countdown/internal/api"
)

const (
	redisKeyPrefix = "prayer-countdown:calendar:"
	redisTTL       = 40 * 24 * time.Hour
)

// RedisStore keeps calendar months in Redis as JSON values with a TTL.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects to addr and verifies the connection with PING.
func NewRedisStore(ctx context.Context, addr string) (*RedisStore, error) {
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DB:          0,
		DialTimeout: 2 * time.Second,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("cannot reach redis at %s: %w", addr, err)
	}

	return &RedisStore{rdb: rdb}, nil
}

func redisKey(key MonthKey) string {
	return redisKeyPrefix + key.ID()
}

// LoadMonth reads a cached month from Redis.
func (s *RedisStore) LoadMonth(ctx context.Context, key MonthKey) (*MonthEntry, error) {
	data, err := s.rdb.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry MonthEntry
	if err := json.Unmarshal(data, &entry); err != nil || !entry.valid(key) {
		return nil, ErrMiss
	}
	return &entry, nil
}

// SaveMonth stores a month with a TTL that comfortably outlives the month itself.
func (s *RedisStore) SaveMonth(ctx context.Context, key MonthKey, days []api.Data) error {
	data, err := json.Marshal(newEntry(key, days))
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	if err := s.rdb.Set(ctx, redisKey(key), data, redisTTL).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close releases the Redis connection pool.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
