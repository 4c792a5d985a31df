package offline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/smartfarm/advisor/internal/logx"
)

// redisKV is the part of redis.Cmdable the store needs.
type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps the queue as a JSON array under one key.
type RedisStore struct {
	rdb redisKV
	key string
}

func NewRedisStore(rdb redisKV, key string) *RedisStore {
	if key == "" {
		key = DefaultStorageKey
	}
	return &RedisStore{rdb: rdb, key: key}
}

// NewRedisClient parses a redis:// URL and checks the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (s *RedisStore) Load(ctx context.Context) ([]QueuedRequest, error) {
	data, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []QueuedRequest{}, nil
	}
	if err != nil {
		logx.Error().Err(err).Str("key", s.key).Msg("failed to load offline queue from redis")
		return nil, fmt.Errorf("load queue from redis: %w", err)
	}
	return decodeQueue(data)
}

func (s *RedisStore) Save(ctx context.Context, requests []QueuedRequest) error {
	if len(requests) == 0 {
		if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
			logx.Error().Err(err).Str("key", s.key).Msg("failed to clear offline queue in redis")
			return fmt.Errorf("clear queue in redis: %w", err)
		}
		return nil
	}

	data, err := encodeQueue(requests)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.key, data, 0).Err(); err != nil {
		logx.Error().Err(err).Str("key", s.key).Msg("failed to save offline queue to redis")
		return fmt.Errorf("save queue to redis: %w", err)
	}
	return nil
}
