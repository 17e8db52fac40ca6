package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/pathlearn/pathlearn-backend/internal/platform/logger"
)

// RedisStore keeps every blob under its store key verbatim. ListKeys is a
// SCAN MATCH prefix* walk, so it carries the same "prefix scan only"
// contract as the other adapters. Useful for multi-instance deployments
// that already run Redis and do not want a cloud bucket.
type RedisStore struct {
	log    *logger.Logger
	client *redis.Client
}

func NewRedisStore(ctx context.Context, log *logger.Logger, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{
		log:    log.With("store", "RedisStore"),
		client: client,
	}, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return storeErr("put", key, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, &NotFoundError{Key: key}
		}
		return nil, storeErr("get", key, err)
	}
	return data, nil
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, storeErr("stat", key, err)
	}
	return n > 0, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return false, storeErr("delete", key, err)
	}
	return n > 0, nil
}

func (s *RedisStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, storeErr("list", prefix, err)
	}
	return keys, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
