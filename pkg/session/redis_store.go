package session

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "course:session:"

type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, token, key string) (string, bool, error) {
	val, err := s.rdb.HGet(ctx, keyPrefix+token, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *RedisStore) Set(ctx context.Context, token, key, value string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, keyPrefix+token, key, value)
		if s.ttl > 0 {
			pipe.Expire(ctx, keyPrefix+token, s.ttl)
		}
		return nil
	})
	return err
}

func (s *RedisStore) Pop(ctx context.Context, token, key string) (string, bool, error) {
	var get *redis.StringCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		get = pipe.HGet(ctx, keyPrefix+token, key)
		pipe.HDel(ctx, keyPrefix+token, key)
		return nil
	})
	if err != nil && err != redis.Nil {
		return "", false, err
	}
	val, err := get.Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *RedisStore) Delete(ctx context.Context, token, key string) error {
	return s.rdb.HDel(ctx, keyPrefix+token, key).Err()
}
