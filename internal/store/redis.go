package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

/*
RedisStore adapts github.com/redis/go-redis/v9 to the Store contract. It
deliberately never issues MULTI/EXEC or EVAL: every operation is a single
command or a pipeline of independent commands, matching the no-scripting,
no-multi-key-transaction constraint the rest of the crawler is built
around.
*/
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr string, db int) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   db,
		}),
	}
}

// NewRedisStoreFromClient wraps an already-configured client, used by tests
// to point at a miniredis instance.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) LPush(ctx context.Context, key string, values ...string) error {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	if err := s.client.LPush(ctx, key, args...).Err(); err != nil {
		return wrapErr("LPUSH", err)
	}
	return nil
}

func (s *RedisStore) RPush(ctx context.Context, key string, values ...string) error {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	if err := s.client.RPush(ctx, key, args...).Err(); err != nil {
		return wrapErr("RPUSH", err)
	}
	return nil
}

func (s *RedisStore) LPop(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.LPop(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrapErr("LPOP", err)
	}
	return v, true, nil
}

func (s *RedisStore) RPop(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.RPop(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrapErr("RPOP", err)
	}
	return v, true, nil
}

func (s *RedisStore) LLen(ctx context.Context, key string) (int64, error) {
	n, err := s.client.LLen(ctx, key).Result()
	if err != nil {
		return 0, wrapErr("LLEN", err)
	}
	return n, nil
}

func (s *RedisStore) ScanPrefix(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, wrapErr("SCAN", err)
	}
	return keys, nil
}

func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return wrapErr("DEL", err)
	}
	return nil
}

func (s *RedisStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	if err := s.client.HSet(ctx, key, args...).Err(); err != nil {
		return wrapErr("HSET", err)
	}
	return nil
}

func (s *RedisStore) HSetNX(ctx context.Context, key, field, value string) (bool, error) {
	ok, err := s.client.HSetNX(ctx, key, field, value).Result()
	if err != nil {
		return false, wrapErr("HSETNX", err)
	}
	return ok, nil
}

func (s *RedisStore) HGet(ctx context.Context, key, field string) (string, bool, error) {
	v, err := s.client.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrapErr("HGET", err)
	}
	return v, true, nil
}

func (s *RedisStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, wrapErr("HGETALL", err)
	}
	return m, nil
}

func (s *RedisStore) HDel(ctx context.Context, key string, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	if err := s.client.HDel(ctx, key, fields...).Err(); err != nil {
		return wrapErr("HDEL", err)
	}
	return nil
}

func (s *RedisStore) SetBitsPipelined(ctx context.Context, key string, offsets []int64) error {
	if len(offsets) == 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	for _, off := range offsets {
		pipe.SetBit(ctx, key, off, 1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return wrapErr("SETBIT", err)
	}
	return nil
}

func (s *RedisStore) GetBitsPipelined(ctx context.Context, key string, offsets []int64) ([]bool, error) {
	if len(offsets) == 0 {
		return nil, nil
	}
	pipe := s.client.Pipeline()
	cmds := make([]*redis.IntCmd, len(offsets))
	for i, off := range offsets {
		cmds[i] = pipe.GetBit(ctx, key, off)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, wrapErr("GETBIT", err)
	}
	result := make([]bool, len(offsets))
	for i, cmd := range cmds {
		v, err := cmd.Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, wrapErr("GETBIT", err)
		}
		result[i] = v == 1
	}
	return result, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return wrapErr("PING", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func wrapErr(cmd string, err error) error {
	retryable := !errors.Is(err, redis.Nil)
	return &StoreError{
		Message:   fmt.Sprintf("%s: %v", cmd, err),
		Retryable: retryable,
		Cause:     classifyRedisErr(err),
	}
}

func classifyRedisErr(err error) StoreErrorCause {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrCauseTimeout
	}
	if errors.Is(err, redis.ErrClosed) {
		return ErrCauseUnavailable
	}
	return ErrCauseCommand
}
