package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *RedisStore {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStoreFromClient(client)
}

func TestRedisStore_ListOps(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.RPush(ctx, "frontier:example.com", "a|0", "b|0"))
	require.NoError(t, s.LPush(ctx, "queue:0", "example.com"))

	n, err := s.LLen(ctx, "frontier:example.com")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	v, ok, err := s.RPop(ctx, "frontier:example.com")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b|0", v)

	v, ok, err = s.LPop(ctx, "queue:0")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "example.com", v)

	_, ok, err = s.LPop(ctx, "queue:0")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_ScanPrefix(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.HSet(ctx, "domain:a.com", map[string]string{"next_fetch_time": "1"}))
	require.NoError(t, s.HSet(ctx, "domain:b.com", map[string]string{"next_fetch_time": "2"}))
	require.NoError(t, s.HSet(ctx, "other:c.com", map[string]string{"x": "1"}))

	keys, err := s.ScanPrefix(ctx, "domain:")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"domain:a.com", "domain:b.com"}, keys)
}

func TestRedisStore_HashOps(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ok, err := s.HSetNX(ctx, "domain:example.com", "next_fetch_time", "100")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.HSetNX(ctx, "domain:example.com", "next_fetch_time", "200")
	require.NoError(t, err)
	assert.False(t, ok, "HSetNX must not overwrite an existing field")

	v, ok, err := s.HGet(ctx, "domain:example.com", "next_fetch_time")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "100", v)

	require.NoError(t, s.HSet(ctx, "domain:example.com", map[string]string{"is_excluded": "false"}))
	all, err := s.HGetAll(ctx, "domain:example.com")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"next_fetch_time": "100", "is_excluded": "false"}, all)

	require.NoError(t, s.HDel(ctx, "domain:example.com", "is_excluded"))
	_, ok, err = s.HGet(ctx, "domain:example.com", "is_excluded")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_Bits(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.SetBitsPipelined(ctx, "seen:filter", []int64{3, 17, 500}))

	got, err := s.GetBitsPipelined(ctx, "seen:filter", []int64{3, 4, 17, 500, 999})
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, true, true, false}, got)
}

func TestRedisStore_Del(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.RPush(ctx, "frontier:example.com", "a|0"))
	require.NoError(t, s.Del(ctx, "frontier:example.com"))

	n, err := s.LLen(ctx, "frontier:example.com")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestRedisStore_Ping(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.Close())
}
