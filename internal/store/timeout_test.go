package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohmanhakim/polite-crawler/internal/store"
)

func TestWithOpTimeout_PassesThroughOnSuccess(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := store.WithOpTimeout(store.NewRedisStoreFromClient(client), time.Second)

	require.NoError(t, s.HSet(context.Background(), "k", map[string]string{"f": "v"}))
	value, ok, err := s.HGet(context.Background(), "k", "f")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", value)
}

func TestWithOpTimeout_CancelsSlowCalls(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	mr.SetTime(time.Now())

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := store.WithOpTimeout(store.NewRedisStoreFromClient(client), time.Nanosecond)

	_, _, err = s.HGet(context.Background(), "k", "f")
	assert.Error(t, err)
}
