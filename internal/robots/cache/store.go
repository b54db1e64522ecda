package cache

import (
	"context"

	"github.com/rohmanhakim/polite-crawler/internal/store"
)

const storeKeyPrefix = "robotscache:"
const storeField = "v"

// StoreCache adapts the shared KV store to the Cache port, so a robots
// fetch cache can be shared across worker processes instead of living
// only in one process's memory. It makes the same TTL-free, last-write-
// wins guarantee MemoryCache does; the TTL logic lives one layer up in
// CachedRobot.
type StoreCache struct {
	store store.Store
	ctx   context.Context
}

// NewStoreCache wires a Cache backed by s. ctx bounds every store call
// this cache makes; callers that need per-call timeouts should wrap s
// itself rather than threading a context through Get/Put.
func NewStoreCache(ctx context.Context, s store.Store) *StoreCache {
	return &StoreCache{store: s, ctx: ctx}
}

func (c *StoreCache) Get(key string) (string, bool) {
	value, ok, err := c.store.HGet(c.ctx, storeKeyPrefix+key, storeField)
	if err != nil {
		return "", false
	}
	return value, ok
}

func (c *StoreCache) Put(key string, value string) {
	_ = c.store.HSet(c.ctx, storeKeyPrefix+key, map[string]string{storeField: value})
}

var _ Cache = (*StoreCache)(nil)
