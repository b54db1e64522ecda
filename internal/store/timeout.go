package store

import (
	"context"
	"time"
)

// timeoutStore decorates a Store so every call is bounded by a fixed
// per-operation deadline, per §4.6's "a Worker MUST NOT block on the
// store for more than store_op_timeout" rule. A call that exceeds the
// deadline returns the context's deadline-exceeded error; callers
// treat that the same as any other store error (log and continue).
type timeoutStore struct {
	inner   Store
	timeout time.Duration
}

// WithOpTimeout returns a Store decorator that bounds every call to
// inner by timeout.
func WithOpTimeout(inner Store, timeout time.Duration) Store {
	return &timeoutStore{inner: inner, timeout: timeout}
}

func (t *timeoutStore) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, t.timeout)
}

func (t *timeoutStore) LPush(ctx context.Context, key string, values ...string) error {
	c, cancel := t.bound(ctx)
	defer cancel()
	return t.inner.LPush(c, key, values...)
}

func (t *timeoutStore) RPush(ctx context.Context, key string, values ...string) error {
	c, cancel := t.bound(ctx)
	defer cancel()
	return t.inner.RPush(c, key, values...)
}

func (t *timeoutStore) LPop(ctx context.Context, key string) (string, bool, error) {
	c, cancel := t.bound(ctx)
	defer cancel()
	return t.inner.LPop(c, key)
}

func (t *timeoutStore) RPop(ctx context.Context, key string) (string, bool, error) {
	c, cancel := t.bound(ctx)
	defer cancel()
	return t.inner.RPop(c, key)
}

func (t *timeoutStore) LLen(ctx context.Context, key string) (int64, error) {
	c, cancel := t.bound(ctx)
	defer cancel()
	return t.inner.LLen(c, key)
}

func (t *timeoutStore) ScanPrefix(ctx context.Context, prefix string) ([]string, error) {
	c, cancel := t.bound(ctx)
	defer cancel()
	return t.inner.ScanPrefix(c, prefix)
}

func (t *timeoutStore) Del(ctx context.Context, keys ...string) error {
	c, cancel := t.bound(ctx)
	defer cancel()
	return t.inner.Del(c, keys...)
}

func (t *timeoutStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	c, cancel := t.bound(ctx)
	defer cancel()
	return t.inner.HSet(c, key, fields)
}

func (t *timeoutStore) HSetNX(ctx context.Context, key, field, value string) (bool, error) {
	c, cancel := t.bound(ctx)
	defer cancel()
	return t.inner.HSetNX(c, key, field, value)
}

func (t *timeoutStore) HGet(ctx context.Context, key, field string) (string, bool, error) {
	c, cancel := t.bound(ctx)
	defer cancel()
	return t.inner.HGet(c, key, field)
}

func (t *timeoutStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	c, cancel := t.bound(ctx)
	defer cancel()
	return t.inner.HGetAll(c, key)
}

func (t *timeoutStore) HDel(ctx context.Context, key string, fields ...string) error {
	c, cancel := t.bound(ctx)
	defer cancel()
	return t.inner.HDel(c, key, fields...)
}

func (t *timeoutStore) SetBitsPipelined(ctx context.Context, key string, offsets []int64) error {
	c, cancel := t.bound(ctx)
	defer cancel()
	return t.inner.SetBitsPipelined(c, key, offsets)
}

func (t *timeoutStore) GetBitsPipelined(ctx context.Context, key string, offsets []int64) ([]bool, error) {
	c, cancel := t.bound(ctx)
	defer cancel()
	return t.inner.GetBitsPipelined(c, key, offsets)
}

func (t *timeoutStore) Ping(ctx context.Context) error {
	c, cancel := t.bound(ctx)
	defer cancel()
	return t.inner.Ping(c)
}

func (t *timeoutStore) Close() error {
	return t.inner.Close()
}

var _ Store = (*timeoutStore)(nil)
