package store

import "context"

/*
Responsibilities

- Provide the shared KV store contract every other package (seenfilter,
  politeness, frontier, robots cache) is built on: atomic list ops, atomic
  hash ops, a bit-array primitive for the approximate-membership filter,
  and pipelining.
- No multi-key transactions or scripting are assumed or used; every
  invariant upstream is maintained by per-domain, per-shard partitioning
  rather than by transactional grouping.

This package never applies crawl semantics; it is a thin, typed wrapper
over the underlying store engine.
*/

// Store is the shared KV store contract (§6.1). Implementations must be
// safe for concurrent use by many callers.
type Store interface {
	// LPush pushes values onto the head of a list (RPOP drains from the tail).
	LPush(ctx context.Context, key string, values ...string) error
	// RPush pushes values onto the tail of a list.
	RPush(ctx context.Context, key string, values ...string) error
	// LPop pops from the head; ok is false if the list was empty.
	LPop(ctx context.Context, key string) (value string, ok bool, err error)
	// RPop pops from the tail; ok is false if the list was empty.
	RPop(ctx context.Context, key string) (value string, ok bool, err error)
	// LLen returns the approximate length of a list.
	LLen(ctx context.Context, key string) (int64, error)
	// ScanPrefix returns every key matching prefix+"*".
	ScanPrefix(ctx context.Context, prefix string) ([]string, error)
	// Del removes whole keys, used only by Frontier.Initialize's purge
	// step; the hot path never deletes keys outright.
	Del(ctx context.Context, keys ...string) error

	// HSet writes one or more hash fields.
	HSet(ctx context.Context, key string, fields map[string]string) error
	// HSetNX writes field only if it is absent; returns whether it wrote.
	HSetNX(ctx context.Context, key, field, value string) (bool, error)
	// HGet reads a single hash field; ok is false if absent.
	HGet(ctx context.Context, key, field string) (value string, ok bool, err error)
	// HGetAll reads every field of a hash.
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	// HDel removes fields from a hash.
	HDel(ctx context.Context, key string, fields ...string) error

	// SetBitsPipelined sets every listed bit offset in key in one round-trip.
	SetBitsPipelined(ctx context.Context, key string, offsets []int64) error
	// GetBitsPipelined reads every listed bit offset in key in one round-trip.
	GetBitsPipelined(ctx context.Context, key string, offsets []int64) ([]bool, error)

	// Ping verifies connectivity to the underlying store.
	Ping(ctx context.Context) error
	// Close releases any underlying connections.
	Close() error
}
