package seenfilter

import (
	"context"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/rohmanhakim/polite-crawler/internal/store"
)

const bloomKey = "seen:bloom"

/*
Filter is the Seen-Filter (C2): an approximate-membership test over every
URL ever enqueued. It is a counting-free bloom filter whose bit array
lives in the shared store under bloomKey, sized once at construction for
a target capacity and false-positive rate.

Bit positions are derived from two independent 64-bit hashes of the URL
via Kirsch-Mitzenmacher double hashing (g_i(x) = h1(x) + i*h2(x)), which
avoids running k independent hash functions while keeping the expected
FPR within the same bound as k "real" hashes.

A Filter never produces a false negative once an Add's pipeline has
completed: Contains after a completed Add always returns true for that
URL, up to the bloom's inherent false-positive rate in the other
direction.
*/
type Filter struct {
	store     store.Store
	bits      uint64
	hashCount int
}

// New sizes a filter for capacity expected items at target false-positive
// rate fpr, using the standard optimal-bit-array and hash-count formulas.
func New(s store.Store, capacity int64, fpr float64) *Filter {
	bits := optimalBits(capacity, fpr)
	k := optimalHashCount(bits, capacity)
	return &Filter{store: s, bits: bits, hashCount: k}
}

func optimalBits(capacity int64, fpr float64) uint64 {
	if capacity <= 0 {
		capacity = 1
	}
	if fpr <= 0 || fpr >= 1 {
		fpr = 0.001
	}
	m := -float64(capacity) * math.Log(fpr) / (math.Ln2 * math.Ln2)
	return uint64(math.Ceil(m))
}

func optimalHashCount(bits uint64, capacity int64) int {
	if capacity <= 0 {
		return 1
	}
	k := int(math.Round(float64(bits) / float64(capacity) * math.Ln2))
	if k < 1 {
		k = 1
	}
	return k
}

func (f *Filter) offsets(rawURL string) []int64 {
	h1 := xxhash.Sum64String(rawURL)
	h2 := xxhash.Sum64String(rawURL + "\x00salt")
	offsets := make([]int64, f.hashCount)
	for i := 0; i < f.hashCount; i++ {
		combined := h1 + uint64(i)*h2
		offsets[i] = int64(combined % f.bits)
	}
	return offsets
}

// Contains reports whether rawURL has (probably) been added before. A
// false result is always correct; a true result may be a false positive.
func (f *Filter) Contains(ctx context.Context, rawURL string) (bool, error) {
	bits, err := f.store.GetBitsPipelined(ctx, bloomKey, f.offsets(rawURL))
	if err != nil {
		return false, err
	}
	for _, b := range bits {
		if !b {
			return false, nil
		}
	}
	return true, nil
}

// ContainsBatch evaluates Contains for every URL in a single pipelined
// round-trip, preserving input order in the result.
func (f *Filter) ContainsBatch(ctx context.Context, rawURLs []string) ([]bool, error) {
	allOffsets := make([]int64, 0, len(rawURLs)*f.hashCount)
	spans := make([][2]int, len(rawURLs))
	for i, u := range rawURLs {
		start := len(allOffsets)
		allOffsets = append(allOffsets, f.offsets(u)...)
		spans[i] = [2]int{start, len(allOffsets)}
	}
	bits, err := f.store.GetBitsPipelined(ctx, bloomKey, allOffsets)
	if err != nil {
		return nil, err
	}
	result := make([]bool, len(rawURLs))
	for i, span := range spans {
		present := true
		for _, b := range bits[span[0]:span[1]] {
			if !b {
				present = false
				break
			}
		}
		result[i] = present
	}
	return result, nil
}

// Add marks rawURL as seen.
func (f *Filter) Add(ctx context.Context, rawURL string) error {
	return f.store.SetBitsPipelined(ctx, bloomKey, f.offsets(rawURL))
}

// AddBatch marks every URL in rawURLs as seen in one pipelined round-trip.
func (f *Filter) AddBatch(ctx context.Context, rawURLs []string) error {
	allOffsets := make([]int64, 0, len(rawURLs)*f.hashCount)
	for _, u := range rawURLs {
		allOffsets = append(allOffsets, f.offsets(u)...)
	}
	return f.store.SetBitsPipelined(ctx, bloomKey, allOffsets)
}
