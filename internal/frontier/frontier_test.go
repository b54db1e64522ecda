package frontier

import (
	"context"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohmanhakim/polite-crawler/internal/politeness"
	"github.com/rohmanhakim/polite-crawler/internal/robots"
	"github.com/rohmanhakim/polite-crawler/internal/seenfilter"
	"github.com/rohmanhakim/polite-crawler/internal/store"
	"github.com/rohmanhakim/polite-crawler/pkg/failure"
)

// allowAllRobots never fetches over the network; it allows every URL
// except those whose host is listed in disallowedHosts.
type allowAllRobots struct {
	disallowedHosts map[string]bool
}

func (a *allowAllRobots) Decide(u url.URL) (robots.Decision, failure.ClassifiedError) {
	allowed := !a.disallowedHosts[u.Hostname()]
	return robots.Decision{Url: u, Allowed: allowed}, nil
}

func newTestFrontier(t *testing.T, now func() time.Time, disallowed ...string) (*Frontier, store.Store) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := store.NewRedisStoreFromClient(client)
	filter := seenfilter.New(s, 10_000, 0.001)
	gate := politeness.NewGate(s, politeness.WithClock(now))

	blocked := make(map[string]bool, len(disallowed))
	for _, h := range disallowed {
		blocked[h] = true
	}
	robot := &allowAllRobots{disallowedHosts: blocked}

	return New(s, filter, gate, robot, nil, 4), s
}

func TestFrontier_AddUrlsBatch_FiltersAndWrites(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFrontier(t, time.Now)

	urls := []string{
		"https://example.com/a",
		"https://example.com/b",
		"https://example.com/logo.png",    // non-text, dropped
		"not a url \x00",                  // unparseable, dropped
		"https://example.com/" + repeat("x", 2100), // too long, dropped
	}

	n, err := f.AddURLsBatch(ctx, urls, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestFrontier_AddUrlsBatch_DeduplicatesWithinBatch(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFrontier(t, time.Now)

	urls := []string{
		"https://example.com/a",
		"https://example.com/a",
		"https://example.com/a",
	}

	n, err := f.AddURLsBatch(ctx, urls, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFrontier_AddUrlsBatch_RobotsDisallowDrops(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFrontier(t, time.Now, "blocked.com")

	n, err := f.AddURLsBatch(ctx, []string{"https://blocked.com/a"}, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestFrontier_GetNextURL_RoundTrip(t *testing.T) {
	ctx := context.Background()
	current := time.Unix(1_000_000, 0)
	clock := func() time.Time { return current }
	f, _ := newTestFrontier(t, clock)

	_, err := f.AddURLsBatch(ctx, []string{"https://example.com/a", "https://example.com/b"}, 0)
	require.NoError(t, err)

	shard := f.ShardFor("example.com")

	popped, err := f.GetNextURL(ctx, shard)
	require.NoError(t, err)
	require.NotNil(t, popped)
	assert.Equal(t, "example.com", popped.Domain)
	assert.Equal(t, 0, popped.Depth)

	popped2, err := f.GetNextURL(ctx, shard)
	require.NoError(t, err)
	assert.Nil(t, popped2, "domain must still be in its politeness cooldown window")
}

func TestFrontier_GetNextURL_EmptyShardReturnsNil(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFrontier(t, time.Now)

	popped, err := f.GetNextURL(ctx, 0)
	require.NoError(t, err)
	assert.Nil(t, popped)
}

func TestFrontier_GetNextURL_ReQueuesNonEmptyDomain(t *testing.T) {
	ctx := context.Background()
	current := time.Unix(2_000_000, 0)
	clock := func() time.Time { return current }
	f, s := newTestFrontier(t, clock)

	_, err := f.AddURLsBatch(ctx, []string{"https://example.com/a", "https://example.com/b"}, 0)
	require.NoError(t, err)

	shard := f.ShardFor("example.com")
	_, err = f.GetNextURL(ctx, shard)
	require.NoError(t, err)

	n, err := s.LLen(ctx, "domains:queue:"+strconv.FormatInt(shard, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "domain must be re-appended because its frontier list still has one URL left")
}

func TestFrontier_CountAndIsEmpty(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFrontier(t, time.Now)

	empty, err := f.IsEmpty(ctx)
	require.NoError(t, err)
	assert.True(t, empty)

	_, err = f.AddURLsBatch(ctx, []string{"https://example.com/a"}, 0)
	require.NoError(t, err)

	count, err := f.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	empty, err = f.IsEmpty(ctx)
	require.NoError(t, err)
	assert.False(t, empty)
}

func repeat(s string, n int) string {
	out := make([]byte, 0, n*len(s))
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}
