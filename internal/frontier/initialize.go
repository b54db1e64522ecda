package frontier

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/rohmanhakim/polite-crawler/pkg/urlutil"
)

const (
	crawlerMetaKey  = "crawler:meta"
	shardCountField = "shard_count"
)

/*
Initialize implements §4.5.4: it reconciles the stored shard count
against the operator-configured one (resharding if they disagree),
purges stale state on a fresh (non-resume) start, and loads seeds.

While resharding is underway no Worker may call GetNextURL, because
every domains:queue:* key is torn down and rebuilt; callers are
expected to run Initialize to completion before spawning Workers.
*/
func (f *Frontier) Initialize(ctx context.Context, resume bool, configuredShardCount int64, seeds []string, seedConcurrency int) (int, error) {
	if configuredShardCount < 1 {
		configuredShardCount = 1
	}

	stored, ok, err := f.store.HGet(ctx, crawlerMetaKey, shardCountField)
	if err != nil {
		return 0, err
	}

	var previousShardCount int64
	if ok {
		previousShardCount, err = strconv.ParseInt(stored, 10, 64)
		if err != nil {
			previousShardCount = configuredShardCount
		}
	} else {
		previousShardCount = configuredShardCount
	}

	if ok && previousShardCount != configuredShardCount {
		if err := f.reshard(ctx, previousShardCount, configuredShardCount); err != nil {
			return 0, err
		}
	}
	f.shardCount = configuredShardCount

	if err := f.store.HSet(ctx, crawlerMetaKey, map[string]string{
		shardCountField: strconv.FormatInt(configuredShardCount, 10),
	}); err != nil {
		return 0, err
	}

	if !resume {
		if err := f.purge(ctx); err != nil {
			return 0, err
		}
	}

	if len(seeds) == 0 {
		return 0, nil
	}

	return f.loadSeeds(ctx, seeds, seedConcurrency)
}

// reshard tears down every shard queue built under oldCount and
// rebuilds queue membership from scratch under newCount, using each
// non-empty frontier list as the source of truth for which domains are
// still live.
func (f *Frontier) reshard(ctx context.Context, oldCount, newCount int64) error {
	oldQueueKeys := make([]string, 0, oldCount)
	for i := int64(0); i < oldCount; i++ {
		oldQueueKeys = append(oldQueueKeys, shardQueueKey(i))
	}
	if len(oldQueueKeys) > 0 {
		if err := f.store.Del(ctx, oldQueueKeys...); err != nil {
			return err
		}
	}

	frontierKeys, err := f.store.ScanPrefix(ctx, "frontier:")
	if err != nil {
		return err
	}

	f.shardCount = newCount
	for _, key := range frontierKeys {
		domain := strings.TrimPrefix(key, "frontier:")
		n, err := f.store.LLen(ctx, key)
		if err != nil {
			return err
		}
		if n == 0 {
			continue
		}
		if err := f.store.RPush(ctx, shardQueueKey(f.ShardFor(domain)), domain); err != nil {
			return err
		}
	}
	return nil
}

// purge clears every frontier list, shard queue, and cached robots.txt
// field, used on a non-resuming start.
func (f *Frontier) purge(ctx context.Context) error {
	frontierKeys, err := f.store.ScanPrefix(ctx, "frontier:")
	if err != nil {
		return err
	}

	queueKeys := make([]string, 0, f.shardCount)
	for i := int64(0); i < f.shardCount; i++ {
		queueKeys = append(queueKeys, shardQueueKey(i))
	}

	toDelete := append(frontierKeys, queueKeys...)
	if len(toDelete) > 0 {
		if err := f.store.Del(ctx, toDelete...); err != nil {
			return err
		}
	}

	domainKeys, err := f.store.ScanPrefix(ctx, "domain:")
	if err != nil {
		return err
	}
	for _, dk := range domainKeys {
		if err := f.store.HDel(ctx, dk, "robots_txt", "robots_expires"); err != nil {
			return err
		}
	}
	return nil
}

// loadSeeds normalizes every seed domain, marks it seeded, pre-warms its
// robots.txt with bounded parallelism, then writes the seeds into the
// frontier at depth 0.
func (f *Frontier) loadSeeds(ctx context.Context, seeds []string, concurrency int) (int, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	domains := make(map[string]struct{})
	for _, raw := range seeds {
		parsed, err := url.Parse(raw)
		if err != nil {
			continue
		}
		if domain, ok := urlutil.ExtractRegistrableDomain(parsed.Hostname()); ok {
			domains[domain] = struct{}{}
		}
	}

	domainList := make([]string, 0, len(domains))
	for d := range domains {
		domainList = append(domainList, d)
	}

	f.prewarmRobots(domainList, concurrency)

	for _, d := range domainList {
		if err := f.store.HSet(ctx, domainKey(d), map[string]string{"is_seeded": "1"}); err != nil {
			return 0, err
		}
	}

	return f.AddURLsBatch(ctx, seeds, 0)
}

func (f *Frontier) prewarmRobots(domains []string, concurrency int) {
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, d := range domains {
		wg.Add(1)
		sem <- struct{}{}
		go func(domain string) {
			defer wg.Done()
			defer func() { <-sem }()
			_, _ = f.robot.Decide(url.URL{Scheme: "https", Host: domain, Path: "/"})
		}(d)
	}

	wg.Wait()
}
