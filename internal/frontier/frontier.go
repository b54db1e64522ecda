package frontier

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/rohmanhakim/polite-crawler/internal/metadata"
	"github.com/rohmanhakim/polite-crawler/internal/politeness"
	"github.com/rohmanhakim/polite-crawler/internal/robots"
	"github.com/rohmanhakim/polite-crawler/internal/seenfilter"
	"github.com/rohmanhakim/polite-crawler/internal/store"
	"github.com/rohmanhakim/polite-crawler/pkg/failure"
	"github.com/rohmanhakim/polite-crawler/pkg/urlutil"
)

// MaxURLLength bounds every URL admitted to a frontier list.
const MaxURLLength = 2000

// robotsChecker is the narrow slice of the Robots Cache (C3) the
// Frontier depends on. robots.CachedRobot satisfies it; tests supply a
// fake that skips real HTTP fetches.
type robotsChecker interface {
	Decide(u url.URL) (robots.Decision, failure.ClassifiedError)
}

/*
Frontier is the component (C5) that owns every per-domain URL list and
shard ready-queue. It is the only writer of frontier:<domain> and
domains:queue:<shard> keys; Workers only call its two hot-path
operations, AddURLsBatch and GetNextURL.

A domain is allowed to appear more than once in a shard queue at a
given moment — invariant 3.3.3 only requires it appear at least once
while its frontier list is non-empty, so an extra re-push is harmless
and cheaper than tracking queue membership separately.
*/
type Frontier struct {
	store        store.Store
	filter       *seenfilter.Filter
	gate         *politeness.Gate
	robot        robotsChecker
	metadataSink metadata.MetadataSink
	shardCount   int64
}

func New(s store.Store, filter *seenfilter.Filter, gate *politeness.Gate, robot robotsChecker, metadataSink metadata.MetadataSink, shardCount int64) *Frontier {
	if shardCount < 1 {
		shardCount = 1
	}
	return &Frontier{
		store:        s,
		filter:       filter,
		gate:         gate,
		robot:        robot,
		metadataSink: metadataSink,
		shardCount:   shardCount,
	}
}

func frontierKey(domain string) string {
	return "frontier:" + domain
}

func shardQueueKey(shard int64) string {
	return "domains:queue:" + strconv.FormatInt(shard, 10)
}

func domainKey(domain string) string {
	return "domain:" + domain
}

// ShardFor computes the stable shard a domain is owned by.
func (f *Frontier) ShardFor(domain string) int64 {
	return int64(xxhash.Sum64String(domain) % uint64(f.shardCount))
}

// PoppedURL is what GetNextURL hands back to a Worker.
type PoppedURL struct {
	URL    string
	Domain string
	Depth  int
}

// AddURLsBatch pre-filters, bloom-tests, robots-checks, and groups raw
// URL strings by domain, then writes every surviving URL into its
// domain's frontier list and re-queues every touched domain. It returns
// the count of URLs actually written.
func (f *Frontier) AddURLsBatch(ctx context.Context, rawURLs []string, depth int) (int, error) {
	if len(rawURLs) == 0 {
		return 0, nil
	}

	candidates := make([]string, 0, len(rawURLs))
	parsedByRaw := make(map[string]url.URL, len(rawURLs))
	for _, raw := range rawURLs {
		if len(raw) > MaxURLLength {
			continue
		}
		parsed, err := url.Parse(raw)
		if err != nil {
			continue
		}
		if urlutil.IsLikelyNonTextURL(parsed.Path) {
			continue
		}
		candidates = append(candidates, raw)
		parsedByRaw[raw] = *parsed
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	present, err := f.filter.ContainsBatch(ctx, candidates)
	if err != nil {
		return 0, err
	}

	type kept struct {
		raw    string
		domain string
	}
	keptURLs := make([]kept, 0, len(candidates))
	seenInBatch := make(map[string]struct{}, len(candidates))
	for i, raw := range candidates {
		if present[i] {
			continue
		}
		if _, dup := seenInBatch[raw]; dup {
			continue
		}

		parsed := parsedByRaw[raw]
		decision, decErr := f.robot.Decide(parsed)
		if decErr != nil || !decision.Allowed {
			continue
		}

		domain, ok := urlutil.ExtractRegistrableDomain(parsed.Hostname())
		if !ok {
			continue
		}

		seenInBatch[raw] = struct{}{}
		keptURLs = append(keptURLs, kept{raw: raw, domain: domain})
	}
	if len(keptURLs) == 0 {
		return 0, nil
	}

	addedURLs := make([]string, 0, len(keptURLs))
	domainsTouched := make(map[string]struct{}, len(keptURLs))
	for _, k := range keptURLs {
		entry := k.raw + "|" + strconv.Itoa(depth)
		if err := f.store.LPush(ctx, frontierKey(k.domain), entry); err != nil {
			return 0, err
		}
		addedURLs = append(addedURLs, k.raw)
		domainsTouched[k.domain] = struct{}{}
	}

	if err := f.filter.AddBatch(ctx, addedURLs); err != nil {
		return 0, err
	}

	for domain := range domainsTouched {
		shard := f.ShardFor(domain)
		if err := f.store.RPush(ctx, shardQueueKey(shard), domain); err != nil {
			return 0, err
		}
		if _, err := f.store.HSetNX(ctx, domainKey(domain), "is_seeded", "0"); err != nil {
			return 0, err
		}
	}

	return len(addedURLs), nil
}

// GetNextURL pops the next eligible URL for shardID, or (nil, nil) if
// none is currently available. It performs every re-check (robots,
// politeness, non-text extension) required by §4.5.3 before returning.
func (f *Frontier) GetNextURL(ctx context.Context, shardID int64) (*PoppedURL, error) {
	domain, ok, err := f.store.LPop(ctx, shardQueueKey(shardID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	canFetch, err := f.gate.CanFetchDomainNow(ctx, domain)
	if err != nil {
		return nil, err
	}
	if !canFetch {
		if err := f.store.RPush(ctx, shardQueueKey(shardID), domain); err != nil {
			return nil, err
		}
		return nil, nil
	}

	urlData, ok, err := f.store.RPop(ctx, frontierKey(domain))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	raw, depth, ok := parseEntry(urlData)
	if !ok {
		f.logDrop(domain, "malformed frontier entry", urlData)
		return nil, nil
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		f.logDrop(domain, "unparseable URL", raw)
		return nil, nil
	}

	if urlutil.IsLikelyNonTextURL(parsed.Path) {
		f.logDrop(domain, "non-text URL", raw)
		return nil, nil
	}

	decision, decErr := f.robot.Decide(*parsed)
	if decErr != nil || !decision.Allowed {
		f.logDrop(domain, "disallowed by robots on re-check", raw)
		return nil, nil
	}

	if err := f.gate.RecordAttempt(ctx, domain, decision.CrawlDelay); err != nil {
		return nil, err
	}

	if err := f.store.RPush(ctx, shardQueueKey(shardID), domain); err != nil {
		return nil, err
	}

	return &PoppedURL{URL: raw, Domain: domain, Depth: depth}, nil
}

func (f *Frontier) logDrop(domain, reason, detail string) {
	if f.metadataSink == nil {
		return
	}
	f.metadataSink.RecordError(
		time.Now(),
		"frontier",
		"GetNextURL",
		metadata.CauseInvariantViolation,
		reason,
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrHost, domain),
			metadata.NewAttr(metadata.AttrMessage, detail),
		},
	)
}

func parseEntry(raw string) (rawURL string, depth int, ok bool) {
	idx := strings.LastIndex(raw, "|")
	if idx < 0 {
		return "", 0, false
	}
	d, err := strconv.Atoi(raw[idx+1:])
	if err != nil {
		return "", 0, false
	}
	return raw[:idx], d, true
}

// Count returns the approximate sum of every domain's frontier list
// length. It is intended for health reporting, not hot-path decisions.
func (f *Frontier) Count(ctx context.Context) (int64, error) {
	keys, err := f.store.ScanPrefix(ctx, "frontier:")
	if err != nil {
		return 0, err
	}
	var total int64
	for _, key := range keys {
		n, err := f.store.LLen(ctx, key)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// IsEmpty reports whether every frontier list is currently empty.
func (f *Frontier) IsEmpty(ctx context.Context) (bool, error) {
	count, err := f.Count(ctx)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}
