package politeness

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/rohmanhakim/polite-crawler/internal/store"
)

const (
	fieldNextFetchTime = "next_fetch_time"
	fieldIsExcluded    = "is_excluded"

	// DefaultMinCrawlDelay is the floor applied when neither robots.txt nor
	// the operator configuration sets a larger delay.
	DefaultMinCrawlDelay = 70 * time.Second

	// DefaultJitterFraction is the fraction of the computed crawl delay
	// added as random jitter, so domains that start their first attempt at
	// the same wall-clock instant don't keep retrying in lockstep.
	DefaultJitterFraction = 0.1
)

func domainKey(domain string) string {
	return "domain:" + domain
}

/*
Gate is the Politeness Gate (C4): it owns next_fetch_time and is_excluded
on the shared per-domain record and is the only component that mutates
them. The Frontier consults CanFetchDomainNow before popping a URL for
a domain and calls RecordAttempt exactly once per popped URL, before
the Worker's fetch begins, on the Worker's behalf.

RecordAttempt is a single atomic store write; concurrent writers for the
same domain race harmlessly because next_fetch_time only ever moves
forward in wall-clock time and crawl delays are additive.

Alongside the store-backed delay, Gate keeps a per-domain
golang.org/x/time/rate.Limiter purely in-process: it catches bursts
within this one process (e.g. a domain momentarily handled by more than
one shard during a reshard) that a round trip to the store might not
observe yet, and contributes the random jitter term that keeps many
domains from converging on the exact same retry instant.
*/
type Gate struct {
	store           store.Store
	minCrawlDelay   time.Duration
	defaultCrawlDly time.Duration
	jitterFraction  float64
	now             func() time.Time

	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	rngMu sync.Mutex
	rng   *rand.Rand
}

type Option func(*Gate)

// WithMinCrawlDelay sets the operator-configured floor on per-domain delay.
func WithMinCrawlDelay(d time.Duration) Option {
	return func(g *Gate) { g.minCrawlDelay = d }
}

// WithJitterFraction overrides DefaultJitterFraction, the fraction of the
// computed crawl delay added as random jitter atop next_fetch_time.
func WithJitterFraction(f float64) Option {
	return func(g *Gate) { g.jitterFraction = f }
}

// WithClock overrides the wall clock, used by tests.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

func NewGate(s store.Store, opts ...Option) *Gate {
	g := &Gate{
		store:           s,
		minCrawlDelay:   0,
		defaultCrawlDly: DefaultMinCrawlDelay,
		jitterFraction:  DefaultJitterFraction,
		now:             time.Now,
		limiters:        make(map[string]*rate.Limiter),
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// localLimiter returns the in-process rate.Limiter for domain, creating
// it on first use and retuning its rate whenever the computed delay
// changes (robots.txt Crawl-delay can differ between fetches).
func (g *Gate) localLimiter(domain string, delay time.Duration) *rate.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()

	lim, ok := g.limiters[domain]
	if !ok {
		lim = rate.NewLimiter(rate.Every(delay), 1)
		g.limiters[domain] = lim
		return lim
	}
	if lim.Limit() != rate.Every(delay) {
		lim.SetLimit(rate.Every(delay))
	}
	return lim
}

// jitter returns a random duration in [0, jitterFraction*delay).
func (g *Gate) jitter(delay time.Duration) time.Duration {
	max := time.Duration(float64(delay) * g.jitterFraction)
	if max <= 0 {
		return 0
	}

	g.rngMu.Lock()
	defer g.rngMu.Unlock()
	return time.Duration(g.rng.Int63n(int64(max)))
}

// CanFetchDomainNow reports whether domain d may be fetched from right
// now: its next_fetch_time has passed and it is not on the exclusion
// list.
func (g *Gate) CanFetchDomainNow(ctx context.Context, domain string) (bool, error) {
	fields, err := g.store.HGetAll(ctx, domainKey(domain))
	if err != nil {
		return false, err
	}
	if fields[fieldIsExcluded] == "true" {
		return false, nil
	}
	nextFetch, ok := parseUnixSeconds(fields[fieldNextFetchTime])
	if !ok {
		return true, nil
	}
	return !g.now().Before(nextFetch), nil
}

// RecordAttempt advances next_fetch_time for domain by crawl_delay, the
// maximum of the robots.txt Crawl-delay directive (if any), the
// operator-configured floor, and DefaultMinCrawlDelay (or this process's
// own in-process rate reservation, when that is longer), plus a random
// jitter term.
func (g *Gate) RecordAttempt(ctx context.Context, domain string, robotsCrawlDelay time.Duration) error {
	delay := g.crawlDelay(robotsCrawlDelay)

	if localWait := g.localLimiter(domain, delay).Reserve().Delay(); localWait > delay {
		delay = localWait
	}

	next := g.now().Add(delay + g.jitter(delay))
	return g.store.HSet(ctx, domainKey(domain), map[string]string{
		fieldNextFetchTime: strconv.FormatInt(next.Unix(), 10),
	})
}

func (g *Gate) crawlDelay(robotsCrawlDelay time.Duration) time.Duration {
	delay := g.defaultCrawlDly
	if g.minCrawlDelay > delay {
		delay = g.minCrawlDelay
	}
	if robotsCrawlDelay > delay {
		delay = robotsCrawlDelay
	}
	return delay
}

// SetExcluded marks or clears a domain's manual exclusion.
func (g *Gate) SetExcluded(ctx context.Context, domain string, excluded bool) error {
	value := "false"
	if excluded {
		value = "true"
	}
	return g.store.HSet(ctx, domainKey(domain), map[string]string{fieldIsExcluded: value})
}

func parseUnixSeconds(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(secs, 0), true
}
