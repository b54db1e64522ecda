package robots

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rohmanhakim/polite-crawler/internal/metadata"
	"github.com/rohmanhakim/polite-crawler/internal/robots/cache"
	"github.com/rohmanhakim/polite-crawler/pkg/failure"
)

/*
Responsibilities

- Fetch robots.txt per host
- Cache rules for the configured TTL, refetching on expiry
- Enforce allow/disallow rules before enqueue

Robots checks occur before a URL enters the frontier. A successful fetch
is cached for SuccessTTL; a failed fetch (5xx, network, too-many-requests)
is cached as an empty, allow-all ruleset for ErrorTTL so a misbehaving host isn't
hammered every time a URL from it is considered.
*/

const (
	defaultSuccessTTL = 24 * time.Hour
	defaultErrorTTL   = 1 * time.Hour
)

// CachedRobot is the Robots Cache component (C3): it fetches, parses,
// caches, and evaluates robots.txt rules on a per-host basis.
//
// CachedRobot is a thin handle around shared state reached through a
// pointer, so copies (as returned by value from NewCachedRobot) still
// observe the same cache.
type CachedRobot struct {
	state *robotState
}

type robotState struct {
	mu sync.RWMutex

	userAgent string
	fetcher   *RobotsFetcher
	entries   map[string]*robotsCacheEntry

	metadataSink metadata.MetadataSink
	successTTL   time.Duration
	errorTTL     time.Duration
}

type robotsCacheEntry struct {
	fetchedAt time.Time
	ttl       time.Duration

	ruleSet ruleSet
}

func (e *robotsCacheEntry) expired(now time.Time) bool {
	return now.Sub(e.fetchedAt) >= e.ttl
}

// NewCachedRobot constructs a CachedRobot with no fetcher configured yet;
// call Init or InitWithCache before Decide.
func NewCachedRobot(metadataSink metadata.MetadataSink) CachedRobot {
	return CachedRobot{
		state: &robotState{
			entries:      make(map[string]*robotsCacheEntry),
			metadataSink: metadataSink,
			successTTL:   defaultSuccessTTL,
			errorTTL:     defaultErrorTTL,
		},
	}
}

// Init wires a default, session-local robots.txt fetch cache.
func (r CachedRobot) Init(userAgent string) {
	r.InitWithCache(userAgent, cache.NewMemoryCache())
}

// InitWithCache wires a caller-supplied fetch cache (e.g. a store-backed
// adapter shared across workers).
func (r CachedRobot) InitWithCache(userAgent string, fetchCache cache.Cache) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	r.state.userAgent = userAgent
	r.state.fetcher = NewRobotsFetcher(r.state.metadataSink, userAgent, fetchCache)
}

// InitWithTimeout wires a caller-supplied fetch cache and an HTTP
// client bounded by robotsFetchTimeout, per §6.5's
// robots_fetch_timeout_seconds.
func (r CachedRobot) InitWithTimeout(userAgent string, fetchCache cache.Cache, robotsFetchTimeout time.Duration) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	r.state.userAgent = userAgent
	r.state.fetcher = NewRobotsFetcherWithClient(
		r.state.metadataSink,
		userAgent,
		&http.Client{Timeout: robotsFetchTimeout},
		fetchCache,
	)
}

// SetTTL overrides the default success/error TTLs, per §6.5's
// robots_default_ttl_seconds / robots_error_ttl_seconds.
func (r CachedRobot) SetTTL(successTTL, errorTTL time.Duration) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	r.state.successTTL = successTTL
	r.state.errorTTL = errorTTL
}

// Decide evaluates whether a URL may be crawled under the cached (or
// freshly fetched) robots.txt rules for its host. Per §4.3/§7, a robots
// fetch failure (HTTP error, network error, parse error) is logged and
// cached as an empty, allow-all ruleset with a shortened TTL — it is
// never surfaced to the caller as an error. Decide's error return exists
// only for symmetry with the robotsChecker interface and is always nil.
func (r CachedRobot) Decide(u url.URL) (Decision, failure.ClassifiedError) {
	host := u.Hostname()
	scheme := u.Scheme
	if scheme == "" {
		scheme = "https"
	}

	rs := r.resolveRuleSet(scheme, host)

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}

	allowed, reason := evaluateRuleSet(rs, path)

	var delay time.Duration
	if cd := rs.CrawlDelay(); cd != nil {
		delay = *cd
	}

	return Decision{
		Url:        u,
		Allowed:    allowed,
		Reason:     reason,
		CrawlDelay: delay,
	}, nil
}

// resolveRuleSet returns the ruleSet to evaluate for host: the cached
// one if still fresh, otherwise the result of a fresh fetch. A fetch
// failure of any kind yields an empty (allow-all) ruleSet cached under
// errorTTL rather than an error — §4.3 step 5/6 and §7's "Robots fetch
// failure" row both require the failure to stay in-band.
func (r CachedRobot) resolveRuleSet(scheme, host string) ruleSet {
	now := time.Now()

	r.state.mu.RLock()
	entry, found := r.state.entries[host]
	r.state.mu.RUnlock()

	if found && !entry.expired(now) {
		return entry.ruleSet
	}

	result, fetchErr := r.state.fetcher.Fetch(context.Background(), scheme, host)
	if fetchErr != nil {
		r.state.metadataSink.RecordError(
			time.Now(),
			"robots",
			"CachedRobot.Decide",
			mapRobotsErrorToMetadataCause(fetchErr),
			fetchErr.Error(),
			[]metadata.Attribute{metadata.NewAttr(metadata.AttrHost, host)},
		)
		r.recordCacheResult(host, now, ruleSet{}, true)
		return ruleSet{}
	}

	rs := MapResponseToRuleSet(result.Response, r.state.userAgent, result.FetchedAt)
	r.recordCacheResult(host, now, rs, false)
	return rs
}

func (r CachedRobot) recordCacheResult(host string, now time.Time, rs ruleSet, isFetchFailure bool) {
	ttl := r.state.successTTL
	if isFetchFailure {
		ttl = r.state.errorTTL
	}

	entry := &robotsCacheEntry{
		fetchedAt: now,
		ttl:       ttl,
		ruleSet:   rs,
	}

	r.state.mu.Lock()
	r.state.entries[host] = entry
	r.state.mu.Unlock()
}

// evaluateRuleSet applies the longest-matching-pattern-wins rule used by
// the de-facto robots.txt Allow/Disallow matching algorithm.
func evaluateRuleSet(rs ruleSet, path string) (bool, DecisionReason) {
	if !rs.hasGroups {
		return true, EmptyRuleSet
	}
	if !rs.matchedGroup {
		return true, UserAgentNotMatched
	}

	bestSpecificity := -1
	allowed := true
	matchedAny := false

	for _, rule := range rs.disallowRules {
		if rule.matches(path) && rule.specificity() > bestSpecificity {
			bestSpecificity = rule.specificity()
			allowed = false
			matchedAny = true
		}
	}
	for _, rule := range rs.allowRules {
		if rule.matches(path) && rule.specificity() > bestSpecificity {
			bestSpecificity = rule.specificity()
			allowed = true
			matchedAny = true
		}
	}

	if !matchedAny {
		return true, NoMatchingRules
	}
	if allowed {
		return true, AllowedByRobots
	}
	return false, DisallowedByRobots
}
