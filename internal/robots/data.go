package robots

import (
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Permission modeling

type pathRule struct {
	prefix  string
	pattern *regexp.Regexp
}

type ruleSet struct {
	host string

	// The user-agent these rules apply to (resolved, not raw)
	userAgent string

	// Path-based rules, evaluated in order of precedence
	allowRules    []pathRule
	disallowRules []pathRule

	// Optional crawl delay from robots.txt
	crawlDelay *time.Duration

	// Metadata / observability
	fetchedAt time.Time
	sourceURL string

	// matchedGroup indicates if a user-agent group was matched in robots.txt
	// This is false when no group matches (not even wildcard *)
	matchedGroup bool

	// hasGroups indicates if the robots.txt file had any user-agent groups at all
	// This is false when the response had no groups (e.g., 404 or empty file)
	hasGroups bool
}

type DecisionReason string

const (
	AllowedByRobots     DecisionReason = "allowed_by_robots"
	DisallowedByRobots  DecisionReason = "disallowed_by_robots"
	UserAgentNotMatched DecisionReason = "user_agent_not_matched"
	EmptyRuleSet        DecisionReason = "empty_rule_set"
	NoMatchingRules     DecisionReason = "no_matching_rules"
)

type Decision struct {
	Url url.URL

	Allowed bool

	// Why this decision was made (for logging/debugging)
	Reason DecisionReason

	// Optional delay override (robots crawl-delay); zero means unset
	CrawlDelay time.Duration
}

// matches reports whether path satisfies this rule's pattern.
func (p pathRule) matches(path string) bool {
	if p.pattern == nil {
		return false
	}
	return p.pattern.MatchString(path)
}

// specificity approximates robots.txt rule precedence: the longest
// matching pattern wins, per the de-facto Allow/Disallow matching rule.
func (p pathRule) specificity() int {
	return len(p.prefix)
}

// compilePattern turns a robots.txt path pattern (which may use "*" as a
// wildcard and a trailing "$" as an end anchor) into an anchored regexp.
func compilePattern(raw string) *regexp.Regexp {
	body := raw
	endAnchor := false
	if len(body) > 0 && body[len(body)-1] == '$' {
		endAnchor = true
		body = body[:len(body)-1]
	}

	var sb strings.Builder
	sb.WriteString("^")
	for _, r := range body {
		if r == '*' {
			sb.WriteString(".*")
		} else {
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	if endAnchor {
		sb.WriteString("$")
	}

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return regexp.MustCompile(`^\x00$`)
	}
	return re
}
