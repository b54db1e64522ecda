package urlutil

import (
	"net"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// ExtractRegistrableDomain returns the shortest label sequence one step
// below a public suffix (e.g. "example.co.uk" for "www.example.co.uk").
// It returns ("", false) for malformed hosts, bare IP addresses, and
// single-label hosts (e.g. "localhost"), matching C1's extract_domain
// contract.
func ExtractRegistrableDomain(host string) (string, bool) {
	host = strings.TrimSuffix(lowerASCII(host), ".")
	if host == "" {
		return "", false
	}

	if net.ParseIP(host) != nil {
		return "", false
	}

	punycoded, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", false
	}

	if !strings.Contains(punycoded, ".") {
		return "", false
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(punycoded)
	if err != nil {
		return "", false
	}

	return domain, true
}
