package urlutil

import "net/url"

// Resolve turns a possibly-relative href discovered in a document into an
// absolute URL relative to base. It returns ok=false for hrefs that fail
// to parse or that resolve to a non-HTTP(S) scheme (mailto:, javascript:,
// tel:, data:, etc.), which callers should silently discard.
func Resolve(base url.URL, href string) (url.URL, bool) {
	ref, err := url.Parse(href)
	if err != nil {
		return url.URL{}, false
	}

	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return url.URL{}, false
	}
	if resolved.Host == "" {
		return url.URL{}, false
	}

	return *resolved, true
}

// FilterByHost returns the subset of links whose host matches one of the
// allowed hosts (case-insensitive). An empty allowed set passes everything.
func FilterByHost(links []url.URL, allowed map[string]struct{}) []url.URL {
	if len(allowed) == 0 {
		return links
	}

	filtered := make([]url.URL, 0, len(links))
	for _, link := range links {
		if _, ok := allowed[lowerASCII(link.Hostname())]; ok {
			filtered = append(filtered, link)
		}
	}
	return filtered
}
