package extractor

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// DiscoverLinks extracts every hyperlink reference from a parsed document,
// exactly as authored (no resolution against a base URL, no scheme
// filtering beyond excluding obviously non-fetchable schemes). Callers
// resolve and filter the result via pkg/urlutil.
//
// It operates on the whole document, not ContentNode, since navigation
// chrome is itself a source of crawlable links even though it is
// excluded from the extracted text content.
func DiscoverLinks(doc *html.Node) []url.URL {
	if doc == nil {
		return nil
	}

	gqDoc := goquery.NewDocumentFromNode(doc)
	seen := make(map[string]bool)
	var links []url.URL

	gqDoc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}

		parsed, err := url.Parse(href)
		if err != nil {
			return
		}
		if parsed.Scheme != "" && parsed.Scheme != "http" && parsed.Scheme != "https" {
			return
		}

		if seen[href] {
			return
		}
		seen[href] = true
		links = append(links, *parsed)
	})

	return links
}
