package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ExtractText flattens a content node down to its visible text, collapsing
// the whitespace goquery's Text() leaves between block elements.
func ExtractText(node *html.Node) string {
	if node == nil {
		return ""
	}
	raw := goquery.NewDocumentFromNode(node).Text()
	fields := strings.Fields(raw)
	return strings.Join(fields, " ")
}
