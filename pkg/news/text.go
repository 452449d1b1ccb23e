package news

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// cleanText strips markup from provider snippets and collapses whitespace.
func cleanText(s string) string {
	if strings.ContainsAny(s, "<&") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	}
	return strings.Join(strings.Fields(s), " ")
}
