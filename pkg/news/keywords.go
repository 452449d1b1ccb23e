package news

import (
	"fmt"
	"sort"
	"strings"
)

// MaxKeywords upper bound of the OR query pool
const MaxKeywords = 12

// defaultKeywords macro and FX terms that move currency pairs
var defaultKeywords = []string{
	"forex",
	"central bank",
	"interest rate",
	"inflation",
	"Federal Reserve",
	"ECB",
	"CPI",
	"nonfarm payrolls",
	"GDP",
	"recession",
	"currency",
	"bond yields",
}

// KeywordPool merges the curated list with extra terms, case-insensitively
// deduplicated and capped at MaxKeywords.
func KeywordPool(extra []string) []string {
	seen := map[string]bool{}
	var pool []string
	for _, list := range [][]string{defaultKeywords, extra} {
		for _, kw := range list {
			kw = strings.TrimSpace(kw)
			lower := strings.ToLower(kw)
			if kw == "" || seen[lower] {
				continue
			}
			seen[lower] = true
			pool = append(pool, kw)
		}
	}
	if len(pool) > MaxKeywords {
		pool = pool[:MaxKeywords]
	}
	return pool
}

// keywordQuery `"a" OR "b" ...`
func keywordQuery(keywords []string) string {
	quoted := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		quoted = append(quoted, fmt.Sprintf("%q", kw))
	}
	return strings.Join(quoted, " OR ")
}

// keywordSignature stable cache fragment for a keyword set
func keywordSignature(keywords []string) string {
	sorted := make([]string, len(keywords))
	for i, kw := range keywords {
		sorted[i] = strings.ToLower(kw)
	}
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
