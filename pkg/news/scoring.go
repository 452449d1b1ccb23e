package news

import (
	"sort"
	"strings"
	"time"

	"trading_journal/models"
)

const (
	symbolMentionScore = 3.0
	maxKeywordHits     = 5
	recencyWeight      = 2.0
)

// Score relevance of item for symbol within [from, to].
// +3 symbol mention, +1 per distinct keyword (max 5), up to +2 for recency.
func Score(item models.NewsItem, symbol string, keywords []string, from, to time.Time) float64 {
	text := strings.ToLower(item.Title + " " + item.Description)

	var score float64
	if symbol != "" && strings.Contains(text, strings.ToLower(symbol)) {
		score += symbolMentionScore
	}

	hits := 0
	for _, kw := range keywords {
		if hits == maxKeywordHits {
			break
		}
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			hits++
		}
	}
	score += float64(hits)

	if span := to.Sub(from); span > 0 {
		frac := float64(item.Time.Sub(from)) / float64(span)
		if frac < 0 {
			frac = 0
		}
		if frac > 1 {
			frac = 1
		}
		score += recencyWeight * frac
	}
	return score
}

// Rank scores, sorts by score then publish time (both descending) and truncates to limit.
func Rank(items []models.NewsItem, symbol string, keywords []string, from, to time.Time, limit int) []models.NewsItem {
	ranked := make([]models.NewsItem, len(items))
	copy(ranked, items)
	for i := range ranked {
		ranked[i].Score = Score(ranked[i], symbol, keywords, from, to)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Time.After(ranked[j].Time)
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// dedupeByURL keeps the first item per URL; items without URL are dropped.
func dedupeByURL(items []models.NewsItem) []models.NewsItem {
	seen := make(map[string]bool, len(items))
	out := make([]models.NewsItem, 0, len(items))
	for _, item := range items {
		if item.URL == "" || seen[item.URL] {
			continue
		}
		seen[item.URL] = true
		out = append(out, item)
	}
	return out
}
