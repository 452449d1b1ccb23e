package news

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading_journal/models"
)

var (
	windowFrom = time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	windowTo   = time.Date(2024, 9, 11, 0, 0, 0, 0, time.UTC)
)

func TestScoreSymbolMentionWins(t *testing.T) {
	base := models.NewsItem{Title: "Dollar slides before payrolls", Time: windowFrom.Add(48 * time.Hour)}
	mentioned := base
	mentioned.Title = "EURUSD jumps as dollar slides before payrolls"

	kw := []string{"dollar"}
	assert.Greater(t, Score(mentioned, "EURUSD", kw, windowFrom, windowTo), Score(base, "EURUSD", kw, windowFrom, windowTo))
	assert.InDelta(t, 3.0, Score(mentioned, "EURUSD", kw, windowFrom, windowTo)-Score(base, "EURUSD", kw, windowFrom, windowTo), 1e-9)
}

func TestScoreKeywordHitsCapped(t *testing.T) {
	item := models.NewsItem{
		Title:       "inflation cpi gdp ecb forex recession currency",
		Description: "",
		Time:        windowFrom,
	}
	kw := []string{"inflation", "CPI", "GDP", "ECB", "forex", "recession", "currency"}
	assert.Equal(t, 5.0, Score(item, "", kw, windowFrom, windowTo))
}

func TestScoreRecencyClamped(t *testing.T) {
	before := models.NewsItem{Title: "x", Time: windowFrom.Add(-time.Hour)}
	after := models.NewsItem{Title: "x", Time: windowTo.Add(time.Hour)}
	middle := models.NewsItem{Title: "x", Time: windowFrom.Add(5 * 24 * time.Hour)}

	assert.Equal(t, 0.0, Score(before, "", nil, windowFrom, windowTo))
	assert.Equal(t, 2.0, Score(after, "", nil, windowFrom, windowTo))
	assert.InDelta(t, 1.0, Score(middle, "", nil, windowFrom, windowTo), 1e-9)
	assert.Equal(t, 0.0, Score(middle, "", nil, windowTo, windowFrom))
}

func TestRankOrdersAndTruncates(t *testing.T) {
	items := []models.NewsItem{
		{URL: "a", Title: "plain", Time: windowFrom},
		{URL: "b", Title: "EURUSD rallies", Time: windowFrom},
		{URL: "c", Title: "plain", Time: windowFrom},
		{URL: "d", Title: "EURUSD rallies", Time: windowFrom},
	}
	ranked := Rank(items, "EURUSD", nil, windowFrom, windowTo, 3)
	require.Len(t, ranked, 3)
	assert.Equal(t, "b", ranked[0].URL)
	assert.Equal(t, "d", ranked[1].URL)
	assert.Equal(t, 3.0, ranked[0].Score)
	assert.Equal(t, 0.0, items[0].Score)
}

func TestRankTieBreaksByPublishTime(t *testing.T) {
	from := windowFrom
	to := windowFrom
	items := []models.NewsItem{
		{URL: "old", Title: "x", Time: windowFrom.Add(time.Hour)},
		{URL: "new", Title: "x", Time: windowFrom.Add(2 * time.Hour)},
	}
	ranked := Rank(items, "", nil, from, to, 0)
	assert.Equal(t, "new", ranked[0].URL)
}

func TestDedupeByURL(t *testing.T) {
	out := dedupeByURL([]models.NewsItem{{URL: "a", Title: "1"}, {URL: "a", Title: "2"}, {URL: ""}, {URL: "b"}})
	require.Len(t, out, 2)
	assert.Equal(t, "1", out[0].Title)
}

func TestKeywordPool(t *testing.T) {
	pool := KeywordPool([]string{"forex", "  ", "Gold"})
	assert.Len(t, pool, MaxKeywords)
	assert.Equal(t, "forex", pool[0])
	assert.NotContains(t, pool, "Gold")

	assert.Equal(t, `"a" OR "b c"`, keywordQuery([]string{"a", "b c"}))
	assert.Equal(t, keywordSignature([]string{"B", "a"}), keywordSignature([]string{"A", "b"}))
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Euro gains on ECB", cleanText("<p>Euro <b>gains</b>\n on ECB</p>"))
	assert.Equal(t, "plain text", cleanText("  plain   text "))
	assert.Equal(t, "A & B", cleanText("A &amp; B"))
}
