package llm

import (
	"regexp"
	"strings"
)

// Placeholders for sections that could not be recovered from free text.
const (
	PlaceholderRU = "Недостаточно данных для оценки."
	PlaceholderEN = "Not enough data to assess."
)

type section int

const (
	sectionSummary section = iota
	sectionMarket
	sectionTrade
	sectionPsychology
	sectionStrengths
	sectionWeaknesses
	sectionRecommendations
)

// heading keywords in match order
var sectionKeywords = []struct {
	section  section
	keywords []string
}{
	{sectionStrengths, []string{"сильн", "strength"}},
	{sectionWeaknesses, []string{"слаб", "ошибк", "weakness", "mistake"}},
	{sectionRecommendations, []string{"рекомендац", "совет", "recommend"}},
	{sectionPsychology, []string{"психолог", "psycholog"}},
	{sectionMarket, []string{"рынок", "рыноч", "market"}},
	{sectionTrade, []string{"сделк", "trade"}},
	{sectionSummary, []string{"итог", "резюме", "вывод", "summary", "conclusion"}},
}

var textBudgets = map[section]int{
	sectionSummary:    500,
	sectionMarket:     600,
	sectionTrade:      800,
	sectionPsychology: 400,
}

const (
	maxListItems   = 5
	maxItemChars   = 200
	maxHeadingRune = 40
	// "Label:" heads longer than this are prose, not headings
	maxHeadingWords = 3
)

var (
	bulletPrefix  = regexp.MustCompile(`^\s*(?:[-*•–]|\d+[.)])\s+`)
	dashBullet    = regexp.MustCompile(`^\s*[-*•–]\s+`)
	headingMarkup = regexp.MustCompile(`^[#*_\s]+|[*_\s]+$`)
)

// Coerce splits free text into an Insight by recognizing section headings.
// Every required field is non-empty in the result.
func Coerce(text, lang string) *Insight {
	placeholder := PlaceholderRU
	if NormalizeLang(lang) == langEnglish {
		placeholder = PlaceholderEN
	}

	sections := splitSections(text)

	insight := &Insight{
		Summary:         budget(joinLines(sections[sectionSummary]), textBudgets[sectionSummary]),
		MarketContext:   budget(joinLines(sections[sectionMarket]), textBudgets[sectionMarket]),
		TradeAnalysis:   budget(joinLines(sections[sectionTrade]), textBudgets[sectionTrade]),
		Psychology:      budget(joinLines(sections[sectionPsychology]), textBudgets[sectionPsychology]),
		Strengths:       listItems(sections[sectionStrengths]),
		Weaknesses:      listItems(sections[sectionWeaknesses]),
		Recommendations: listItems(sections[sectionRecommendations]),
	}

	if insight.Summary == "" {
		insight.Summary = budget(strings.Join(strings.Fields(text), " "), textBudgets[sectionSummary])
	}
	for _, field := range []*string{&insight.Summary, &insight.MarketContext, &insight.TradeAnalysis, &insight.Psychology} {
		if *field == "" {
			*field = placeholder
		}
	}
	for _, list := range []*[]string{&insight.Strengths, &insight.Weaknesses, &insight.Recommendations} {
		if len(*list) == 0 {
			*list = []string{placeholder}
		}
	}
	return insight
}

// splitSections lines before the first heading belong to the summary.
func splitSections(text string) map[section][]string {
	out := map[section][]string{}
	current := sectionSummary
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if sec, rest, ok := detectHeading(line); ok {
			current = sec
			if rest != "" {
				out[current] = append(out[current], rest)
			}
			continue
		}
		out[current] = append(out[current], line)
	}
	return out
}

// detectHeading recognizes "## Market", "**Рынок**", "Market:" and
// "1. Рынок: text" forms. Dash bullets are never headings unless marked up.
func detectHeading(line string) (section, string, bool) {
	head, rest := line, ""
	dashed := dashBullet.MatchString(line)
	markup := strings.HasPrefix(line, "#") || strings.HasPrefix(line, "**")
	labeled := false
	if i := strings.Index(line, ":"); i >= 0 && !dashed && len([]rune(line[:i])) <= maxHeadingRune {
		head, rest = line[:i], strings.TrimSpace(line[i+1:])
		labeled = true
	}
	head = headingMarkup.ReplaceAllString(head, "")
	head = strings.TrimSuffix(strings.TrimSpace(bulletPrefix.ReplaceAllString(head, "")), ":")
	if !(markup || labeled) || head == "" || len([]rune(head)) > maxHeadingRune || strings.ContainsAny(head, "0123456789") {
		return 0, "", false
	}
	if labeled && !markup && len(strings.Fields(head)) > maxHeadingWords {
		return 0, "", false
	}
	rest = strings.TrimSpace(strings.Trim(rest, "*_"))

	lower := strings.ToLower(head)
	for _, entry := range sectionKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.section, rest, true
			}
		}
	}
	return 0, "", false
}

func joinLines(lines []string) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		parts = append(parts, bulletPrefix.ReplaceAllString(l, ""))
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// listItems prefers bullet lines and falls back to every line.
func listItems(lines []string) []string {
	var bullets, plain []string
	for _, l := range lines {
		if bulletPrefix.MatchString(l) {
			bullets = append(bullets, strings.TrimSpace(bulletPrefix.ReplaceAllString(l, "")))
		} else {
			plain = append(plain, l)
		}
	}
	items := bullets
	if len(items) == 0 {
		items = plain
	}
	var out []string
	for _, it := range items {
		if it == "" {
			continue
		}
		out = append(out, budget(it, maxItemChars))
		if len(out) == maxListItems {
			break
		}
	}
	return out
}

// budget cuts s to max runes on a word boundary where possible.
func budget(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	cut := string(r[:max-1])
	if i := strings.LastIndex(cut, " "); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut) + "…"
}
