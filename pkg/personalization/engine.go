package personalization

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"trading_journal/pkg/llm"
	dbmodels "trading_journal/pkg/models"
	"trading_journal/pkg/utils"
)

// HistoryStore reads past analysis records.
type HistoryStore interface {
	RecentAnalysisResults(ctx context.Context, userID string, since time.Time, limit int) ([]dbmodels.AnalysisResult, error)
}

// direction keywords searched in raw historical text
var directionKeywords = map[string][]string{
	"long":  {"long", "лонг", "покупк"},
	"short": {"short", "шорт", "продаж"},
}

type storedInsight struct {
	Weaknesses      []string `json:"weaknesses"`
	Recommendations []string `json:"recommendations"`
}

type phraseWeight struct {
	phrase string
	weight float64
}

// Engine builds the personalization block of the prompt.
type Engine struct {
	store HistoryStore
	cfg   *Config
	now   func() time.Time
}

func NewEngine(store HistoryStore, cfg *Config) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Engine{store: store, cfg: cfg, now: time.Now}
}

// BuildContext weighted summary of recurring weaknesses for userID.
// ok is false when history carries no signal.
func (e *Engine) BuildContext(ctx context.Context, userID string, symbols, directions []string) (string, bool, error) {
	if e.store == nil {
		return "", false, nil
	}
	w := e.cfg.Weights
	since := e.now().Add(-time.Duration(w.WindowDays) * 24 * time.Hour)
	records, err := e.store.RecentAnalysisResults(ctx, userID, since, w.MaxRecords)
	if err != nil {
		return "", false, fmt.Errorf("load analysis history: %w", err)
	}

	bare := currentSymbols(symbols, w.MaxSymbols)
	global := map[string]float64{}
	perSymbol := map[string]map[string]float64{}

	for _, rec := range records {
		insight, ok := extractInsight(rec.Response)
		if !ok {
			continue
		}
		raw := string(rec.Response) + " " + string(rec.Metadata)
		upper := strings.ToUpper(raw)

		var matched []string
		for _, sym := range bare {
			if strings.Contains(upper, sym) {
				matched = append(matched, sym)
			}
		}

		weight := w.BaseV2
		if isV1(rec.PromptTag) {
			weight = w.BaseV1
		}
		if len(matched) > 0 {
			weight *= w.SymbolBoost
		}
		if directionEchoed(strings.ToLower(raw), directions) {
			weight *= w.DirectionBoost
		}

		add := func(phrase string, weight float64) {
			if strings.TrimSpace(phrase) == "" || isPlaceholder(phrase) {
				return
			}
			key := NormalizePhrase(phrase, e.cfg.Synonyms)
			global[key] += weight
			for _, sym := range matched {
				if perSymbol[sym] == nil {
					perSymbol[sym] = map[string]float64{}
				}
				perSymbol[sym][key] += weight
			}
		}
		for _, p := range insight.Weaknesses {
			add(p, weight)
		}
		for _, p := range insight.Recommendations {
			add(p, weight*w.RecommendationFactor)
		}
	}

	if len(global) == 0 {
		return "", false, nil
	}

	var lines []string
	for _, sym := range bare {
		top := topPhrases(perSymbol[sym], w.TopPerSymbol)
		if len(top) == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", sym, formatPhrases(top)))
	}
	lines = append(lines, "Overall top-3: "+formatPhrases(topPhrases(global, 3)))

	text := truncate(strings.Join(lines, "\n"), w.MaxChars)
	logrus.WithFields(logrus.Fields{
		"userId":  userID,
		"records": len(records),
		"phrases": len(global),
	}).Debug("personalization context built")
	return text, true, nil
}

// isPlaceholder filler written by coercion when a section was missing.
func isPlaceholder(phrase string) bool {
	p := strings.TrimSpace(phrase)
	return strings.EqualFold(p, llm.PlaceholderRU) || strings.EqualFold(p, llm.PlaceholderEN)
}

func currentSymbols(symbols []string, limit int) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range symbols {
		b := strings.ToUpper(utils.BareTicker(s))
		if b == "" || seen[b] {
			continue
		}
		seen[b] = true
		out = append(out, b)
		if len(out) == limit {
			break
		}
	}
	return out
}

// extractInsight reads weaknesses/recommendations from a stored response,
// either nested under "ai" or at the top level.
func extractInsight(response json.RawMessage) (storedInsight, bool) {
	var insight storedInsight
	if len(response) == 0 {
		return insight, false
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(response, &envelope); err != nil {
		return insight, false
	}
	body := json.RawMessage(response)
	if ai, ok := envelope["ai"]; ok {
		body = ai
	}
	if err := json.Unmarshal(body, &insight); err != nil {
		return insight, false
	}
	return insight, len(insight.Weaknesses)+len(insight.Recommendations) > 0
}

func isV1(promptTag string) bool {
	return strings.HasSuffix(strings.ToLower(promptTag), "v1")
}

func directionEchoed(lowerText string, directions []string) bool {
	for _, d := range directions {
		for _, kw := range directionKeywords[strings.ToLower(strings.TrimSpace(d))] {
			if strings.Contains(lowerText, kw) {
				return true
			}
		}
	}
	return false
}

func topPhrases(table map[string]float64, n int) []phraseWeight {
	items := make([]phraseWeight, 0, len(table))
	for phrase, weight := range table {
		items = append(items, phraseWeight{phrase, weight})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].weight != items[j].weight {
			return items[i].weight > items[j].weight
		}
		return items[i].phrase < items[j].phrase
	})
	if len(items) > n {
		items = items[:n]
	}
	return items
}

func formatPhrases(items []phraseWeight) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprintf("%s (%.1f)", it.phrase, it.weight)
	}
	return strings.Join(parts, "; ")
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
