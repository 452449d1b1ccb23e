package llm

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"trading_journal/models"
	"trading_journal/pkg/macro"
	"trading_journal/pkg/utils"
)

const (
	maxPromptTrades    = 100
	maxNotesChars      = 200
	maxNewsPerSymbol   = 5
	langRussian        = "ru"
	langEnglish        = "en"
	strictJSONReprompt = "\n\nYour previous answer could not be parsed or did not match the schema. " +
		"Reply with JSON only: exactly one object, no prose, no Markdown, no code fences."
)

// PromptInput everything the model sees about the period.
type PromptInput struct {
	Lang            string
	Period          models.AnalysisPeriod
	Trades          []models.Trade
	Summaries       map[string]*models.OHLCSummary
	Personalization string
	News            map[string][]models.NewsItem
	Macro           map[string]macro.IndicatorSummary
	Events          []models.EconomicEvent
}

type promptTrade struct {
	Ticker     string                    `json:"ticker"`
	Direction  string                    `json:"direction,omitempty"`
	EntryTime  string                    `json:"entryTime,omitempty"`
	ExitTime   string                    `json:"exitTime,omitempty"`
	EntryPrice float64                   `json:"entryPrice,omitempty"`
	ExitPrice  float64                   `json:"exitPrice,omitempty"`
	Profit     float64                   `json:"profit"`
	Notes      string                    `json:"notes,omitempty"`
	Entry      *models.IndicatorSnapshot `json:"entryIndicators,omitempty"`
	Exit       *models.IndicatorSnapshot `json:"exitIndicators,omitempty"`
}

type promptNews struct {
	Title  string  `json:"title"`
	Source string  `json:"source,omitempty"`
	Time   string  `json:"time"`
	Score  float64 `json:"score"`
}

type promptPayload struct {
	Period      models.AnalysisPeriod             `json:"period"`
	TradesTotal int                               `json:"tradesTotal"`
	Trades      []promptTrade                     `json:"trades"`
	Market      map[string]*models.OHLCSummary    `json:"market,omitempty"`
	News        map[string][]promptNews           `json:"news,omitempty"`
	Macro       map[string]macro.IndicatorSummary `json:"macro,omitempty"`
	Events      []models.EconomicEvent            `json:"events,omitempty"`
}

// NormalizeLang "en" or the default "ru".
func NormalizeLang(lang string) string {
	if strings.EqualFold(strings.TrimSpace(lang), langEnglish) {
		return langEnglish
	}
	return langRussian
}

// NormalizeVersion "v1" or the default "v2".
func NormalizeVersion(version string) string {
	if strings.EqualFold(strings.TrimSpace(version), SchemaV1) {
		return SchemaV1
	}
	return SchemaV2
}

// BuildPrompt system instruction and user prompt for version.
func BuildPrompt(version string, in PromptInput) (string, string, error) {
	version = NormalizeVersion(version)
	lang := NormalizeLang(in.Lang)

	payload := promptPayload{
		Period:      in.Period,
		TradesTotal: len(in.Trades),
		Trades:      trimTrades(in.Trades),
		Market:      in.Summaries,
		News:        compactNews(in.News),
		Macro:       in.Macro,
		Events:      in.Events,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", "", fmt.Errorf("encode prompt payload: %w", err)
	}

	var b strings.Builder
	b.WriteString("Analyse the trading journal for the period below. Evaluate the trades against the market context.\n")
	if len(in.Trades) > maxPromptTrades {
		fmt.Fprintf(&b, "Only the first %d of %d trades are listed.\n", maxPromptTrades, len(in.Trades))
	}
	b.WriteString("DATA:\n")
	b.Write(data)
	b.WriteString("\n")
	if in.Personalization != "" {
		b.WriteString("\nRECURRING ISSUES FROM PREVIOUS ANALYSES (weighted):\n")
		b.WriteString(in.Personalization)
		b.WriteString("\nCheck whether these issues repeat in the current period.\n")
	}
	b.WriteString("\n")
	b.WriteString(formatRules(version, lang))
	return systemInstruction(lang), b.String(), nil
}

func systemInstruction(lang string) string {
	if lang == langEnglish {
		return "You are a trading coach reviewing a trader's journal. Be specific and concise. Answer in English."
	}
	return "You are a trading coach reviewing a trader's journal. Be specific and concise. Answer in Russian."
}

func formatRules(version, lang string) string {
	language := "Russian"
	if lang == langEnglish {
		language = "English"
	}
	fields := []string{
		`"summary": string`,
		`"strengths": array of strings`,
		`"weaknesses": array of strings`,
		`"recommendations": array of strings`,
		`"riskAssessment": string (optional)`,
		`"assumptions": array of strings (optional)`,
	}
	if version == SchemaV2 {
		fields = append(fields,
			`"marketContext": non-empty string`,
			`"tradeAnalysis": non-empty string`,
			`"psychology": non-empty string`,
		)
	}
	return "FORMAT:\n" +
		"Return a single JSON object and nothing else. Do not use Markdown or code fences. Do not add comments.\n" +
		"Keys:\n- " + strings.Join(fields, "\n- ") + "\n" +
		"Write every text value in " + language + "."
}

func trimTrades(trades []models.Trade) []promptTrade {
	n := len(trades)
	if n > maxPromptTrades {
		n = maxPromptTrades
	}
	out := make([]promptTrade, 0, n)
	for _, t := range trades[:n] {
		pt := promptTrade{
			Ticker:     t.Ticker,
			Direction:  t.Direction,
			EntryTime:  t.EntryTime,
			ExitTime:   t.ExitTime,
			EntryPrice: t.EntryPrice,
			ExitPrice:  t.ExitPrice,
			Profit:     t.Profit,
			Notes:      clipRunes(t.Notes, maxNotesChars),
		}
		if t.Indicators != nil {
			pt.Entry = t.Indicators.Entry
			pt.Exit = t.Indicators.Exit
		}
		out = append(out, pt)
	}
	return out
}

func compactNews(news map[string][]models.NewsItem) map[string][]promptNews {
	if len(news) == 0 {
		return nil
	}
	out := make(map[string][]promptNews, len(news))
	symbols := make([]string, 0, len(news))
	for s := range news {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	for _, s := range symbols {
		items := news[s]
		if len(items) > maxNewsPerSymbol {
			items = items[:maxNewsPerSymbol]
		}
		for _, it := range items {
			out[s] = append(out[s], promptNews{
				Title:  it.Title,
				Source: it.Source,
				Time:   it.Time.UTC().Format("2006-01-02T15:04Z"),
				Score:  utils.RoundToDecimalPlaces(it.Score, 2),
			})
		}
	}
	return out
}

func clipRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
