package models

// PeriodAnalysisRequest body of POST /api/v1/analysis/period
type PeriodAnalysisRequest struct {
	Symbols              []string `json:"symbols"`
	Trades               []Trade  `json:"trades"`
	From                 string   `json:"from"`
	To                   string   `json:"to"`
	Timespan             string   `json:"timespan"`
	Multiplier           int      `json:"multiplier"`
	Country              string   `json:"country"`
	Lang                 string   `json:"lang"`
	PromptVersion        string   `json:"promptVersion"`
	IncludeCandles       bool     `json:"includeCandles"`
	IncludeMarketContext bool     `json:"includeMarketContext"`
	IncludeNews          *bool    `json:"includeNews,omitempty"`
}

type AnalysisPeriod struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Timespan string `json:"timespan"`
}

type StructuredInsights struct {
	Symbols []string       `json:"symbols"`
	Period  AnalysisPeriod `json:"period"`
	Metrics TradeMetrics   `json:"metrics"`
}

// MarketConditions full market context returned on request
type MarketConditions struct {
	Symbols map[string]*SymbolMarket `json:"symbols"`
	News    map[string][]NewsItem    `json:"news,omitempty"`
	Macro   MacroRecord              `json:"macro,omitempty"`
	Events  []EconomicEvent          `json:"events,omitempty"`
	Trades  []Trade                  `json:"trades,omitempty"`
}

// PeriodAnalysisResponse analysis endpoint contract
type PeriodAnalysisResponse struct {
	TextSummary        string              `json:"textSummary"`
	StructuredInsights StructuredInsights  `json:"structuredInsights"`
	AI                 interface{}         `json:"ai"`
	AILang             string              `json:"aiLang"`
	Candles            map[string][]Candle `json:"candles,omitempty"`
	MarketConditions   *MarketConditions   `json:"marketConditions,omitempty"`
	AnalysisID         string              `json:"analysisId,omitempty"`
}
