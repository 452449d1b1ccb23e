package core

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"trading_journal/models"
	"trading_journal/pkg/indicators"
	"trading_journal/pkg/llm"
	"trading_journal/pkg/macro"
	"trading_journal/pkg/marketdata"
	"trading_journal/pkg/metrics"
	dbmodels "trading_journal/pkg/models"
	"trading_journal/pkg/tracing"
	"trading_journal/pkg/utils"
)

const modelNone = "none"

// Fallback summaries when the model produced nothing usable.
const (
	FallbackSummaryRU = "AI-анализ временно недоступен. Метрики рассчитаны по вашим сделкам."
	FallbackSummaryEN = "AI analysis is temporarily unavailable. Metrics are computed from your trades."
)

type MarketFetcher interface {
	FetchAggregates(ctx context.Context, q marketdata.Query) ([]models.Candle, error)
}

type NewsDigester interface {
	Digest(ctx context.Context, symbols []string, from, to time.Time) (map[string][]models.NewsItem, error)
}

type MacroResolver interface {
	Resolve(ctx context.Context, country string, from, to time.Time) models.MacroRecord
	Events(ctx context.Context, country string, from, to time.Time) ([]models.EconomicEvent, error)
}

type ContextBuilder interface {
	BuildContext(ctx context.Context, userID string, symbols, directions []string) (string, bool, error)
}

type InsightGenerator interface {
	Analyze(ctx context.Context, req llm.AnalyzeRequest) llm.Outcome
}

type AnalysisStore interface {
	CreateAnalysisRecord(ctx context.Context, record *dbmodels.AnalysisResult) error
}

// Dependencies collaborators of the analyzer; any of them may be nil.
type Dependencies struct {
	Market          MarketFetcher
	News            NewsDigester
	Macro           MacroResolver
	Personalization ContextBuilder
	LLM             InsightGenerator
	Store           AnalysisStore
}

type Options struct {
	MarketPrefix       string
	Workers            int
	DefaultCountry     string
	MacroLookbackDays  int
	MacroExcludeMinute bool
	PromptVersion      string
	Lang               string
}

// PeriodAnalyzer runs the period analysis pipeline.
type PeriodAnalyzer struct {
	deps      Dependencies
	opts      Options
	mu        sync.RWMutex
	listeners []Listener
}

func NewPeriodAnalyzer(deps Dependencies, opts Options) *PeriodAnalyzer {
	if opts.Workers <= 0 {
		opts.Workers = 3
	}
	if opts.DefaultCountry == "" {
		opts.DefaultCountry = "US"
	}
	if opts.MacroLookbackDays <= 0 {
		opts.MacroLookbackDays = 400
	}
	return &PeriodAnalyzer{deps: deps, opts: opts}
}

// AddListener registers l for completed analyses.
func (a *PeriodAnalyzer) AddListener(l Listener) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, l)
}

// Prefix market prefix used to normalize tickers.
func (a *PeriodAnalyzer) Prefix() string {
	return a.opts.MarketPrefix
}

type marketResult struct {
	candles map[string][]models.Candle
	series  map[string]*indicators.Series
}

// Analyze returns an error only for invalid input (*ValidationError).
// Provider failures degrade sections of the response.
func (a *PeriodAnalyzer) Analyze(ctx context.Context, userID string, req models.PeriodAnalysisRequest) (*models.PeriodAnalysisResponse, error) {
	start := time.Now()
	symbols, win, err := validateRequest(&req, a.opts.MarketPrefix)
	if err != nil {
		metrics.AnalysisRequests.WithLabelValues("rejected").Inc()
		return nil, err
	}

	// sub-fetches outlive a disconnected client
	ctx = context.WithoutCancel(ctx)
	ctx, span := tracing.StartSpan(ctx, "core.PeriodAnalysis",
		attribute.StringSlice("symbols", symbols), attribute.String("timespan", win.timespan))
	defer span.End()

	lang := llm.NormalizeLang(firstNonEmpty(req.Lang, a.opts.Lang))
	version := llm.NormalizeVersion(firstNonEmpty(req.PromptVersion, a.opts.PromptVersion))
	country := strings.ToUpper(firstNonEmpty(req.Country, a.opts.DefaultCountry))
	includeNews := req.IncludeNews == nil || *req.IncludeNews

	var (
		wg              sync.WaitGroup
		market          marketResult
		news            map[string][]models.NewsItem
		macroRecord     models.MacroRecord
		events          []models.EconomicEvent
		personalization string
	)
	wg.Add(4)
	go func() {
		defer wg.Done()
		market = a.fetchMarket(ctx, symbols, win)
	}()
	go func() {
		defer wg.Done()
		if includeNews {
			news = a.fetchNews(ctx, symbols, win)
		}
	}()
	go func() {
		defer wg.Done()
		macroRecord, events = a.fetchMacro(ctx, country, win)
	}()
	go func() {
		defer wg.Done()
		personalization = a.buildPersonalization(ctx, userID, symbols, req.Trades)
	}()
	wg.Wait()

	trades := a.enrichTrades(req.Trades, market)
	summaries := map[string]*models.OHLCSummary{}
	for sym, candles := range market.candles {
		summaries[sym] = indicators.Summarize(candles)
	}

	period := models.AnalysisPeriod{
		From:     win.from.Format("2006-01-02"),
		To:       win.to.Format("2006-01-02"),
		Timespan: win.timespan,
	}
	input := llm.PromptInput{
		Lang:            lang,
		Period:          period,
		Trades:          trades,
		Summaries:       summaries,
		Personalization: personalization,
		News:            news,
	}
	if !(win.timespan == models.TimespanMinute && a.opts.MacroExcludeMinute) {
		input.Macro = macro.Summarize(macroRecord)
		input.Events = events
	}

	outcome := a.generate(ctx, version, input)

	resp := &models.PeriodAnalysisResponse{
		StructuredInsights: models.StructuredInsights{
			Symbols: symbols,
			Period:  period,
			Metrics: ComputeTradeMetrics(req.Trades),
		},
		AILang: lang,
	}
	if outcome.Insight != nil {
		resp.AI = outcome.Insight
		resp.TextSummary = outcome.Insight.Summary
	} else {
		resp.AI = map[string]interface{}{}
		resp.TextSummary = fallbackSummary(lang)
	}
	if req.IncludeCandles {
		resp.Candles = market.candles
	}
	if req.IncludeMarketContext {
		resp.MarketConditions = buildMarketConditions(market, summaries, news, macroRecord, events, trades, req.IncludeCandles)
	}

	result := "ok"
	if outcome.Status != llm.StatusOK {
		result = "degraded"
	}

	id, err := a.persist(ctx, userID, req, resp, version, outcome)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"userId":  userID,
			"symbols": symbols,
		}).WithError(err).Warn("analysis record not saved")
	} else {
		resp.AnalysisID = id
	}

	metrics.AnalysisRequests.WithLabelValues(result).Inc()
	metrics.AnalysisDuration.Observe(time.Since(start).Seconds())

	a.notify(ctx, AnalysisEvent{
		ID:          resp.AnalysisID,
		UserID:      userID,
		Symbols:     symbols,
		Period:      period,
		Metrics:     resp.StructuredInsights.Metrics,
		Status:      string(outcome.Status),
		Model:       outcome.Model,
		TextSummary: resp.TextSummary,
		CreatedAt:   time.Now().UTC(),
	})
	return resp, nil
}

func (a *PeriodAnalyzer) fetchMarket(ctx context.Context, symbols []string, win window) marketResult {
	res := marketResult{candles: map[string][]models.Candle{}, series: map[string]*indicators.Series{}}
	if a.deps.Market == nil {
		return res
	}
	var mu sync.Mutex
	utils.ForEachLimit(ctx, a.opts.Workers, symbols, func(ctx context.Context, sym string) {
		candles, err := a.deps.Market.FetchAggregates(ctx, marketdata.Query{
			Ticker:     sym,
			Multiplier: win.multiplier,
			Timespan:   win.timespan,
			From:       win.from.Format("2006-01-02"),
			To:         win.to.Format("2006-01-02"),
		})
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"symbol": sym,
				"status": marketdata.StatusCode(err),
			}).WithError(err).Warn("candles unavailable")
			return
		}
		if len(candles) == 0 {
			return
		}
		series := indicators.Compute(candles)
		mu.Lock()
		res.candles[sym] = candles
		res.series[sym] = series
		mu.Unlock()
	})
	return res
}

func (a *PeriodAnalyzer) fetchNews(ctx context.Context, symbols []string, win window) map[string][]models.NewsItem {
	if a.deps.News == nil {
		return nil
	}
	news, err := a.deps.News.Digest(ctx, symbols, win.from, win.to)
	if err != nil {
		logrus.WithError(err).Warn("news unavailable")
		return nil
	}
	return news
}

// fetchMacro reads over an extended lookback so YoY has twelve prior points.
func (a *PeriodAnalyzer) fetchMacro(ctx context.Context, country string, win window) (models.MacroRecord, []models.EconomicEvent) {
	if a.deps.Macro == nil {
		return nil, nil
	}
	lookbackFrom := win.to.AddDate(0, 0, -a.opts.MacroLookbackDays)
	if win.from.Before(lookbackFrom) {
		lookbackFrom = win.from
	}
	record := a.deps.Macro.Resolve(ctx, country, lookbackFrom, win.to)

	events, err := a.deps.Macro.Events(ctx, country, win.from, win.to)
	if err != nil {
		logrus.WithError(err).WithField("country", country).Warn("economic calendar unavailable")
	}
	return record, events
}

func (a *PeriodAnalyzer) buildPersonalization(ctx context.Context, userID string, symbols []string, trades []models.Trade) string {
	if a.deps.Personalization == nil {
		return ""
	}
	var directions []string
	seen := map[string]bool{}
	for _, t := range trades {
		d := strings.ToLower(strings.TrimSpace(t.Direction))
		if d != "" && !seen[d] {
			seen[d] = true
			directions = append(directions, d)
		}
	}
	text, ok, err := a.deps.Personalization.BuildContext(ctx, userID, symbols, directions)
	if err != nil {
		logrus.WithError(err).WithField("userId", userID).Warn("personalization unavailable")
		return ""
	}
	if !ok {
		return ""
	}
	return text
}

// enrichTrades attaches entry/exit snapshots; trades without candles pass unchanged.
func (a *PeriodAnalyzer) enrichTrades(trades []models.Trade, market marketResult) []models.Trade {
	out := make([]models.Trade, len(trades))
	for i, t := range trades {
		out[i] = t
		series, ok := market.series[utils.NormalizeTicker(t.Ticker, a.opts.MarketPrefix)]
		if !ok {
			continue
		}
		ind := &models.TradeIndicators{}
		if ts, ok := ParseTime(t.EntryTime); ok {
			ind.Entry = series.AtTime(ts.UnixMilli())
		}
		if ts, ok := ParseTime(t.ExitTime); ok {
			ind.Exit = series.AtTime(ts.UnixMilli())
		}
		if ind.Entry != nil || ind.Exit != nil {
			out[i].Indicators = ind
		}
	}
	return out
}

func (a *PeriodAnalyzer) generate(ctx context.Context, version string, input llm.PromptInput) llm.Outcome {
	if a.deps.LLM == nil {
		return llm.Outcome{Status: llm.StatusCallFailed, Error: "llm not configured"}
	}
	outcome := a.deps.LLM.Analyze(ctx, llm.AnalyzeRequest{Version: version, Input: input})
	if outcome.Status == llm.StatusCallFailed {
		logrus.WithFields(logrus.Fields{
			"model": outcome.Model,
			"error": outcome.Error,
		}).Warn("llm analysis failed, using fallback summary")
	}
	return outcome
}

func buildMarketConditions(market marketResult, summaries map[string]*models.OHLCSummary, news map[string][]models.NewsItem,
	record models.MacroRecord, events []models.EconomicEvent, trades []models.Trade, withCandles bool) *models.MarketConditions {
	mc := &models.MarketConditions{
		Symbols: map[string]*models.SymbolMarket{},
		News:    news,
		Macro:   record,
		Events:  events,
		Trades:  trades,
	}
	for sym, candles := range market.candles {
		sm := &models.SymbolMarket{Symbol: sym, Summary: summaries[sym], Candles: []models.Candle{}}
		if withCandles {
			sm.Candles = candles
		}
		if series := market.series[sym]; series != nil {
			sm.Last = series.At(len(candles) - 1)
		}
		mc.Symbols[sym] = sm
	}
	return mc
}

type recordMetadata struct {
	Symbols []string              `json:"symbols"`
	Period  models.AnalysisPeriod `json:"period"`
	Lang    string                `json:"lang"`
	AI      llm.Outcome           `json:"ai"`
}

// persist one append-only record; the error is for the caller to log.
func (a *PeriodAnalyzer) persist(ctx context.Context, userID string, req models.PeriodAnalysisRequest,
	resp *models.PeriodAnalysisResponse, version string, outcome llm.Outcome) (string, error) {
	if a.deps.Store == nil {
		return "", nil
	}
	body, err := json.Marshal(resp)
	if err != nil {
		return "", err
	}
	meta, err := json.Marshal(recordMetadata{
		Symbols: resp.StructuredInsights.Symbols,
		Period:  resp.StructuredInsights.Period,
		Lang:    resp.AILang,
		AI:      outcome,
	})
	if err != nil {
		return "", err
	}

	model := outcome.Model
	if outcome.Status == llm.StatusCallFailed || model == "" {
		model = modelNone
	}
	record := &dbmodels.AnalysisResult{
		ID:        uuid.NewString(),
		UserID:    userID,
		PromptTag: "period_" + version,
		Response:  body,
		Model:     model,
		Metadata:  meta,
	}
	if len(req.Trades) == 1 && req.Trades[0].ID != nil {
		id := *req.Trades[0].ID
		record.TradeID = &id
	}
	if err := a.deps.Store.CreateAnalysisRecord(ctx, record); err != nil {
		return "", err
	}
	return record.ID, nil
}

func fallbackSummary(lang string) string {
	if lang == "en" {
		return FallbackSummaryEN
	}
	return FallbackSummaryRU
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
