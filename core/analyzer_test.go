package core

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading_journal/models"
	"trading_journal/pkg/llm"
	"trading_journal/pkg/marketdata"
	dbmodels "trading_journal/pkg/models"
)

type fakeMarket struct {
	calls   int32
	candles map[string][]models.Candle
	err     error
}

func (f *fakeMarket) FetchAggregates(_ context.Context, q marketdata.Query) ([]models.Candle, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return f.candles[q.Ticker], nil
}

type fakeNews struct {
	items map[string][]models.NewsItem
	err   error
}

func (f *fakeNews) Digest(context.Context, []string, time.Time, time.Time) (map[string][]models.NewsItem, error) {
	return f.items, f.err
}

type fakeMacro struct {
	from, to time.Time
	record   models.MacroRecord
}

func (f *fakeMacro) Resolve(_ context.Context, _ string, from, to time.Time) models.MacroRecord {
	f.from, f.to = from, to
	return f.record
}

func (f *fakeMacro) Events(context.Context, string, time.Time, time.Time) ([]models.EconomicEvent, error) {
	return nil, errors.New("calendar down")
}

type fakeLLM struct {
	mu      sync.Mutex
	outcome llm.Outcome
	reqs    []llm.AnalyzeRequest
}

func (f *fakeLLM) Analyze(_ context.Context, req llm.AnalyzeRequest) llm.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return f.outcome
}

type fakeStore struct {
	mu      sync.Mutex
	records []*dbmodels.AnalysisResult
	err     error
}

func (f *fakeStore) CreateAnalysisRecord(_ context.Context, r *dbmodels.AnalysisResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, r)
	return nil
}

func dayCandles(from time.Time, n int) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		c := 1.10 + float64(i)*0.001
		out[i] = models.Candle{T: from.AddDate(0, 0, i).UnixMilli(), O: c, H: c + 0.002, L: c - 0.002, C: c}
	}
	return out
}

func okInsight() *llm.Insight {
	return &llm.Insight{
		Summary:         "Прибыльная неделя",
		Strengths:       []string{"дисциплина"},
		Weaknesses:      []string{"поздний вход"},
		Recommendations: []string{"ставить стоп"},
		MarketContext:   "восходящий тренд",
		TradeAnalysis:   "одна сделка",
		Psychology:      "спокойно",
	}
}

func periodRequest() models.PeriodAnalysisRequest {
	return models.PeriodAnalysisRequest{
		From:     "2024-09-01",
		To:       "2024-09-10",
		Timespan: "day",
		Trades: []models.Trade{{
			Ticker:     "EURUSD+",
			Direction:  "long",
			EntryTime:  "2024-09-03T10:00:00Z",
			ExitTime:   "2024-09-05T16:00:00Z",
			EntryPrice: 1.102,
			ExitPrice:  1.104,
			Profit:     45.5,
		}},
	}
}

func TestAnalyzeEndToEnd(t *testing.T) {
	start := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	market := &fakeMarket{candles: map[string][]models.Candle{"C:EURUSD": dayCandles(start, 10)}}
	gen := &fakeLLM{outcome: llm.Outcome{Status: llm.StatusOK, Insight: okInsight(), Model: "claude-sonnet-4-5"}}
	store := &fakeStore{}
	mac := &fakeMacro{record: models.MacroRecord{"cpi": {Series: []models.MacroPoint{{Time: "2024-08-01", Value: 314.1}}}}}

	a := NewPeriodAnalyzer(Dependencies{Market: market, LLM: gen, Store: store, Macro: mac}, Options{MarketPrefix: "C:"})

	req := periodRequest()
	req.IncludeMarketContext = true
	resp, err := a.Analyze(context.Background(), "u1", req)
	require.NoError(t, err)

	assert.Equal(t, models.TradeMetrics{TradesCount: 1, Wins: 1, WinRate: 1, TotalProfit: 45.5, AvgProfit: 45.5}, resp.StructuredInsights.Metrics)
	assert.Contains(t, resp.StructuredInsights.Symbols, "C:EURUSD")
	assert.Equal(t, models.AnalysisPeriod{From: "2024-09-01", To: "2024-09-10", Timespan: "day"}, resp.StructuredInsights.Period)
	assert.Equal(t, "ru", resp.AILang)
	assert.Equal(t, "Прибыльная неделя", resp.TextSummary)
	assert.Nil(t, resp.Candles)

	require.NotNil(t, resp.MarketConditions)
	require.Len(t, resp.MarketConditions.Trades, 1)
	enriched := resp.MarketConditions.Trades[0]
	require.NotNil(t, enriched.Indicators)
	require.NotNil(t, enriched.Indicators.Entry)
	assert.Equal(t, 2, enriched.Indicators.Entry.TimeIndex)
	assert.Equal(t, 4, enriched.Indicators.Exit.TimeIndex)
	assert.Empty(t, resp.MarketConditions.Symbols["C:EURUSD"].Candles)

	// macro read over the extended lookback
	assert.Equal(t, start.AddDate(0, 0, 9-400), mac.from)

	require.Len(t, gen.reqs, 1)
	input := gen.reqs[0].Input
	assert.Equal(t, llm.SchemaV2, gen.reqs[0].Version)
	assert.Equal(t, 10, input.Summaries["C:EURUSD"].Count)
	assert.Contains(t, input.Macro, "cpi")
	require.NotNil(t, input.Trades[0].Indicators)

	require.Len(t, store.records, 1)
	rec := store.records[0]
	assert.Equal(t, rec.ID, resp.AnalysisID)
	assert.Equal(t, "claude-sonnet-4-5", rec.Model)
	assert.Equal(t, "period_v2", rec.PromptTag)
	assert.Nil(t, rec.TradeID)

	var stored map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Response, &stored))
	assert.Contains(t, stored, "structuredInsights")
	assert.Contains(t, stored["ai"], "weaknesses")
}

func TestAnalyzeRejectsOversizedRangeBeforeFetching(t *testing.T) {
	market := &fakeMarket{}
	store := &fakeStore{}
	a := NewPeriodAnalyzer(Dependencies{Market: market, Store: store}, Options{MarketPrefix: "C:"})

	req := periodRequest()
	req.Timespan = "minute"
	req.From = "2024-08-01"
	req.To = "2024-08-31"

	resp, err := a.Analyze(context.Background(), "u1", req)
	assert.Nil(t, resp)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, CodeRangeTooLarge, verr.Code)
	assert.Equal(t, int32(0), atomic.LoadInt32(&market.calls))
	assert.Empty(t, store.records)
}

func TestAnalyzeSurvivesRateLimitedMarket(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	gateway := marketdata.NewGateway(marketdata.Options{
		BaseURL:    server.URL,
		APIKey:     "k",
		MaxRetries: 2,
		RetryBase:  time.Millisecond,
	}, nil)
	gen := &fakeLLM{outcome: llm.Outcome{Status: llm.StatusOK, Insight: okInsight(), Model: "claude-sonnet-4-5"}}
	a := NewPeriodAnalyzer(Dependencies{Market: gateway, LLM: gen}, Options{MarketPrefix: "C:"})

	req := periodRequest()
	req.IncludeCandles = true
	resp, err := a.Analyze(context.Background(), "u1", req)
	require.NoError(t, err)

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.NotContains(t, resp.Candles, "C:EURUSD")
	assert.Equal(t, 1, resp.StructuredInsights.Metrics.TradesCount)
	assert.Equal(t, "Прибыльная неделя", resp.TextSummary)
	require.Len(t, gen.reqs, 1)
	assert.Nil(t, gen.reqs[0].Input.Trades[0].Indicators)
}

func TestAnalyzeLLMFailureUsesFallback(t *testing.T) {
	gen := &fakeLLM{outcome: llm.Outcome{Status: llm.StatusCallFailed, Model: "gemini-2.5-flash", Error: "boom"}}
	store := &fakeStore{}
	a := NewPeriodAnalyzer(Dependencies{LLM: gen, Store: store, News: &fakeNews{err: errors.New("news down")}}, Options{MarketPrefix: "C:"})

	req := periodRequest()
	id := uint(42)
	req.Trades[0].ID = &id
	req.Lang = "en"

	resp, err := a.Analyze(context.Background(), "u1", req)
	require.NoError(t, err)
	assert.Equal(t, FallbackSummaryEN, resp.TextSummary)
	assert.Equal(t, map[string]interface{}{}, resp.AI)
	assert.Equal(t, "en", resp.AILang)

	require.Len(t, store.records, 1)
	assert.Equal(t, "none", store.records[0].Model)
	require.NotNil(t, store.records[0].TradeID)
	assert.Equal(t, uint(42), *store.records[0].TradeID)
}

func TestAnalyzePersistFailureIsNotFatal(t *testing.T) {
	a := NewPeriodAnalyzer(Dependencies{Store: &fakeStore{err: errors.New("db down")}}, Options{MarketPrefix: "C:"})
	resp, err := a.Analyze(context.Background(), "u1", periodRequest())
	require.NoError(t, err)
	assert.Empty(t, resp.AnalysisID)
	assert.Equal(t, FallbackSummaryRU, resp.TextSummary)
}

func TestAnalyzeMinuteExcludesMacroFromPrompt(t *testing.T) {
	gen := &fakeLLM{outcome: llm.Outcome{Status: llm.StatusOK, Insight: okInsight()}}
	mac := &fakeMacro{record: models.MacroRecord{"cpi": {Series: []models.MacroPoint{{Time: "2024-08-01", Value: 1}}}}}
	a := NewPeriodAnalyzer(Dependencies{LLM: gen, Macro: mac}, Options{MarketPrefix: "C:", MacroExcludeMinute: true})

	req := periodRequest()
	req.Timespan = "minute"
	req.From = "2024-09-01"
	req.To = "2024-09-03"
	req.IncludeMarketContext = true

	resp, err := a.Analyze(context.Background(), "u1", req)
	require.NoError(t, err)
	require.Len(t, gen.reqs, 1)
	assert.Empty(t, gen.reqs[0].Input.Macro)
	assert.Contains(t, resp.MarketConditions.Macro, "cpi")
}

func TestAnalyzeNotifiesListeners(t *testing.T) {
	a := NewPeriodAnalyzer(Dependencies{Store: &fakeStore{}}, Options{MarketPrefix: "C:"})
	got := make(chan AnalysisEvent, 1)
	a.AddListener(ListenerFunc(func(_ context.Context, e AnalysisEvent) error {
		got <- e
		return errors.New("ignored")
	}))

	resp, err := a.Analyze(context.Background(), "u1", periodRequest())
	require.NoError(t, err)

	select {
	case e := <-got:
		assert.Equal(t, resp.AnalysisID, e.ID)
		assert.Equal(t, []string{"C:EURUSD"}, e.Symbols)
	case <-time.After(time.Second):
		t.Fatal("listener not called")
	}
}
