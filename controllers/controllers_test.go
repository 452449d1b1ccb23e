package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading_journal/core"
	"trading_journal/models"
	"trading_journal/pkg/auth"
	"trading_journal/pkg/config"
	"trading_journal/pkg/database"
	dbmodels "trading_journal/pkg/models"
)

type fakeAnalyzer struct {
	resp *models.PeriodAnalysisResponse
	err  error
	user string
}

func (f *fakeAnalyzer) Analyze(_ context.Context, userID string, _ models.PeriodAnalysisRequest) (*models.PeriodAnalysisResponse, error) {
	f.user = userID
	return f.resp, f.err
}

type fakeHistory struct {
	rows []dbmodels.AnalysisResult
}

func (f *fakeHistory) ListAnalysisResults(_ context.Context, userID string, page, pageSize int) ([]dbmodels.AnalysisResult, int64, error) {
	return f.rows, int64(len(f.rows)), nil
}

func (f *fakeHistory) GetAnalysisResult(_ context.Context, userID, id string) (*dbmodels.AnalysisResult, error) {
	for i := range f.rows {
		if f.rows[i].ID == id && f.rows[i].UserID == userID {
			return &f.rows[i], nil
		}
	}
	return nil, database.ErrNotFound
}

type memoryTrades struct {
	mu     sync.Mutex
	nextID uint
	rows   map[uint]dbmodels.Trade
}

func newMemoryTrades() *memoryTrades {
	return &memoryTrades{rows: map[uint]dbmodels.Trade{}}
}

func (m *memoryTrades) CreateTrade(_ context.Context, t *dbmodels.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	t.ID = m.nextID
	m.rows[t.ID] = *t
	return nil
}

func (m *memoryTrades) GetTrade(_ context.Context, userID string, id uint) (*dbmodels.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[id]
	if !ok || t.UserID != userID {
		return nil, database.ErrNotFound
	}
	return &t, nil
}

func (m *memoryTrades) UpdateTrade(_ context.Context, t *dbmodels.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[t.ID] = *t
	return nil
}

func (m *memoryTrades) DeleteTrade(_ context.Context, userID string, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.rows[id]; !ok || t.UserID != userID {
		return database.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memoryTrades) ListTrades(_ context.Context, userID string, f database.TradeFilter) ([]dbmodels.Trade, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []dbmodels.Trade
	for id := uint(1); id <= m.nextID; id++ {
		t, ok := m.rows[id]
		if !ok || t.UserID != userID || (f.Ticker != "" && t.Ticker != f.Ticker) {
			continue
		}
		out = append(out, t)
	}
	return out, int64(len(out)), nil
}

type fakeMacroReader struct {
	from, to time.Time
}

func (f *fakeMacroReader) Resolve(_ context.Context, country string, from, to time.Time) models.MacroRecord {
	f.from, f.to = from, to
	return models.MacroRecord{"cpi": {Series: []models.MacroPoint{{Time: "2024-08-01", Value: 314.1}}}}
}

func testRouter(register func(r *gin.Engine)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("username", "u1")
		c.Next()
	})
	register(r)
	return r
}

func doJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestAnalyzePeriod(t *testing.T) {
	analyzer := &fakeAnalyzer{resp: &models.PeriodAnalysisResponse{TextSummary: "ok", AILang: "ru", AI: map[string]interface{}{}}}
	ac := NewAnalysisController(analyzer, &fakeHistory{})
	r := testRouter(func(r *gin.Engine) { r.POST("/analysis/period", ac.AnalyzePeriod) })

	w := doJSON(r, http.MethodPost, "/analysis/period", map[string]interface{}{"symbols": []string{"EURUSD"}, "from": "2024-09-01", "to": "2024-09-10"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ok", body["textSummary"])
	assert.Equal(t, "ru", body["aiLang"])
	assert.Equal(t, "u1", analyzer.user)
}

func TestAnalyzePeriodValidationError(t *testing.T) {
	analyzer := &fakeAnalyzer{err: &core.ValidationError{Code: core.CodeRangeTooLarge, Message: "too large"}}
	ac := NewAnalysisController(analyzer, &fakeHistory{})
	r := testRouter(func(r *gin.Engine) { r.POST("/analysis/period", ac.AnalyzePeriod) })

	w := doJSON(r, http.MethodPost, "/analysis/period", map[string]interface{}{"symbols": []string{"EURUSD"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, core.CodeRangeTooLarge, decode(t, w)["code"])

	w = doJSON(r, http.MethodPost, "/analysis/period", "not an object")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_PARAMS", decode(t, w)["code"])
}

func TestAnalysisHistory(t *testing.T) {
	history := &fakeHistory{rows: []dbmodels.AnalysisResult{
		{ID: "a1", UserID: "u1", Model: "claude-sonnet-4-5"},
		{ID: "b2", UserID: "u2", Model: "none"},
	}}
	ac := NewAnalysisController(&fakeAnalyzer{}, history)
	r := testRouter(func(r *gin.Engine) {
		r.GET("/analysis", ac.GetAnalysisResults)
		r.GET("/analysis/:id", ac.GetAnalysisByID)
	})

	w := doJSON(r, http.MethodGet, "/analysis?page=1&pageSize=500", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(maxPageSize), body["pageSize"])
	assert.Equal(t, float64(1), body["totalPages"])

	assert.Equal(t, http.StatusOK, doJSON(r, http.MethodGet, "/analysis/a1", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(r, http.MethodGet, "/analysis/b2", nil).Code)
}

func TestTradeCRUD(t *testing.T) {
	store := newMemoryTrades()
	tc := NewTradeController(store, "C:")
	r := testRouter(func(r *gin.Engine) {
		r.GET("/trades", tc.ListTrades)
		r.POST("/trades", tc.CreateTrade)
		r.GET("/trades/:id", tc.GetTrade)
		r.PUT("/trades/:id", tc.UpdateTrade)
		r.DELETE("/trades/:id", tc.DeleteTrade)
	})

	w := doJSON(r, http.MethodPost, "/trades", TradeRequest{Ticker: "eurusd", Direction: "long", EntryTime: "2024-09-02T10:00:00Z", Profit: 12.5})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "C:EURUSD", store.rows[1].Ticker)
	assert.Equal(t, "u1", store.rows[1].UserID)

	w = doJSON(r, http.MethodPost, "/trades", TradeRequest{Ticker: "eurusd", Direction: "sideways", EntryTime: "2024-09-02"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/trades", TradeRequest{Ticker: "eurusd", EntryTime: "yesterday"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, core.CodeInvalidDate, decode(t, w)["code"])

	w = doJSON(r, http.MethodPut, "/trades/1", TradeRequest{Ticker: "GOLD", Direction: "short", EntryTime: "2024-09-03", ExitTime: "2024-09-04", Profit: -3})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "C:XAUUSD", store.rows[1].Ticker)
	require.NotNil(t, store.rows[1].ExitTime)

	w = doJSON(r, http.MethodGet, "/trades?ticker=XAUUSD", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["total"])

	assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodGet, "/trades/abc", nil).Code)
	assert.Equal(t, http.StatusOK, doJSON(r, http.MethodDelete, "/trades/1", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(r, http.MethodGet, "/trades/1", nil).Code)
}

func TestTradeMetrics(t *testing.T) {
	store := newMemoryTrades()
	entry := time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)
	for _, p := range []float64{10, -4, 6} {
		require.NoError(t, store.CreateTrade(context.Background(), &dbmodels.Trade{UserID: "u1", Ticker: "C:EURUSD", EntryTime: entry, Profit: p}))
	}
	require.NoError(t, store.CreateTrade(context.Background(), &dbmodels.Trade{UserID: "u2", Ticker: "C:EURUSD", EntryTime: entry, Profit: 100}))

	tc := NewTradeController(store, "C:")
	r := testRouter(func(r *gin.Engine) { r.GET("/metrics/trades", tc.GetTradeMetrics) })

	w := doJSON(r, http.MethodGet, "/metrics/trades", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	overall := data["overall"].(map[string]interface{})
	assert.Equal(t, float64(3), overall["tradesCount"])
	assert.Equal(t, float64(2), overall["wins"])
	assert.Equal(t, 0.6667, overall["winRate"])
	assert.Equal(t, float64(12), overall["totalProfit"])
	assert.Contains(t, data["bySymbol"], "C:EURUSD")

	assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodGet, "/metrics/trades?from=bogus", nil).Code)
}

func TestMacroController(t *testing.T) {
	reader := &fakeMacroReader{}
	mc := NewMacroController(reader, 400)
	mc.now = func() time.Time { return time.Date(2024, 9, 10, 12, 0, 0, 0, time.UTC) }
	r := testRouter(func(r *gin.Engine) { r.GET("/macro/:country", mc.GetCountry) })

	w := doJSON(r, http.MethodGet, "/macro/us", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "US", data["country"])
	assert.Contains(t, data["summary"], "cpi")
	assert.Equal(t, 400*24*time.Hour, reader.to.Sub(reader.from))

	assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodGet, "/macro/USA", nil).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodGet, "/macro/US?from=2024-10-01&to=2024-09-01", nil).Code)
}

func TestLogin(t *testing.T) {
	tokens := auth.NewManager("secret", "admin", "pw", time.Hour)
	ac := NewAuthController(tokens)
	r := testRouter(func(r *gin.Engine) { r.POST("/login", ac.Login) })

	w := doJSON(r, http.MethodPost, "/login", LoginRequest{Username: "admin", Password: "pw"})
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(3600), data["expires_in"])
	_, err := tokens.ValidateToken(data["token"].(string))
	assert.NoError(t, err)

	w = doJSON(r, http.MethodPost, "/login", LoginRequest{Username: "admin", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	unconfigured := NewAuthController(auth.NewManager("secret", "admin", "", time.Hour))
	r = testRouter(func(r *gin.Engine) { r.POST("/login", unconfigured.Login) })
	w = doJSON(r, http.MethodPost, "/login", LoginRequest{Username: "admin", Password: "pw"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestConfigHidesSecretsAndFlushes(t *testing.T) {
	cfg := &config.Config{MarketPrefix: "C:", PolygonAPIKey: "super-secret", LLMModel: "claude-sonnet-4-5"}
	cc := NewConfigController(cfg, map[string]CacheFlusher{
		"market": CacheFlusherFunc(func(context.Context) (int, error) { return 4, nil }),
		"shared": CacheFlusherFunc(func(context.Context) (int, error) { return 0, errors.New("redis down") }),
	})
	r := testRouter(func(r *gin.Engine) {
		r.GET("/config", cc.GetSystemConfig)
		r.DELETE("/cache", cc.FlushCaches)
	})

	w := doJSON(r, http.MethodGet, "/config", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "super-secret")
	assert.Contains(t, w.Body.String(), `"polygon":true`)

	w = doJSON(r, http.MethodDelete, "/cache", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(4), data["market"])
	assert.Contains(t, data["shared"], "error")
}
