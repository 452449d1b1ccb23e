package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading_journal/models"
)

type stubProvider struct {
	mu       sync.Mutex
	requests []Request
	reply    func(req Request, n int) (string, error)
}

func (s *stubProvider) Generate(ctx context.Context, req Request) (string, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	n := len(s.requests)
	s.mu.Unlock()
	return s.reply(req, n)
}

func analyzeRequest() AnalyzeRequest {
	return AnalyzeRequest{
		Version: SchemaV2,
		Input: PromptInput{
			Lang:   "ru",
			Period: models.AnalysisPeriod{From: "2024-09-01", To: "2024-09-10", Timespan: "day"},
			Trades: []models.Trade{{Ticker: "EURUSD+", Direction: "long", Profit: 45.5}},
		},
	}
}

func TestAnalyzeRepromptsAfterMalformedJSON(t *testing.T) {
	stub := &stubProvider{reply: func(req Request, n int) (string, error) {
		if n == 1 {
			return `{"summary": "oops"`, nil
		}
		return validV2, nil
	}}
	o := NewOrchestrator(stub, Options{Model: "claude-sonnet-4-5", Timeout: time.Second})

	out := o.Analyze(context.Background(), analyzeRequest())
	assert.Equal(t, StatusOK, out.Status)
	assert.False(t, out.Coerced)
	assert.Equal(t, 2, out.Attempts)
	require.NotNil(t, out.Insight)
	assert.Equal(t, "спокойно", out.Insight.Psychology)

	require.Len(t, stub.requests, 2)
	assert.False(t, strings.HasSuffix(stub.requests[0].Prompt, strictJSONReprompt))
	assert.True(t, strings.HasSuffix(stub.requests[1].Prompt, strictJSONReprompt))
}

func TestAnalyzeCoercesFreeText(t *testing.T) {
	stub := &stubProvider{reply: func(Request, int) (string, error) {
		return "Рынок: спокойный.\nСлабые стороны:\n- поздний вход", nil
	}}
	o := NewOrchestrator(stub, Options{Model: "claude-sonnet-4-5", Timeout: time.Second})

	out := o.Analyze(context.Background(), analyzeRequest())
	assert.Equal(t, StatusInvalidJSON, out.Status)
	assert.True(t, out.Coerced)
	assert.Len(t, stub.requests, 2)
	require.NotNil(t, out.Insight)
	assert.NoError(t, out.Insight.Validate(SchemaV2))
	assert.Equal(t, "спокойный.", out.Insight.MarketContext)
	assert.Equal(t, []string{"поздний вход"}, out.Insight.Weaknesses)
	assert.Equal(t, PlaceholderRU, out.Insight.Psychology)
}

func TestAnalyzeFallsBackOnCallError(t *testing.T) {
	stub := &stubProvider{reply: func(req Request, _ int) (string, error) {
		if req.Model == "claude-sonnet-4-5" {
			return "", errors.New("overloaded")
		}
		return validV2, nil
	}}
	o := NewOrchestrator(stub, Options{Model: "claude-sonnet-4-5", FallbackModel: "gemini-2.5-flash", Timeout: time.Second})

	out := o.Analyze(context.Background(), analyzeRequest())
	assert.Equal(t, StatusOK, out.Status)
	assert.Equal(t, "gemini-2.5-flash", out.Model)
	assert.Equal(t, 2, out.Attempts)
}

func TestAnalyzeReportsCallFailure(t *testing.T) {
	stub := &stubProvider{reply: func(Request, int) (string, error) {
		return "", errors.New("unavailable")
	}}
	o := NewOrchestrator(stub, Options{Model: "claude-sonnet-4-5", FallbackModel: "claude-sonnet-4-5", Timeout: time.Second})

	out := o.Analyze(context.Background(), analyzeRequest())
	assert.Equal(t, StatusCallFailed, out.Status)
	assert.Nil(t, out.Insight)
	assert.Contains(t, out.Error, "unavailable")
	// same fallback model is not retried
	assert.Len(t, stub.requests, 1)
}

func TestAnalyzeTimesOut(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	stub := &stubProvider{reply: func(Request, int) (string, error) {
		<-release
		return validV2, nil
	}}
	o := NewOrchestrator(stub, Options{Model: "claude-sonnet-4-5", Timeout: 30 * time.Millisecond})

	out := o.Analyze(context.Background(), analyzeRequest())
	assert.Equal(t, StatusCallFailed, out.Status)
	assert.Contains(t, out.Error, ErrTimeout.Error())
}

func TestAnalyzeNotConfigured(t *testing.T) {
	out := NewOrchestrator(NewRouter(), Options{Model: "claude-sonnet-4-5"}).Analyze(context.Background(), analyzeRequest())
	assert.Equal(t, StatusCallFailed, out.Status)
	assert.Equal(t, 0, out.Attempts)
}

func TestRouterDispatchesByModel(t *testing.T) {
	claude := &stubProvider{reply: func(req Request, _ int) (string, error) { return "claude:" + req.Model, nil }}
	gemini := &stubProvider{reply: func(req Request, _ int) (string, error) { return "gemini:" + req.Model, nil }}
	r := NewRouter()
	r.Register(ProviderClaude, claude)
	r.Register(ProviderGemini, gemini)

	text, err := r.Generate(context.Background(), Request{Model: "anthropic/claude-sonnet-4-5"})
	require.NoError(t, err)
	assert.Equal(t, "claude:claude-sonnet-4-5", text)

	text, err = r.Generate(context.Background(), Request{Model: "gemini-2.5-flash"})
	require.NoError(t, err)
	assert.Equal(t, "gemini:gemini-2.5-flash", text)

	_, err = r.Generate(context.Background(), Request{Model: "gpt-4o"})
	assert.ErrorIs(t, err, ErrNoProvider)
}
