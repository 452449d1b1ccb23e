package personalization

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading_journal/pkg/llm"
	dbmodels "trading_journal/pkg/models"
)

type fakeHistory struct {
	records []dbmodels.AnalysisResult
	err     error
	since   time.Time
	limit   int
}

func (f *fakeHistory) RecentAnalysisResults(_ context.Context, _ string, since time.Time, limit int) ([]dbmodels.AnalysisResult, error) {
	f.since = since
	f.limit = limit
	return f.records, f.err
}

func record(tag, response string) dbmodels.AnalysisResult {
	return dbmodels.AnalysisResult{PromptTag: tag, Response: json.RawMessage(response)}
}

func TestNormalizePhrase(t *testing.T) {
	rules := DefaultConfig().Synonyms
	assert.Equal(t, "отсутствие стоп-лосса", NormalizePhrase("Нет стоп-лосса на сделке", rules))
	assert.Equal(t, "отсутствие стоп-лосса", NormalizePhrase("без стопа", rules))
	assert.Equal(t, "поздний вход", NormalizePhrase("Поздний вход в позицию", rules))
	assert.Equal(t, "unknown thing", NormalizePhrase("  Unknown Thing ", rules))
	// first match wins
	assert.Equal(t, "торговля против тренда", NormalizePhrase("эмоциональный вход против тренда", rules))
}

func TestBuildContextWeights(t *testing.T) {
	store := &fakeHistory{records: []dbmodels.AnalysisResult{
		record("period_v2", `{"ai":{"weaknesses":["Нет стоп-лосса на EURUSD","поздний вход"],"recommendations":["Ставить стоп"]},"structuredInsights":{"symbols":["C:EURUSD"]}}`),
		record("period_v1", `{"ai":{"weaknesses":["без стопа"]}}`),
		record("period_v2", `not json`),
	}}
	now := time.Date(2024, 9, 10, 0, 0, 0, 0, time.UTC)
	engine := NewEngine(store, nil)
	engine.now = func() time.Time { return now }

	text, ok, err := engine.BuildContext(context.Background(), "u1", []string{"C:EURUSD"}, []string{"short"})
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, now.Add(-90*24*time.Hour), store.since)
	assert.Equal(t, 50, store.limit)

	lines := strings.Split(text, "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "EURUSD: отсутствие стоп-лосса (1.5); поздний вход (1.5); ставить стоп"))
	assert.True(t, strings.HasPrefix(lines[1], "Overall top-3: отсутствие стоп-лосса (2.2); поздний вход (1.5)"))
}

func TestBuildContextDirectionBoost(t *testing.T) {
	store := &fakeHistory{records: []dbmodels.AnalysisResult{
		record("period_v2", `{"ai":{"weaknesses":["закрыл лонг слишком рано"]}}`),
	}}
	engine := NewEngine(store, nil)

	text, ok, err := engine.BuildContext(context.Background(), "u1", nil, []string{"long"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Overall top-3: закрыл лонг слишком рано (1.2)", text)

	text, _, err = engine.BuildContext(context.Background(), "u1", nil, []string{"short"})
	require.NoError(t, err)
	assert.Equal(t, "Overall top-3: закрыл лонг слишком рано (1.0)", text)
}

func TestBuildContextNoSignal(t *testing.T) {
	engine := NewEngine(&fakeHistory{records: []dbmodels.AnalysisResult{record("period_v2", `{"ai":{}}`)}}, nil)
	text, ok, err := engine.BuildContext(context.Background(), "u1", []string{"C:EURUSD"}, nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, text)

	text, ok, err = NewEngine(nil, nil).BuildContext(context.Background(), "u1", nil, nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, text)
}

func TestBuildContextSkipsCoercionPlaceholders(t *testing.T) {
	coerced, err := json.Marshal(map[string]interface{}{"ai": llm.Coerce("Рынок был волатилен весь период.", "ru")})
	require.NoError(t, err)
	english, err := json.Marshal(map[string]interface{}{"ai": llm.Coerce("A quiet week.", "en")})
	require.NoError(t, err)

	store := &fakeHistory{records: []dbmodels.AnalysisResult{
		record("period_v2", string(coerced)),
		record("period_v2", string(coerced)),
		record("period_v2", string(english)),
	}}
	text, ok, err := NewEngine(store, nil).BuildContext(context.Background(), "u1", []string{"C:EURUSD"}, nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, text)

	// real phrases still count next to coerced records
	store.records = append(store.records, record("period_v2", `{"ai":{"weaknesses":["поздний вход"]}}`))
	text, ok, err = NewEngine(store, nil).BuildContext(context.Background(), "u1", []string{"C:EURUSD"}, nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Overall top-3: поздний вход (1.0)", text)
	assert.NotContains(t, strings.ToLower(text), strings.ToLower(llm.PlaceholderRU))
}

func TestBuildContextStoreError(t *testing.T) {
	engine := NewEngine(&fakeHistory{err: errors.New("db down")}, nil)
	_, ok, err := engine.BuildContext(context.Background(), "u1", nil, nil)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestBuildContextTruncates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Weights.MaxChars = 20
	engine := NewEngine(&fakeHistory{records: []dbmodels.AnalysisResult{
		record("period_v2", `{"weaknesses":["очень длинная формулировка ошибки трейдера"]}`),
	}}, cfg)

	text, ok, err := engine.BuildContext(context.Background(), "u1", nil, nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 20, utf8.RuneCountInString(text))
	assert.True(t, strings.HasSuffix(text, "…"))
}

func TestLoadConfigMergesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personalization.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
weights:
  symbol_boost: 2.0
  max_chars: 300
synonyms:
  - pattern: "stop"
    label: "no stop"
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2.0, cfg.Weights.SymbolBoost)
	assert.Equal(t, 300, cfg.Weights.MaxChars)
	assert.Equal(t, 1.0, cfg.Weights.BaseV2)
	assert.Equal(t, 90, cfg.Weights.WindowDays)
	require.Len(t, cfg.Synonyms, 1)
	assert.Equal(t, "no stop", NormalizePhrase("Moved STOP loss", cfg.Synonyms))
}

func TestLoadConfigDefaultsAndErrors(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultWeights(), cfg.Weights)
	assert.Len(t, cfg.Synonyms, len(DefaultSynonyms))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("synonyms:\n  - pattern: \"([\"\n    label: x\n"), 0o600))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}
