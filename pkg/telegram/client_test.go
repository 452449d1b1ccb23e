package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading_journal/core"
	"trading_journal/models"
	dbmodels "trading_journal/pkg/models"
)

type recordingSender struct {
	texts []string
	err   error
}

func (r *recordingSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if r.err != nil {
		return tgbotapi.Message{}, r.err
	}
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		r.texts = append(r.texts, msg.Text)
	}
	return tgbotapi.Message{}, nil
}

type fakeHistory struct {
	rows []dbmodels.AnalysisResult
}

func (f fakeHistory) ListAnalysisResults(context.Context, string, int, int) ([]dbmodels.AnalysisResult, int64, error) {
	return f.rows, int64(len(f.rows)), nil
}

func TestSplitLongMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitLongMessage("short", 10))

	parts := splitLongMessage("aaaa\nbbbb\ncccc", 9)
	assert.Equal(t, []string{"aaaa\nbbbb", "cccc"}, parts)

	parts = splitLongMessage(strings.Repeat("я", 25), 10)
	require.Len(t, parts, 3)
	assert.Equal(t, 10, len([]rune(parts[0])))
	assert.Equal(t, 5, len([]rune(parts[2])))
}

func TestOnAnalysisFormatsEvent(t *testing.T) {
	sender := &recordingSender{}
	n := newNotifier(sender, 42)

	err := n.OnAnalysis(context.Background(), core.AnalysisEvent{
		UserID:      "u1",
		Symbols:     []string{"C:EURUSD"},
		Period:      models.AnalysisPeriod{From: "2024-09-01", To: "2024-09-10", Timespan: "day"},
		Metrics:     models.TradeMetrics{TradesCount: 3, Wins: 2, WinRate: 0.6667, TotalProfit: 12, AvgProfit: 4},
		Status:      "ok",
		Model:       "claude-sonnet-4-5",
		TextSummary: "Стабильный период.",
		CreatedAt:   time.Date(2024, 9, 10, 8, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, sender.texts, 1)
	text := sender.texts[0]
	assert.Contains(t, text, "C:EURUSD")
	assert.Contains(t, text, "wins 2 (66.7%)")
	assert.Contains(t, text, "2024-09-10 08:00:00")
	assert.True(t, strings.HasSuffix(text, "Стабильный период."))
}

func TestSendMessageError(t *testing.T) {
	n := newNotifier(&recordingSender{err: errors.New("forbidden")}, 42)
	assert.Error(t, n.SendMessage("hi"))
}

func TestRecentCommand(t *testing.T) {
	sender := &recordingSender{}
	n := newNotifier(sender, 42)
	assert.Equal(t, "History is not available.", n.recent(context.Background()))

	n.user = "u1"
	n.history = fakeHistory{rows: []dbmodels.AnalysisResult{{ID: "a1", Model: "none", CreatedAt: time.Date(2024, 9, 10, 8, 0, 0, 0, time.UTC)}}}
	n.handleCommand(context.Background(), "recent")
	require.Len(t, sender.texts, 1)
	assert.Contains(t, sender.texts[0], "2024-09-10 08:00  none  a1")
}

func TestNewRequiresToken(t *testing.T) {
	_, err := New("", 1, nil, "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
