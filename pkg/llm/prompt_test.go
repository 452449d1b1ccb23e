package llm

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading_journal/models"
)

func TestBuildPromptCapsTrades(t *testing.T) {
	trades := make([]models.Trade, 150)
	for i := range trades {
		trades[i] = models.Trade{Ticker: fmt.Sprintf("T%03d", i), Profit: 1}
	}
	system, prompt, err := BuildPrompt(SchemaV2, PromptInput{Lang: "en", Trades: trades})
	require.NoError(t, err)

	assert.Contains(t, system, "English")
	assert.Contains(t, prompt, `"tradesTotal":150`)
	assert.Contains(t, prompt, `"T099"`)
	assert.NotContains(t, prompt, `"T100"`)
	assert.Contains(t, prompt, "Only the first 100 of 150 trades")
	assert.Contains(t, prompt, `"marketContext": non-empty string`)
	assert.Contains(t, prompt, "Do not use Markdown")
}

func TestBuildPromptPersonalizationAndVersion(t *testing.T) {
	_, prompt, err := BuildPrompt(SchemaV1, PromptInput{Personalization: "EURUSD: поздний вход (1.5)"})
	require.NoError(t, err)
	assert.Contains(t, prompt, "RECURRING ISSUES")
	assert.Contains(t, prompt, "EURUSD: поздний вход (1.5)")
	assert.NotContains(t, prompt, "marketContext")
	assert.True(t, strings.HasSuffix(prompt, "Write every text value in Russian."))

	_, prompt, err = BuildPrompt("", PromptInput{})
	require.NoError(t, err)
	assert.NotContains(t, prompt, "RECURRING ISSUES")
	assert.Contains(t, prompt, "marketContext")
}

func TestNormalizers(t *testing.T) {
	assert.Equal(t, "en", NormalizeLang(" EN "))
	assert.Equal(t, "ru", NormalizeLang("de"))
	assert.Equal(t, SchemaV1, NormalizeVersion("V1"))
	assert.Equal(t, SchemaV2, NormalizeVersion(""))
}
