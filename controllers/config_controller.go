package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"trading_journal/pkg/config"
)

// CacheFlusher drops cached entries, returning how many were removed.
type CacheFlusher interface {
	Flush(ctx context.Context) (int, error)
}

// CacheFlusherFunc adapts a function to CacheFlusher.
type CacheFlusherFunc func(ctx context.Context) (int, error)

func (f CacheFlusherFunc) Flush(ctx context.Context) (int, error) {
	return f(ctx)
}

type ConfigController struct {
	cfg      *config.Config
	flushers map[string]CacheFlusher
}

func NewConfigController(cfg *config.Config, flushers map[string]CacheFlusher) *ConfigController {
	return &ConfigController{cfg: cfg, flushers: flushers}
}

// SystemConfigResponse non-secret settings; keys are reported only as configured flags.
type SystemConfigResponse struct {
	MarketPrefix       string   `json:"market_prefix"`
	AnalysisWorkers    int      `json:"analysis_workers"`
	MacroLookbackDays  int      `json:"macro_lookback_days"`
	MacroExcludeMinute bool     `json:"macro_exclude_minute"`
	MacroCountries     []string `json:"macro_countries"`
	NewsLanguage       string   `json:"news_language"`
	NewsPerSymbol      int      `json:"news_per_symbol"`
	LLMModel           string   `json:"llm_model"`
	LLMFallbackModel   string   `json:"llm_fallback_model"`
	LLMPromptVersion   string   `json:"llm_prompt_version"`
	AILang             string   `json:"ai_lang"`
	RedisEnabled       bool     `json:"redis_enabled"`
	Providers          gin.H    `json:"providers"`
}

// GetSystemConfig GET /api/v1/config
func (cc *ConfigController) GetSystemConfig(ctx *gin.Context) {
	cfg := cc.cfg
	ctx.JSON(http.StatusOK, gin.H{
		"data": SystemConfigResponse{
			MarketPrefix:       cfg.MarketPrefix,
			AnalysisWorkers:    cfg.AnalysisWorkers,
			MacroLookbackDays:  cfg.MacroLookbackDays,
			MacroExcludeMinute: cfg.MacroExcludeMinute,
			MacroCountries:     cfg.MacroCountries,
			NewsLanguage:       cfg.NewsLanguage,
			NewsPerSymbol:      cfg.NewsPerSymbol,
			LLMModel:           cfg.LLMModel,
			LLMFallbackModel:   cfg.LLMFallbackModel,
			LLMPromptVersion:   cfg.LLMPromptVersion,
			AILang:             cfg.AILang,
			RedisEnabled:       cfg.RedisEnabled,
			Providers: gin.H{
				"polygon":   cfg.PolygonAPIKey != "",
				"news":      cfg.NewsAPIKey != "",
				"fred":      cfg.FREDAPIKey != "",
				"finnhub":   cfg.FinnhubAPIKey != "",
				"anthropic": cfg.AnthropicAPIKey != "",
				"gemini":    cfg.GeminiAPIKey != "",
				"telegram":  cfg.TelegramBotToken != "",
			},
		},
	})
}

// FlushCaches DELETE /api/v1/cache
func (cc *ConfigController) FlushCaches(ctx *gin.Context) {
	removed := gin.H{}
	for name, f := range cc.flushers {
		n, err := f.Flush(ctx.Request.Context())
		if err != nil {
			logrus.WithError(err).WithField("cache", name).Warn("cache flush failed")
			removed[name] = gin.H{"error": err.Error()}
			continue
		}
		removed[name] = n
	}
	ctx.JSON(http.StatusOK, gin.H{"data": removed})
}
