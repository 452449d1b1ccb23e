package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"trading_journal/apis"
	"trading_journal/controllers"
	"trading_journal/core"
	"trading_journal/pkg/auth"
	"trading_journal/pkg/config"
	"trading_journal/pkg/database"
	"trading_journal/pkg/llm"
	"trading_journal/pkg/macro"
	"trading_journal/pkg/marketdata"
	"trading_journal/pkg/middleware"
	"trading_journal/pkg/news"
	"trading_journal/pkg/personalization"
	"trading_journal/pkg/redis"
	"trading_journal/pkg/scheduler"
	"trading_journal/pkg/telegram"
	"trading_journal/pkg/tracing"
	"trading_journal/pkg/websocket"
	"trading_journal/servers"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	cfg := config.LoadConfig()
	logrus.Info("starting trading journal")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := tracing.Init(cfg.TracingEnabled); err != nil {
		logrus.WithError(err).Warn("tracing disabled")
	}

	db, err := database.InitMySQL(cfg)
	if err != nil {
		logrus.Fatalf("mysql init failed: %v", err)
	}
	store := database.NewStore(db)

	var (
		redisClient *redis.Client
		shared      marketdata.SharedCache
		sharedCache *redis.Cache
		newsShared  news.SharedCache
		newsCache   *redis.Cache
	)
	if cfg.RedisEnabled {
		if redisClient, err = redis.InitRedis(cfg); err != nil {
			logrus.WithError(err).Warn("redis unavailable, shared cache tier disabled")
		} else {
			sharedCache = redis.NewCache(redisClient, redis.CacheKeyAggregates)
			shared = sharedCache
			newsCache = redis.NewCache(redisClient, redis.CacheKeyNews)
			newsShared = newsCache
		}
	}

	// one transport for every outbound provider call
	httpClient := &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()}

	gateway := marketdata.NewGateway(marketdata.Options{
		BaseURL:        cfg.PolygonBaseURL,
		APIKey:         cfg.PolygonAPIKey,
		MaxRetries:     cfg.MarketMaxRetries,
		RetryBase:      cfg.MarketRetryBase,
		RequestTimeout: cfg.MarketRequestTimeout,
		MaxPages:       cfg.MarketMaxPages,
		TTLMinute:      cfg.MarketTTLMinute,
		TTLHour:        cfg.MarketTTLHour,
		TTLDay:         cfg.MarketTTLDay,
		RateLimit:      cfg.MarketRateLimit,
		HTTPClient:     httpClient,
	}, shared)
	if !gateway.Enabled() {
		logrus.Warn("POLYGON_API_KEY not set, market data disabled")
	}

	newsEngine := news.NewEngine(news.Options{
		BaseURL:       cfg.NewsBaseURL,
		APIKey:        cfg.NewsAPIKey,
		Language:      cfg.NewsLanguage,
		PerSymbol:     cfg.NewsPerSymbol,
		ExtraKeywords: cfg.NewsExtraKeywords,
		CacheTTL:      cfg.NewsCacheTTL,
		HTTPClient:    httpClient,
		Shared:        newsShared,
	}, store)
	if !newsEngine.Enabled() {
		logrus.Warn("NEWS_API_KEY not set, news served from storage only")
	}

	macroService := macro.NewService(macro.Options{
		FREDBaseURL:    cfg.FREDBaseURL,
		FREDAPIKey:     cfg.FREDAPIKey,
		FinnhubBaseURL: cfg.FinnhubBaseURL,
		FinnhubAPIKey:  cfg.FinnhubAPIKey,
		HTTPClient:     httpClient,
	}, store)

	personalCfg, err := personalization.LoadConfig(cfg.PersonalizationConfig)
	if err != nil {
		logrus.WithError(err).WithField("path", cfg.PersonalizationConfig).Warn("personalization config rejected, using defaults")
		personalCfg = personalization.DefaultConfig()
	}
	personal := personalization.NewEngine(store, personalCfg)

	orchestrator := llm.NewOrchestrator(newLLMRouter(ctx, cfg, httpClient), llm.Options{
		Model:         cfg.LLMModel,
		FallbackModel: cfg.LLMFallbackModel,
		Timeout:       cfg.LLMTimeout,
	})
	if !orchestrator.Enabled() {
		logrus.Warn("no LLM provider configured, analyses fall back to metrics only")
	}

	analyzer := core.NewPeriodAnalyzer(core.Dependencies{
		Market:          gateway,
		News:            newsEngine,
		Macro:           macroService,
		Personalization: personal,
		LLM:             orchestrator,
		Store:           store,
	}, core.Options{
		MarketPrefix:       cfg.MarketPrefix,
		Workers:            cfg.AnalysisWorkers,
		MacroLookbackDays:  cfg.MacroLookbackDays,
		MacroExcludeMinute: cfg.MacroExcludeMinute,
		PromptVersion:      cfg.LLMPromptVersion,
		Lang:               cfg.AILang,
	})

	hub := websocket.NewHub()
	go hub.Run(ctx)
	analyzer.AddListener(hub)

	if notifier, err := telegram.New(cfg.TelegramBotToken, cfg.TelegramChatID, store, cfg.APIKeyUser); err == nil {
		analyzer.AddListener(notifier)
		go notifier.Listen(ctx)
	} else if cfg.TelegramBotToken != "" {
		logrus.WithError(err).Error("telegram init failed")
	}

	jobs := scheduler.New(ctx, scheduler.Options{
		CacheSweepCron:   cfg.CacheSweepCron,
		MacroRefreshCron: cfg.MacroRefreshCron,
		MacroCountries:   cfg.MacroCountries,
		MacroLookback:    time.Duration(cfg.MacroLookbackDays) * 24 * time.Hour,
	}, map[string]scheduler.Sweeper{
		"market": gateway.LocalCache(),
		"news":   newsEngine.Cache(),
	}, macroService)
	if err := jobs.RegisterAll(); err != nil {
		logrus.Fatalf("scheduler: %v", err)
	}
	jobs.Start()

	flushers := map[string]controllers.CacheFlusher{
		"market": controllers.CacheFlusherFunc(func(context.Context) (int, error) {
			return gateway.LocalCache().Clear(), nil
		}),
	}
	if sharedCache != nil {
		flushers["shared"] = controllers.CacheFlusherFunc(func(ctx context.Context) (int, error) {
			return sharedCache.DeletePattern(ctx, "*")
		})
	}
	if newsCache != nil {
		flushers["news_shared"] = controllers.CacheFlusherFunc(func(ctx context.Context) (int, error) {
			return newsCache.DeletePattern(ctx, "*")
		})
	}

	tokens := auth.NewManager(cfg.JWTSecret, cfg.AdminUsername, cfg.AdminPassword, 24*time.Hour)
	server := servers.NewHTTPServer(cfg.HTTPPort, cfg.LogLevel, apis.Handlers{
		Auth:      controllers.NewAuthController(tokens),
		Analysis:  controllers.NewAnalysisController(analyzer, store),
		Trades:    controllers.NewTradeController(store, cfg.MarketPrefix),
		Macro:     controllers.NewMacroController(macroService, cfg.MacroLookbackDays),
		Config:    controllers.NewConfigController(cfg, flushers),
		WebSocket: websocket.NewHandler(hub),
	}, middleware.AuthConfig{
		APIKey:     cfg.APIKey,
		APIKeyUser: cfg.APIKeyUser,
		Tokens:     tokens,
	})

	go func() {
		if err := server.Start(); err != nil {
			logrus.WithError(err).Error("http server stopped")
			stop()
		}
	}()
	logrus.Info("trading journal started")

	<-ctx.Done()
	gracefulShutdown(server, jobs, redisClient)
}

// newLLMRouter registers a provider for every configured API key.
func newLLMRouter(ctx context.Context, cfg *config.Config, httpClient *http.Client) *llm.Router {
	settings := llm.GenerationSettings{
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: cfg.LLMTemperature,
		HTTPClient:  httpClient,
	}
	router := llm.NewRouter()
	if cfg.AnthropicAPIKey != "" {
		router.Register(llm.ProviderClaude, llm.NewAnthropicProvider(cfg.AnthropicAPIKey, settings))
	}
	if cfg.GeminiAPIKey != "" {
		gemini, err := llm.NewGeminiProvider(ctx, cfg.GeminiAPIKey, settings)
		if err != nil {
			logrus.WithError(err).Warn("gemini provider disabled")
		} else {
			router.Register(llm.ProviderGemini, gemini)
		}
	}
	return router
}

func gracefulShutdown(server *servers.HTTPServer, jobs *scheduler.Scheduler, redisClient *redis.Client) {
	logrus.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.WithError(err).Warn("http shutdown")
	}
	jobs.Stop()
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logrus.WithError(err).Warn("redis close")
		}
	}
	if db, err := database.GetDB().DB(); err == nil {
		_ = db.Close()
	}
	if err := tracing.Shutdown(ctx); err != nil {
		logrus.WithError(err).Warn("tracing shutdown")
	}

	logrus.Info("trading journal stopped")
}
