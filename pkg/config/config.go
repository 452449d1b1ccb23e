package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	// HTTP
	HTTPPort string
	LogLevel string

	// Auth
	APIKey        string // static key accepted in X-API-Key
	APIKeyUser    string // user id bound to the static key
	AdminUsername string
	AdminPassword string
	JWTSecret     string

	// MySQL
	MySQLHost     string
	MySQLPort     string
	MySQLUser     string
	MySQLPassword string
	MySQLDB       string

	// Redis
	RedisEnabled  bool
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Market data (Polygon aggregates)
	PolygonAPIKey        string
	PolygonBaseURL       string
	MarketPrefix         string
	MarketTTLMinute      time.Duration
	MarketTTLHour        time.Duration
	MarketTTLDay         time.Duration
	MarketMaxRetries     int
	MarketRetryBase      time.Duration
	MarketRequestTimeout time.Duration
	MarketMaxPages       int
	MarketRateLimit      float64
	AnalysisWorkers      int

	// News
	NewsAPIKey        string
	NewsBaseURL       string
	NewsLanguage      string
	NewsPerSymbol     int
	NewsExtraKeywords []string
	NewsCacheTTL      time.Duration

	// Macro
	FREDAPIKey         string
	FREDBaseURL        string
	FinnhubAPIKey      string
	FinnhubBaseURL     string
	MacroLookbackDays  int
	MacroExcludeMinute bool
	MacroCountries     []string

	// LLM
	LLMModel         string
	LLMFallbackModel string
	LLMTimeout       time.Duration
	LLMMaxTokens     int
	LLMTemperature   float64
	LLMPromptVersion string
	AnthropicAPIKey  string
	GeminiAPIKey     string
	AILang           string

	// Personalization
	PersonalizationConfig string

	// Telegram
	TelegramBotToken string
	TelegramChatID   int64

	// Observability and jobs
	TracingEnabled   bool
	CacheSweepCron   string
	MacroRefreshCron string
}

var GlobalConfig *Config

// LoadConfig reads .env (if present) and the process environment.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Warn(".env not found, using process environment")
	}

	GlobalConfig = &Config{
		HTTPPort: getEnv("HTTP_PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		APIKey:        getEnv("API_KEY", ""),
		APIKeyUser:    getEnv("API_KEY_USER", "default"),
		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		JWTSecret:     getEnv("JWT_SECRET", "change-me-journal-secret"),

		MySQLHost:     getEnv("MYSQL_HOST", "localhost"),
		MySQLPort:     getEnv("MYSQL_PORT", "3306"),
		MySQLUser:     getEnv("MYSQL_USER", "root"),
		MySQLPassword: getEnv("MYSQL_PASSWORD", ""),
		MySQLDB:       getEnv("MYSQL_DB", "trading_journal"),

		RedisEnabled:  getEnvBool("REDIS_ENABLED", true),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		PolygonAPIKey:        getEnv("POLYGON_API_KEY", ""),
		PolygonBaseURL:       getEnv("POLYGON_BASE_URL", "https://api.polygon.io"),
		MarketPrefix:         getEnv("MARKET_PREFIX", "C:"),
		MarketTTLMinute:      getEnvDuration("MARKET_TTL_MINUTE", "2m"),
		MarketTTLHour:        getEnvDuration("MARKET_TTL_HOUR", "15m"),
		MarketTTLDay:         getEnvDuration("MARKET_TTL_DAY", "6h"),
		MarketMaxRetries:     getEnvInt("MARKET_MAX_RETRIES", 3),
		MarketRetryBase:      getEnvDuration("MARKET_RETRY_BASE", "500ms"),
		MarketRequestTimeout: getEnvDuration("MARKET_REQUEST_TIMEOUT", "15s"),
		MarketMaxPages:       getEnvInt("MARKET_MAX_PAGES", 10),
		MarketRateLimit:      getEnvFloat("MARKET_RATE_LIMIT", 5),
		AnalysisWorkers:      getEnvInt("ANALYSIS_WORKERS", 3),

		NewsAPIKey:        getEnv("NEWS_API_KEY", ""),
		NewsBaseURL:       getEnv("NEWS_BASE_URL", "https://newsapi.org"),
		NewsLanguage:      getEnv("NEWS_LANGUAGE", "en"),
		NewsPerSymbol:     getEnvInt("NEWS_PER_SYMBOL", 5),
		NewsExtraKeywords: getEnvList("NEWS_EXTRA_KEYWORDS"),
		NewsCacheTTL:      getEnvDuration("NEWS_CACHE_TTL", "10m"),

		FREDAPIKey:         getEnv("FRED_API_KEY", ""),
		FREDBaseURL:        getEnv("FRED_BASE_URL", "https://api.stlouisfed.org/fred"),
		FinnhubAPIKey:      getEnv("FINNHUB_API_KEY", ""),
		FinnhubBaseURL:     getEnv("FINNHUB_BASE_URL", "https://finnhub.io"),
		MacroLookbackDays:  getEnvInt("MACRO_LOOKBACK_DAYS", 400),
		MacroExcludeMinute: getEnvBool("MACRO_EXCLUDE_MINUTE", true),
		MacroCountries:     defaultList(getEnvList("MACRO_COUNTRIES"), []string{"US"}),

		LLMModel:         getEnv("LLM_MODEL", "claude-sonnet-4-5"),
		LLMFallbackModel: getEnv("LLM_FALLBACK_MODEL", "gemini-2.5-flash"),
		LLMTimeout:       getEnvDuration("LLM_TIMEOUT", "60s"),
		LLMMaxTokens:     getEnvInt("LLM_MAX_TOKENS", 2048),
		LLMTemperature:   getEnvFloat("LLM_TEMPERATURE", 0.2),
		LLMPromptVersion: getEnv("LLM_PROMPT_VERSION", "v2"),
		AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		AILang:           getEnv("AI_LANG", "ru"),

		PersonalizationConfig: getEnv("PERSONALIZATION_CONFIG", ""),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   int64(getEnvInt("TELEGRAM_CHAT_ID", 0)),

		TracingEnabled:   getEnvBool("TRACING_ENABLED", false),
		CacheSweepCron:   getEnv("CACHE_SWEEP_CRON", "0 */10 * * * *"),
		MacroRefreshCron: getEnv("MACRO_REFRESH_CRON", "0 30 6 * * *"),
	}

	level, err := logrus.ParseLevel(GlobalConfig.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	logrus.Info("configuration loaded")
	return GlobalConfig
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		logrus.Warnf("cannot parse duration %s=%q, using default %s", key, value, defaultValue)
	}

	if duration, err := time.ParseDuration(defaultValue); err == nil {
		return duration
	}

	logrus.Errorf("cannot parse default duration %q, using 15s", defaultValue)
	return 15 * time.Second
}

// getEnvList splits a comma separated variable, dropping blanks.
func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func defaultList(values, fallback []string) []string {
	if len(values) == 0 {
		return fallback
	}
	return values
}
