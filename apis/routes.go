package apis

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"trading_journal/controllers"
	"trading_journal/pkg/metrics"
	"trading_journal/pkg/middleware"
	"trading_journal/pkg/websocket"
)

// Handlers every controller mounted by SetupRoutes.
type Handlers struct {
	Auth      *controllers.AuthController
	Analysis  *controllers.AnalysisController
	Trades    *controllers.TradeController
	Macro     *controllers.MacroController
	Config    *controllers.ConfigController
	WebSocket *websocket.Handler
}

func SetupRoutes(r *gin.Engine, h Handlers, auth middleware.AuthConfig) {
	r.Use(middleware.RequestID(), middleware.Cors())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Trading Journal API is running",
		})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.Use(middleware.AuthMiddleware(auth))

	if h.WebSocket != nil {
		r.GET("/ws", h.WebSocket.HandleWebSocket)
	}

	v1 := r.Group("/api/v1")
	{
		v1.POST("/auth/login", h.Auth.Login)
		v1.GET("/user/profile", h.Auth.GetProfile)

		analysis := v1.Group("/analysis")
		{
			analysis.POST("/period", h.Analysis.AnalyzePeriod)
			analysis.GET("", h.Analysis.GetAnalysisResults)
			analysis.GET("/:id", h.Analysis.GetAnalysisByID)
		}

		trades := v1.Group("/trades")
		{
			trades.GET("", h.Trades.ListTrades)
			trades.POST("", h.Trades.CreateTrade)
			trades.GET("/:id", h.Trades.GetTrade)
			trades.PUT("/:id", h.Trades.UpdateTrade)
			trades.DELETE("/:id", h.Trades.DeleteTrade)
		}

		v1.GET("/metrics/trades", h.Trades.GetTradeMetrics)
		v1.GET("/macro/:country", h.Macro.GetCountry)

		v1.GET("/config", h.Config.GetSystemConfig)
		v1.DELETE("/cache", h.Config.FlushCaches)

		if h.WebSocket != nil {
			v1.GET("/ws/stats", h.WebSocket.Stats)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "API endpoint not found", "code": "NOT_FOUND"})
			return
		}
		c.Status(http.StatusNotFound)
	})
}
