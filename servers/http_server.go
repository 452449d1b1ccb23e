package servers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"trading_journal/apis"
	"trading_journal/pkg/middleware"
)

type HTTPServer struct {
	engine *gin.Engine
	server *http.Server
	port   string
}

// NewHTTPServer gin runs in debug mode only when logLevel is "debug".
func NewHTTPServer(port, logLevel string, handlers apis.Handlers, auth middleware.AuthConfig) *HTTPServer {
	if logLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	apis.SetupRoutes(engine, handlers, auth)

	return &HTTPServer{
		engine: engine,
		port:   port,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%s", port),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *HTTPServer) Engine() *gin.Engine {
	return s.engine
}

// Start blocks until the server stops; a graceful shutdown returns nil.
func (s *HTTPServer) Start() error {
	logrus.WithField("port", s.port).Info("http server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
