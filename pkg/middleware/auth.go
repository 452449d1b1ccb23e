package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"trading_journal/pkg/auth"
)

const (
	HeaderAPIKey = "X-API-Key"
	userKey      = "username"
)

// AuthConfig static key and JWT settings for AuthMiddleware.
type AuthConfig struct {
	APIKey     string
	APIKeyUser string
	Tokens     *auth.Manager
}

var publicPaths = map[string]bool{
	"/health":            true,
	"/metrics":           true,
	"/api/v1/auth/login": true,
}

// AuthMiddleware accepts X-API-Key or "Authorization: Bearer <jwt>".
// The websocket endpoint also takes ?token= or ?api_key=.
func AuthMiddleware(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if publicPaths[path] || (!strings.HasPrefix(path, "/api/") && path != "/ws") {
			c.Next()
			return
		}

		apiKey := c.GetHeader(HeaderAPIKey)
		bearer := ""
		if h := c.GetHeader("Authorization"); h != "" {
			if !strings.HasPrefix(h, "Bearer ") {
				abort(c, "invalid Authorization format, expected 'Bearer <token>'", "INVALID_AUTH_FORMAT")
				return
			}
			bearer = strings.TrimPrefix(h, "Bearer ")
		}
		if path == "/ws" {
			if apiKey == "" {
				apiKey = c.Query("api_key")
			}
			if bearer == "" {
				bearer = c.Query("token")
			}
		}

		switch {
		case apiKey != "":
			if cfg.APIKey == "" || subtle.ConstantTimeCompare([]byte(apiKey), []byte(cfg.APIKey)) != 1 {
				logrus.WithField("path", path).Warn("rejected api key")
				abort(c, "invalid api key", "INVALID_API_KEY")
				return
			}
			c.Set(userKey, cfg.APIKeyUser)
		case bearer != "":
			if cfg.Tokens == nil {
				abort(c, "token auth disabled", "INVALID_TOKEN")
				return
			}
			claims, err := cfg.Tokens.ValidateToken(bearer)
			if err != nil {
				logrus.WithField("path", path).WithError(err).Warn("token validation failed")
				abort(c, "invalid token", "INVALID_TOKEN")
				return
			}
			c.Set(userKey, claims.Username)
		default:
			abort(c, "missing credentials", "MISSING_AUTH")
			return
		}
		c.Next()
	}
}

func abort(c *gin.Context, msg, code string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": msg,
		"code":  code,
	})
}

// GetCurrentUser user set by AuthMiddleware, empty when unauthenticated.
func GetCurrentUser(c *gin.Context) string {
	return c.GetString(userKey)
}
