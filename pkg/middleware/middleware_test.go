package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading_journal/pkg/auth"
)

func newEngine(tokens *auth.Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Cors(), AuthMiddleware(AuthConfig{APIKey: "k1", APIKeyUser: "journal", Tokens: tokens}))
	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/api/v1/me", func(c *gin.Context) { c.String(http.StatusOK, GetCurrentUser(c)) })
	r.GET("/ws", func(c *gin.Context) { c.String(http.StatusOK, GetCurrentUser(c)) })
	return r
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthAPIKey(t *testing.T) {
	r := newEngine(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set(HeaderAPIKey, "k1")
	w := serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "journal", w.Body.String())
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set(HeaderAPIKey, "wrong")
	w = serve(r, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_API_KEY")
}

func TestAuthBearer(t *testing.T) {
	tokens := auth.NewManager("secret", "admin", "pw", time.Hour)
	token, err := tokens.GenerateToken("admin")
	require.NoError(t, err)
	r := newEngine(tokens)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Token "+token)
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin", w.Body.String())
}

func TestAuthMissingAndPublic(t *testing.T) {
	r := newEngine(nil)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "MISSING_AUTH")

	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
}

func TestCorsPreflight(t *testing.T) {
	r := newEngine(nil)
	w := serve(r, httptest.NewRequest(http.MethodOptions, "/api/v1/me", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDPropagates(t *testing.T) {
	r := newEngine(nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	assert.Equal(t, "abc-123", serve(r, req).Header().Get(HeaderRequestID))
}
