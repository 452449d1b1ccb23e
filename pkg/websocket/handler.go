package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"trading_journal/pkg/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler gin endpoint for the analysis event stream.
type Handler struct {
	hub *Hub
}

func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// HandleWebSocket GET /ws, authenticated by middleware.AuthMiddleware.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	user := middleware.GetCurrentUser(c)
	if user == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "code": "MISSING_AUTH"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := newClient(h.hub, conn, uuid.NewString(), user)
	if !h.hub.join(client) {
		_ = conn.Close()
		return
	}
	client.start()

	logrus.WithFields(logrus.Fields{
		"clientId":   client.id,
		"user":       user,
		"remoteAddr": c.Request.RemoteAddr,
	}).Info("websocket connection established")
}

// Stats GET /api/v1/ws/stats
func (h *Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.hub.Stats()})
}
