package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"trading_journal/core"
)

// Hub tracks connected clients and fans analysis events out to the owning user.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	startedAt  time.Time
}

// Client one websocket connection bound to an authenticated user.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	id     string
	userID string

	subsMu        sync.RWMutex
	subscriptions map[string]bool

	closeMu sync.Mutex
	closed  bool
}

// Message wire envelope in both directions.
type Message struct {
	Type      string      `json:"type"` // message, subscribe, unsubscribe, ping, pong, error
	DataType  string      `json:"dataType"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
	ClientID  string      `json:"clientId,omitempty"`
}

type ErrorMessage struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

const (
	MessageTypeMessage     = "message"
	MessageTypeSubscribe   = "subscribe"
	MessageTypeUnsubscribe = "unsubscribe"
	MessageTypePing        = "ping"
	MessageTypePong        = "pong"
	MessageTypeError       = "error"

	DataTypeAnalysis = "analysis"
	DataTypeSystem   = "system"

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		startedAt:  time.Now(),
	}
}

// Run serves register/unregister until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				c.safeClose()
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			logrus.WithFields(logrus.Fields{"clientId": c.id, "user": c.userID}).Info("websocket client connected")
			c.sendMessage(&Message{
				Type:     MessageTypeMessage,
				DataType: DataTypeSystem,
				Data:     map[string]string{"status": "connected", "clientId": c.id},
			})

		case c := <-h.unregister:
			h.remove(c)
		}
	}
}

// join false once the hub has stopped.
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.safeClose()
		logrus.WithField("clientId", c.id).Info("websocket client disconnected")
	}
}

// ClientCount connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Stats() map[string]interface{} {
	return map[string]interface{}{
		"connectedClients": h.ClientCount(),
		"startTime":        h.startedAt.UTC().Format(time.RFC3339),
	}
}

// OnAnalysis pushes event to the user's clients subscribed to analysis updates.
func (h *Hub) OnAnalysis(_ context.Context, event core.AnalysisEvent) error {
	data, err := json.Marshal(Message{
		Type:      MessageTypeMessage,
		DataType:  DataTypeAnalysis,
		Data:      event,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return err
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		if c.userID == event.UserID && c.subscribed(DataTypeAnalysis) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	var failed []*Client
	for _, c := range targets {
		if !c.enqueue(data) {
			failed = append(failed, c)
		}
	}
	for _, c := range failed {
		h.remove(c)
	}

	logrus.WithFields(logrus.Fields{
		"analysisId": event.ID,
		"delivered":  len(targets) - len(failed),
		"dropped":    len(failed),
	}).Debug("analysis event broadcast")
	return nil
}

func newClient(hub *Hub, conn *websocket.Conn, id, userID string) *Client {
	return &Client{
		hub:           hub,
		conn:          conn,
		send:          make(chan []byte, sendBuffer),
		id:            id,
		userID:        userID,
		subscriptions: map[string]bool{DataTypeAnalysis: true},
	}
}

func (c *Client) subscribed(dataType string) bool {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	return c.subscriptions[dataType]
}

func (c *Client) setSubscription(dataType string, on bool) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	if on {
		c.subscriptions[dataType] = true
	} else {
		delete(c.subscriptions, dataType)
	}
}

// enqueue false when the client is closed or its buffer is full.
func (c *Client) enqueue(data []byte) bool {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) safeClose() {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) sendMessage(msg *Message) {
	msg.Timestamp = time.Now().UnixMilli()
	msg.ClientID = c.id
	data, err := json.Marshal(msg)
	if err != nil {
		logrus.WithError(err).Error("marshal websocket message")
		return
	}
	if !c.enqueue(data) {
		logrus.WithField("clientId", c.id).Debug("websocket send buffer full")
	}
}

func (c *Client) sendError(code, message, details string) {
	c.sendMessage(&Message{
		Type:     MessageTypeError,
		DataType: DataTypeSystem,
		Data:     ErrorMessage{Error: message, Code: code, Details: details},
	})
}

func (c *Client) handleMessage(msg *Message) {
	switch msg.Type {
	case MessageTypeSubscribe, MessageTypeUnsubscribe:
		if msg.DataType != DataTypeAnalysis {
			c.sendError("INVALID_DATATYPE", "unsupported dataType", msg.DataType)
			return
		}
		on := msg.Type == MessageTypeSubscribe
		c.setSubscription(msg.DataType, on)
		action := "unsubscribed"
		if on {
			action = "subscribed"
		}
		c.sendMessage(&Message{
			Type:     MessageTypeMessage,
			DataType: DataTypeSystem,
			Data:     map[string]string{"action": action, "dataType": msg.DataType},
		})

	case MessageTypePing:
		c.sendMessage(&Message{Type: MessageTypePong, DataType: DataTypeSystem})

	default:
		c.sendError("UNKNOWN_MESSAGE_TYPE", "unknown message type", msg.Type)
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithError(err).WithField("clientId", c.id).Warn("websocket read")
			}
			return
		}
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.sendError("INVALID_MESSAGE", "malformed message", err.Error())
			continue
		}
		c.handleMessage(&msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) start() {
	go c.writePump()
	go c.readPump()
}
