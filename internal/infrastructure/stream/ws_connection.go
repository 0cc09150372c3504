package stream

import (
	"encoding/json"
	"sync"
	"time"

	"notification-system/pkg/logger"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// wsEnvelope is the wire shape for websocket clients: the event name plus
// the same encoded payload SSE clients receive in the data line.
type wsEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// WebSocketConnection wraps a gorilla connection behind the registry's
// delivery contract. Writes are serialized by a mutex because the
// dispatcher and the keepalive janitor push concurrently.
type WebSocketConnection struct {
	conn       *websocket.Conn
	routingKey string
	userID     string
	writeMutex sync.Mutex
	log        logger.Logger
}

func NewWebSocketConnection(conn *websocket.Conn, routingKey, userID string, log logger.Logger) *WebSocketConnection {
	return &WebSocketConnection{
		conn:       conn,
		routingKey: routingKey,
		userID:     userID,
		log:        log,
	}
}

func (c *WebSocketConnection) Send(event string, data []byte) error {
	c.writeMutex.Lock()
	defer c.writeMutex.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(wsEnvelope{Type: event, Data: data})
}

func (c *WebSocketConnection) Ping() error {
	c.writeMutex.Lock()
	defer c.writeMutex.Unlock()

	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (c *WebSocketConnection) Close() error {
	return c.conn.Close()
}

func (c *WebSocketConnection) UserID() string {
	return c.userID
}

func (c *WebSocketConnection) RoutingKey() string {
	return c.routingKey
}
