package handlers

import (
	"net/http"

	"notification-system/internal/api/middleware"
	"notification-system/internal/domain"
	"notification-system/internal/infrastructure/stream"
	"notification-system/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type StreamHandler struct {
	registry   domain.ConnectionRegistry
	bufferSize int
	log        logger.Logger
}

func NewStreamHandler(registry domain.ConnectionRegistry, bufferSize int, log logger.Logger) *StreamHandler {
	return &StreamHandler{
		registry:   registry,
		bufferSize: bufferSize,
		log:        log,
	}
}

// Stream holds one server-sent-events connection open for the
// authenticated recipient, pushing frames as the dispatcher delivers them.
// The handler is purely reactive: nothing is written except delivered
// events and keepalives. Every exit path runs the deferred Unregister.
func (h *StreamHandler) Stream(c echo.Context) error {
	userID, _ := c.Get(middleware.ContextKeyUserID).(string)
	if userID == "" {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Authentication required"})
	}

	routingKey := domain.RoutingKey(userID, uuid.NewString())
	conn := stream.NewSSEConnection(routingKey, userID, h.bufferSize, h.log)

	h.registry.Register(routingKey, conn)
	defer func() {
		h.registry.Unregister(routingKey)
		conn.Close()
	}()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-conn.Done():
			return nil
		case frame := <-conn.Frames():
			if _, err := w.Write(frame); err != nil {
				h.log.Warn("Stream write failed", "routing_key", routingKey, "error", err)
				return nil
			}
			w.Flush()
		}
	}
}

// StreamWS is the websocket variant of the stream endpoint. Inbound
// messages are ignored apart from client pings; delivery goes through the
// same registry and dispatcher as SSE connections.
func (h *StreamHandler) StreamWS(c echo.Context) error {
	userID, _ := c.Get(middleware.ContextKeyUserID).(string)
	if userID == "" {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Authentication required"})
	}

	wsConn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "user_id", userID, "error", err)
		return nil
	}

	routingKey := domain.RoutingKey(userID, uuid.NewString())
	conn := stream.NewWebSocketConnection(wsConn, routingKey, userID, h.log)

	h.registry.Register(routingKey, conn)
	defer func() {
		h.registry.Unregister(routingKey)
		conn.Close()
	}()

	for {
		var msg map[string]interface{}
		if err := wsConn.ReadJSON(&msg); err != nil {
			return nil
		}

		if msgType, ok := msg["type"].(string); ok && msgType == "ping" {
			if err := conn.Send("pong", []byte(`{}`)); err != nil {
				return nil
			}
		}
	}
}
