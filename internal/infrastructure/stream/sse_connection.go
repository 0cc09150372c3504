package stream

import (
	"errors"
	"fmt"
	"sync"

	"notification-system/pkg/logger"
)

var (
	ErrConnectionClosed = errors.New("stream connection closed")
	ErrBufferFull       = errors.New("stream buffer full")
)

// keepaliveFrame is an SSE comment line; clients ignore it but a broken
// socket surfaces the write error on the serving side.
var keepaliveFrame = []byte(": keepalive\n\n")

// SSEConnection queues pre-framed server-sent events for one client. The
// serving goroutine drains Frames until the client disconnects or Close is
// called; Send never blocks, so a consumer that stopped draining is
// reported dead instead of stalling a broadcast.
type SSEConnection struct {
	routingKey string
	userID     string
	frames     chan []byte
	done       chan struct{}
	closeOnce  sync.Once
	log        logger.Logger
}

func NewSSEConnection(routingKey, userID string, bufferSize int, log logger.Logger) *SSEConnection {
	if bufferSize <= 0 {
		bufferSize = 16
	}
	return &SSEConnection{
		routingKey: routingKey,
		userID:     userID,
		frames:     make(chan []byte, bufferSize),
		done:       make(chan struct{}),
		log:        log,
	}
}

func (c *SSEConnection) Send(event string, data []byte) error {
	frame := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event, data))
	return c.enqueue(frame)
}

func (c *SSEConnection) Ping() error {
	return c.enqueue(keepaliveFrame)
}

func (c *SSEConnection) enqueue(frame []byte) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.frames <- frame:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	default:
		return ErrBufferFull
	}
}

func (c *SSEConnection) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return nil
}

func (c *SSEConnection) UserID() string {
	return c.userID
}

func (c *SSEConnection) RoutingKey() string {
	return c.routingKey
}

// Frames is drained by the serving goroutine.
func (c *SSEConnection) Frames() <-chan []byte {
	return c.frames
}

// Done is closed when the connection is torn down server-side.
func (c *SSEConnection) Done() <-chan struct{} {
	return c.done
}
