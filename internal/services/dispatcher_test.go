package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"notification-system/internal/domain"
	"notification-system/internal/infrastructure/stream"
	"notification-system/pkg/logger"
)

type recordingConn struct {
	routingKey string
	userID     string
	failSend   bool
	failPing   bool

	mu     sync.Mutex
	sent   [][]byte
	closed bool
}

func newRecordingConn(routingKey, userID string) *recordingConn {
	return &recordingConn{routingKey: routingKey, userID: userID}
}

func (c *recordingConn) Send(event string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSend {
		return errors.New("transport closed")
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	c.sent = append(c.sent, buf)
	return nil
}

func (c *recordingConn) Ping() error {
	if c.failPing {
		return errors.New("transport closed")
	}
	return nil
}

func (c *recordingConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *recordingConn) UserID() string     { return c.userID }
func (c *recordingConn) RoutingKey() string { return c.routingKey }

func (c *recordingConn) payloads() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *recordingConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func testNotification(userID, message string) *domain.Notification {
	return &domain.Notification{
		ID:        "n-" + userID + "-" + message,
		UserID:    userID,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}

func TestPublishFansOutToAllRecipientConnections(t *testing.T) {
	registry := stream.NewRegistry(logger.NewNop())
	dispatcher := NewDispatcher(registry, logger.NewNop())

	h1 := newRecordingConn("u1:a", "u1")
	h2 := newRecordingConn("u1:b", "u1")
	other := newRecordingConn("u2:c", "u2")
	registry.Register(h1.routingKey, h1)
	registry.Register(h2.routingKey, h2)
	registry.Register(other.routingKey, other)

	dispatcher.Publish(context.Background(), testNotification("u1", "Hi"))

	p1, p2 := h1.payloads(), h2.payloads()
	if len(p1) != 1 || len(p2) != 1 {
		t.Fatalf("expected exactly one delivery per connection, got %d and %d", len(p1), len(p2))
	}
	if !bytes.Equal(p1[0], p2[0]) {
		t.Fatalf("expected byte-identical payloads:\n%q\n%q", p1[0], p2[0])
	}
	if len(other.payloads()) != 0 {
		t.Fatal("other recipient's connection must not receive the event")
	}

	var delivered domain.Notification
	if err := json.Unmarshal(p1[0], &delivered); err != nil {
		t.Fatalf("payload is not a JSON notification: %v", err)
	}
	if delivered.Message != "Hi" || delivered.Read {
		t.Fatalf("unexpected delivered notification: %+v", delivered)
	}
}

func TestPublishPrunesOnlyTheFailedConnection(t *testing.T) {
	registry := stream.NewRegistry(logger.NewNop())
	dispatcher := NewDispatcher(registry, logger.NewNop())

	dead := newRecordingConn("u1:dead", "u1")
	dead.failSend = true
	alive := newRecordingConn("u1:alive", "u1")
	registry.Register(dead.routingKey, dead)
	registry.Register(alive.routingKey, alive)

	dispatcher.Publish(context.Background(), testNotification("u1", "Hi"))

	remaining := registry.ConnectionsForUser("u1")
	if len(remaining) != 1 {
		t.Fatalf("expected 1 surviving connection, got %d", len(remaining))
	}
	if remaining[0].RoutingKey() != "u1:alive" {
		t.Fatalf("wrong connection evicted: survivor is %s", remaining[0].RoutingKey())
	}
	if !dead.isClosed() {
		t.Fatal("expected the failed connection to be closed")
	}

	// Self-healing: a later publish reaches only the survivor.
	dispatcher.Publish(context.Background(), testNotification("u1", "again"))
	if len(alive.payloads()) != 2 {
		t.Fatalf("expected survivor to receive both events, got %d", len(alive.payloads()))
	}
}

func TestPublishWithNoConnectionsIsANoOp(t *testing.T) {
	registry := stream.NewRegistry(logger.NewNop())
	dispatcher := NewDispatcher(registry, logger.NewNop())

	// Must not panic or error; the durable record already exists.
	dispatcher.Publish(context.Background(), testNotification("nobody", "Hi"))
}

func TestPublishPreservesPerConnectionOrder(t *testing.T) {
	registry := stream.NewRegistry(logger.NewNop())
	dispatcher := NewDispatcher(registry, logger.NewNop())

	conn := newRecordingConn("u1:a", "u1")
	registry.Register(conn.routingKey, conn)

	for _, msg := range []string{"first", "second", "third"} {
		dispatcher.Publish(context.Background(), testNotification("u1", msg))
	}

	payloads := conn.payloads()
	if len(payloads) != 3 {
		t.Fatalf("expected 3 deliveries, got %d", len(payloads))
	}
	for i, want := range []string{"first", "second", "third"} {
		var n domain.Notification
		if err := json.Unmarshal(payloads[i], &n); err != nil {
			t.Fatalf("payload %d: %v", i, err)
		}
		if n.Message != want {
			t.Fatalf("delivery %d out of order: got %q, want %q", i, n.Message, want)
		}
	}
}
