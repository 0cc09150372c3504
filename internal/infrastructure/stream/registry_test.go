package stream

import (
	"fmt"
	"sync"
	"testing"

	"notification-system/pkg/logger"
)

type fakeConn struct {
	routingKey string
	userID     string

	mu     sync.Mutex
	closed bool
}

func newFakeConn(routingKey, userID string) *fakeConn {
	return &fakeConn{routingKey: routingKey, userID: userID}
}

func (f *fakeConn) Send(event string, data []byte) error { return nil }
func (f *fakeConn) Ping() error                          { return nil }
func (f *fakeConn) UserID() string                       { return f.userID }
func (f *fakeConn) RoutingKey() string                   { return f.routingKey }

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func TestRegisterAndLookupByRecipient(t *testing.T) {
	r := NewRegistry(logger.NewNop())

	r.Register("u1:a", newFakeConn("u1:a", "u1"))
	r.Register("u1:b", newFakeConn("u1:b", "u1"))
	r.Register("u2:c", newFakeConn("u2:c", "u2"))

	if got := len(r.ConnectionsForUser("u1")); got != 2 {
		t.Fatalf("expected 2 connections for u1, got %d", got)
	}
	if got := len(r.ConnectionsForUser("u2")); got != 1 {
		t.Fatalf("expected 1 connection for u2, got %d", got)
	}
	if got := len(r.ConnectionsForUser("u3")); got != 0 {
		t.Fatalf("expected 0 connections for u3, got %d", got)
	}
}

func TestLookupDoesNotMatchRecipientIDPrefix(t *testing.T) {
	r := NewRegistry(logger.NewNop())

	// "u1" must not see connections belonging to "u10".
	r.Register("u10:a", newFakeConn("u10:a", "u10"))

	if got := len(r.ConnectionsForUser("u1")); got != 0 {
		t.Fatalf("expected 0 connections for u1, got %d", got)
	}
	if got := len(r.ConnectionsForUser("u10")); got != 1 {
		t.Fatalf("expected 1 connection for u10, got %d", got)
	}
}

func TestRegisterReusedKeyClosesPreviousConnection(t *testing.T) {
	r := NewRegistry(logger.NewNop())

	first := newFakeConn("u1:a", "u1")
	second := newFakeConn("u1:a", "u1")
	r.Register("u1:a", first)
	r.Register("u1:a", second)

	if !first.isClosed() {
		t.Fatal("expected the displaced connection to be closed")
	}
	conns := r.ConnectionsForUser("u1")
	if len(conns) != 1 || conns[0] != second {
		t.Fatalf("expected only the new connection to remain, got %d", len(conns))
	}
}

func TestUnregisterIsIdempotent(t *testing.T) {
	r := NewRegistry(logger.NewNop())

	// Never registered: must be a silent no-op.
	r.Unregister("u1:missing")

	r.Register("u1:a", newFakeConn("u1:a", "u1"))
	r.Unregister("u1:a")
	r.Unregister("u1:a")

	if got := len(r.ConnectionsForUser("u1")); got != 0 {
		t.Fatalf("expected 0 connections after unregister, got %d", got)
	}
}

func TestLookupReturnsSnapshot(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	r.Register("u1:a", newFakeConn("u1:a", "u1"))

	snapshot := r.ConnectionsForUser("u1")
	r.Unregister("u1:a")

	if len(snapshot) != 1 {
		t.Fatalf("snapshot mutated by concurrent unregister: %d entries", len(snapshot))
	}
}

func TestCloseAllClosesAndEmpties(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	a := newFakeConn("u1:a", "u1")
	b := newFakeConn("u2:b", "u2")
	r.Register("u1:a", a)
	r.Register("u2:b", b)

	r.CloseAll()

	if !a.isClosed() || !b.isClosed() {
		t.Fatal("expected all connections closed")
	}
	if got := len(r.Connections()); got != 0 {
		t.Fatalf("expected empty registry, got %d connections", got)
	}
}

func TestConcurrentRegisterUnregister(t *testing.T) {
	r := NewRegistry(logger.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("u%d:conn", i%5)
			r.Register(key, newFakeConn(key, fmt.Sprintf("u%d", i%5)))
			r.ConnectionsForUser("u1")
			r.Unregister(key)
		}(i)
	}
	wg.Wait()

	if got := len(r.Connections()); got != 0 {
		t.Fatalf("expected empty registry after churn, got %d", got)
	}
}
