package services

import (
	"testing"

	"notification-system/internal/infrastructure/stream"
	"notification-system/pkg/logger"
)

func TestSweepPrunesConnectionsThatFailKeepalive(t *testing.T) {
	registry := stream.NewRegistry(logger.NewNop())
	janitor := NewJanitor(registry, "@every 30s", logger.NewNop())

	healthy := newRecordingConn("u1:healthy", "u1")
	dead := newRecordingConn("u1:dead", "u1")
	dead.failPing = true
	registry.Register(healthy.routingKey, healthy)
	registry.Register(dead.routingKey, dead)

	janitor.Sweep()

	remaining := registry.ConnectionsForUser("u1")
	if len(remaining) != 1 || remaining[0].RoutingKey() != "u1:healthy" {
		t.Fatalf("expected only the healthy connection to survive, got %d", len(remaining))
	}
	if !dead.isClosed() {
		t.Fatal("expected the dead connection to be closed")
	}
}

func TestJanitorStartStop(t *testing.T) {
	registry := stream.NewRegistry(logger.NewNop())
	janitor := NewJanitor(registry, "@every 1h", logger.NewNop())

	if err := janitor.Start(); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	if err := janitor.Stop(); err != nil {
		t.Fatalf("unexpected stop error: %v", err)
	}
}

func TestJanitorRejectsInvalidSpec(t *testing.T) {
	registry := stream.NewRegistry(logger.NewNop())
	janitor := NewJanitor(registry, "not a cron spec", logger.NewNop())

	if err := janitor.Start(); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}
