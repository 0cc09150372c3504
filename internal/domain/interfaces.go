package domain

import (
	"context"
	"time"
)

// Repository interfaces
type NotificationRepository interface {
	Create(ctx context.Context, notification *Notification) error
	ListByRecipient(ctx context.Context, userID string, limit int) ([]*Notification, error)
	// MarkRead sets the read flag for the recipient's notification and
	// returns the updated record. Marking an already-read notification is
	// a no-op success; a missing id returns ErrNotificationNotFound.
	MarkRead(ctx context.Context, id, userID string) (*Notification, error)
}

// Cache interfaces
type QueryCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Invalidate removes every key sharing the given prefix.
	Invalidate(ctx context.Context, prefix string) error
	Flush(ctx context.Context) error
}

// Stream interfaces
type StreamConnection interface {
	// Send pushes one encoded event onto the connection. It must not block;
	// a connection that cannot accept the event reports an error and is
	// treated as dead by callers.
	Send(event string, data []byte) error
	// Ping probes liveness without delivering an event.
	Ping() error
	Close() error
	UserID() string
	RoutingKey() string
}

type ConnectionRegistry interface {
	Register(routingKey string, conn StreamConnection)
	// Unregister is idempotent: removing an unknown key is a no-op.
	Unregister(routingKey string)
	// ConnectionsForUser returns a snapshot of the recipient's live
	// connections, safe to iterate while other connections come and go.
	ConnectionsForUser(userID string) []StreamConnection
	Connections() []StreamConnection
	CloseAll()
}

// Notification publishing
type NotificationPublisher interface {
	// Publish fans the notification out to the recipient's live
	// connections. Fire-and-forget: the durable write has already
	// happened and delivery failures never surface to the producer.
	Publish(ctx context.Context, notification *Notification)
}
