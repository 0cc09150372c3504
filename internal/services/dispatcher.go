package services

import (
	"context"
	"encoding/json"

	"notification-system/internal/domain"
	"notification-system/pkg/logger"
)

// Dispatcher resolves a notification's live connections and pushes the
// encoded event to each. Delivery is best-effort: the durable record is
// already written before Publish runs, so failures are logged and the dead
// connection is pruned, never surfaced to the producer.
type Dispatcher struct {
	registry domain.ConnectionRegistry
	log      logger.Logger
}

func NewDispatcher(registry domain.ConnectionRegistry, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		log:      log,
	}
}

func (d *Dispatcher) Publish(ctx context.Context, notification *domain.Notification) {
	payload, err := json.Marshal(notification)
	if err != nil {
		d.log.Error("Failed to encode notification event",
			"notification_id", notification.ID, "error", err)
		return
	}

	connections := d.registry.ConnectionsForUser(notification.UserID)
	for _, conn := range connections {
		if err := conn.Send(domain.EventNotification, payload); err != nil {
			// A connection that cannot accept data is assumed dead. Remove
			// only its own routing key; the recipient's other connections
			// stay registered.
			d.log.Warn("Delivery failed, pruning connection",
				"routing_key", conn.RoutingKey(), "error", err)
			d.registry.Unregister(conn.RoutingKey())
			conn.Close()
		}
	}

	d.log.Debug("Notification published",
		"notification_id", notification.ID,
		"user_id", notification.UserID,
		"connections", len(connections))
}
