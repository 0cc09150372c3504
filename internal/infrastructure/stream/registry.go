package stream

import (
	"strings"
	"sync"

	"notification-system/internal/domain"
	"notification-system/pkg/logger"
)

// Registry is the process-wide map from routing key to live connection.
// It is the only shared mutable state in the fan-out path; every read and
// write happens under the one mutex, and lookups hand out snapshots so a
// broadcast iteration never races a concurrent connect or disconnect.
type Registry struct {
	connections map[string]domain.StreamConnection // routingKey -> connection
	mutex       sync.RWMutex
	log         logger.Logger
}

func NewRegistry(log logger.Logger) *Registry {
	return &Registry{
		connections: make(map[string]domain.StreamConnection),
		log:         log,
	}
}

// Register inserts the connection under its routing key. Keys carry a
// fresh uuid suffix per connection, so a collision means the caller reused
// a key; the previous connection is closed rather than left orphaned with
// no registry entry pointing at it.
func (r *Registry) Register(routingKey string, conn domain.StreamConnection) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if prev, exists := r.connections[routingKey]; exists {
		r.log.Warn("Routing key reused, closing previous connection", "routing_key", routingKey)
		prev.Close()
	}

	r.connections[routingKey] = conn
	r.log.Info("Connection registered", "routing_key", routingKey, "user_id", conn.UserID())
}

func (r *Registry) Unregister(routingKey string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.connections[routingKey]; !exists {
		// Idempotent: double-disconnect and dispatcher pruning may both
		// remove the same key.
		return
	}

	delete(r.connections, routingKey)
	r.log.Info("Connection unregistered", "routing_key", routingKey)
}

func (r *Registry) ConnectionsForUser(userID string) []domain.StreamConnection {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	prefix := userID + domain.RoutingKeySeparator

	var connections []domain.StreamConnection
	for key, conn := range r.connections {
		if strings.HasPrefix(key, prefix) {
			connections = append(connections, conn)
		}
	}

	return connections
}

func (r *Registry) Connections() []domain.StreamConnection {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	connections := make([]domain.StreamConnection, 0, len(r.connections))
	for _, conn := range r.connections {
		connections = append(connections, conn)
	}

	return connections
}

// CloseAll closes every connection and empties the registry. Used on
// shutdown; closing unblocks each stream handler, whose own deferred
// Unregister then finds nothing to do.
func (r *Registry) CloseAll() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for key, conn := range r.connections {
		if err := conn.Close(); err != nil {
			r.log.Error("Failed to close connection", "routing_key", key, "error", err)
		}
		delete(r.connections, key)
	}

	r.log.Info("All connections closed")
}
