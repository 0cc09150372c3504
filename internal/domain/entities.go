package domain

import (
	"time"
)

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// EventNotification is the event name pushed on stream connections when a
// notification is created.
const EventNotification = "notification"

// RoutingKeySeparator joins the recipient id and the per-connection suffix.
// Lookups match on "<userID><separator>" so a recipient id that is a prefix
// of another recipient id never matches the other's connections.
const RoutingKeySeparator = ":"

// RoutingKey builds the registry key for one live connection of a recipient.
func RoutingKey(userID, suffix string) string {
	return userID + RoutingKeySeparator + suffix
}
