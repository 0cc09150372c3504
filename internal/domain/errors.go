package domain

import "errors"

var (
	// ErrNotificationNotFound is returned when an update targets a
	// notification that does not exist for the given recipient.
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrCacheMiss is returned by QueryCache.Get when the key is absent
	// or expired.
	ErrCacheMiss = errors.New("cache miss")
)
