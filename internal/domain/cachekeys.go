package domain

import "fmt"

// Cache key construction lives in one place so write paths that invalidate
// and read paths that populate can never drift apart on key shape.
// Convention: notifications:<userID>:<view...>; invalidation is by the
// recipient prefix.

func NotificationListKey(userID string, limit int) string {
	return fmt.Sprintf("notifications:%s:list:%d", userID, limit)
}

func NotificationCachePrefix(userID string) string {
	return "notifications:" + userID + ":"
}
