package rediskey

import "fmt"

// Shared key conventions across the marketplace services.
const (
	SweepLockPrefix    = "sweep:lock"
	NotificationPrefix = "notification:unread"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildSweepLockKey returns "sweep:lock:{name}"
func BuildSweepLockKey(name string) string {
	return NamespaceKey(SweepLockPrefix, name)
}

// BuildUnreadCountKey returns "notification:unread:{userID}"
func BuildUnreadCountKey(userID string) string {
	return NamespaceKey(NotificationPrefix, userID)
}
