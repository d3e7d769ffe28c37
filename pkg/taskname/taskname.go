package taskname

const (
	// Advertisement tasks
	AdvertisementExpiryRun = "advertisement:expiry:run"

	// Notification tasks
	NotificationDispatch = "notification:dispatch"

	// Email tasks
	EmailSend = "email:send"
)
