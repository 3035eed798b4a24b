package worker

import (
	"github.com/spec-kit/hubops/internal/service"
)

// StartNotificationWorker subscribes the notification handlers to the
// workflow event stream. Handlers run synchronously inside Publish, so there
// is no goroutine to manage here.
func StartNotificationWorker(notifications *service.NotificationService) {
	if notifications == nil {
		return
	}
	notifications.RegisterHandlers()
}
