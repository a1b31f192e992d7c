package worker

import (
	"github.com/spec-kit/maintenance-service/internal/service"
)

// StartNotificationWorker subscribes the notification service to lifecycle
// events. It must run before the first transition is served.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
