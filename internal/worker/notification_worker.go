package worker

import (
	"github.com/bsg-enterprise/ticketing/internal/service"
)

// StartNotificationWorker subscribes the notification handlers to the ticket event stream.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
