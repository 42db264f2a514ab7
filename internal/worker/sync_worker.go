package worker

import (
	"github.com/spec-kit/platform-desk/internal/service"
)

// StartWorkers registers the event-driven background handlers: unread
// notification counters and work-item mirroring.
func StartWorkers(notificationService *service.NotificationService, syncService *service.WorkItemSyncService) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if syncService != nil {
		syncService.RegisterHandlers()
	}
}
