package notifications

import "github.com/fshasan/feedback-pulse/internal/models"

// NotificationInterface defines the contract for notification services
type NotificationInterface interface {
	SendReport(report *models.Report) error
	SendAlert(alert *models.Alert) error
}
