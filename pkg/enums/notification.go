package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeExpenseSubmitted  NotificationType = "expense_submitted"
	NotificationTypeExpenseReviewed   NotificationType = "expense_reviewed"
	NotificationTypeInsufficientFunds NotificationType = "insufficient_funds"
	NotificationTypeSalaryUpdated     NotificationType = "salary_updated"
	NotificationTypeSalaryDue         NotificationType = "salary_due"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeExpenseSubmitted,
	NotificationTypeExpenseReviewed,
	NotificationTypeInsufficientFunds,
	NotificationTypeSalaryUpdated,
	NotificationTypeSalaryDue,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
