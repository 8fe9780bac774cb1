package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeOrderPlaced       NotificationType = "order_placed"
	NotificationTypeOrderStatusUpdate NotificationType = "order_status_update"
	NotificationTypeOrderShipped      NotificationType = "order_shipped"
	NotificationTypeOrderDelivered    NotificationType = "order_delivered"
	NotificationTypeOrderCancelled    NotificationType = "order_cancelled"
	NotificationTypeNewCoupon         NotificationType = "new_coupon"
	NotificationTypeReviewRejected    NotificationType = "review_rejected"
	NotificationTypeAccountBanned     NotificationType = "account_banned"
	NotificationTypeGeneral           NotificationType = "general"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderPlaced,
	NotificationTypeOrderStatusUpdate,
	NotificationTypeOrderShipped,
	NotificationTypeOrderDelivered,
	NotificationTypeOrderCancelled,
	NotificationTypeNewCoupon,
	NotificationTypeReviewRejected,
	NotificationTypeAccountBanned,
	NotificationTypeGeneral,
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
