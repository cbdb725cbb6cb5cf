package enums

import "fmt"

// NotificationType tags the delivery message a recipient receives.
type NotificationType string

const (
	NotificationDeliveryAccepted NotificationType = "delivery_accepted"
	NotificationPreparePickup    NotificationType = "prepare_pickup"
	NotificationOutForDelivery   NotificationType = "out_for_delivery"
	NotificationDelivered        NotificationType = "delivered"
	NotificationDeliveredToBuyer NotificationType = "delivered_to_buyer"
)

var validNotificationTypes = []NotificationType{
	NotificationDeliveryAccepted,
	NotificationPreparePickup,
	NotificationOutForDelivery,
	NotificationDelivered,
	NotificationDeliveredToBuyer,
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

// RecipientRole identifies which party of a delivery a notification targets.
type RecipientRole string

const (
	RecipientBuyer  RecipientRole = "buyer"
	RecipientArtist RecipientRole = "artist"
)

// IsValid reports whether the value is a known RecipientRole.
func (r RecipientRole) IsValid() bool {
	return r == RecipientBuyer || r == RecipientArtist
}
