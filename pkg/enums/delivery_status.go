package enums

import (
	"fmt"
	"strings"
)

// DeliveryStatus is the shared lifecycle column on artwork_orders and commission_requests.
type DeliveryStatus string

const (
	DeliveryStatusPending        DeliveryStatus = "pending"
	DeliveryStatusAccepted       DeliveryStatus = "accepted"
	DeliveryStatusOutForDelivery DeliveryStatus = "out_for_delivery"
	DeliveryStatusDelivered      DeliveryStatus = "delivered"
	DeliveryStatusNotApplicable  DeliveryStatus = "not_applicable"
)

var validDeliveryStatuses = []DeliveryStatus{
	DeliveryStatusPending,
	DeliveryStatusAccepted,
	DeliveryStatusOutForDelivery,
	DeliveryStatusDelivered,
	DeliveryStatusNotApplicable,
}

// legacy spellings still written by the storefront
var deliveryStatusAliases = map[string]DeliveryStatus{
	"outfordelivery":   DeliveryStatusOutForDelivery,
	"out-for-delivery": DeliveryStatusOutForDelivery,
	"n/a":              DeliveryStatusNotApplicable,
	"na":               DeliveryStatusNotApplicable,
}

// String implements fmt.Stringer.
func (s DeliveryStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a canonical DeliveryStatus.
func (s DeliveryStatus) IsValid() bool {
	for _, candidate := range validDeliveryStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsActive reports whether a partner currently holds the delivery.
func (s DeliveryStatus) IsActive() bool {
	return s == DeliveryStatusAccepted || s == DeliveryStatusOutForDelivery
}

// Next returns the status that follows s in the forward flow.
func (s DeliveryStatus) Next() (DeliveryStatus, bool) {
	switch s {
	case DeliveryStatusPending:
		return DeliveryStatusAccepted, true
	case DeliveryStatusAccepted:
		return DeliveryStatusOutForDelivery, true
	case DeliveryStatusOutForDelivery:
		return DeliveryStatusDelivered, true
	default:
		return "", false
	}
}

// ParseDeliveryStatus converts raw input into a DeliveryStatus, accepting legacy aliases.
func ParseDeliveryStatus(value string) (DeliveryStatus, error) {
	trimmed := strings.TrimSpace(value)
	for _, candidate := range validDeliveryStatuses {
		if string(candidate) == trimmed {
			return candidate, nil
		}
	}
	if alias, ok := deliveryStatusAliases[strings.ToLower(trimmed)]; ok {
		return alias, nil
	}
	return "", fmt.Errorf("invalid delivery status %q", value)
}
