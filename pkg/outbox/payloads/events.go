package payloads

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/artmarket-backend/pkg/enums"
)

// DeliveryStatusChangedEvent records every committed delivery transition.
type DeliveryStatusChangedEvent struct {
	SourceType        enums.SourceType     `json:"source_type"`
	DeliveryID        int64                `json:"delivery_id"`
	FromStatus        enums.DeliveryStatus `json:"from_status,omitempty"`
	ToStatus          enums.DeliveryStatus `json:"to_status"`
	AssignedPartnerID *int64               `json:"assigned_partner_id,omitempty"`
	ShippingFee       *decimal.Decimal     `json:"shipping_fee,omitempty"`
	Override          bool                 `json:"override,omitempty"`
	ChangedAt         time.Time            `json:"changed_at"`
}

// DeliveryNotificationRequestedEvent asks the notification worker to persist
// one in-app message for a buyer or artist.
type DeliveryNotificationRequestedEvent struct {
	RecipientID   int64                  `json:"recipient_id"`
	RecipientRole enums.RecipientRole    `json:"recipient_role"`
	Type          enums.NotificationType `json:"type"`
	Title         string                 `json:"title"`
	Message       string                 `json:"message"`
	SourceType    enums.SourceType       `json:"source_type"`
	DeliveryID    int64                  `json:"delivery_id"`
}
