package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/artmarket-backend/pkg/enums"
)

// ArtworkOrder is a catalog purchase. Delivery columns are only written by the
// delivery service; the row itself is created by checkout.
type ArtworkOrder struct {
	ID                int64                 `gorm:"column:id;primaryKey;autoIncrement"`
	BuyerID           int64                 `gorm:"column:buyer_id;not null"`
	ShippingAddress   *string               `gorm:"column:shipping_address"`
	TotalAmount       decimal.Decimal       `gorm:"column:total_amount;type:numeric(12,2);not null;default:0"`
	DeliveryStatus    *enums.DeliveryStatus `gorm:"column:delivery_status;type:text;default:pending"`
	ShippingFee       decimal.NullDecimal   `gorm:"column:shipping_fee;type:numeric(12,2)"`
	AssignedPartnerID *int64                `gorm:"column:assigned_partner_id"`
	OrderDate         *time.Time            `gorm:"column:order_date"`
	AcceptedAt        *time.Time            `gorm:"column:accepted_at"`
	OutForDeliveryAt  *time.Time            `gorm:"column:out_for_delivery_at"`
	DeliveredAt       *time.Time            `gorm:"column:delivered_at"`
	Items             []ArtworkOrderItem    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

type ArtworkOrderItem struct {
	ID        int64           `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID   int64           `gorm:"column:order_id;not null"`
	ArtworkID int64           `gorm:"column:artwork_id;not null"`
	Quantity  int             `gorm:"column:quantity;not null;default:1"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null;default:0"`
}
