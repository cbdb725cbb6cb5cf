package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/artmarket-backend/pkg/enums"
)

// CommissionRequest is a custom artwork request. Budget is free text as typed
// by the buyer and is parsed on every read.
type CommissionRequest struct {
	ID                int64                 `gorm:"column:id;primaryKey;autoIncrement"`
	BuyerID           int64                 `gorm:"column:buyer_id;not null"`
	ArtistID          int64                 `gorm:"column:artist_id;not null"`
	Title             string                `gorm:"column:title;not null"`
	ArtworkType       *string               `gorm:"column:artwork_type"`
	Dimensions        *string               `gorm:"column:dimensions"`
	Style             *string               `gorm:"column:style"`
	Urgency           *string               `gorm:"column:urgency"`
	Deadline          *time.Time            `gorm:"column:deadline"`
	Budget            *string               `gorm:"column:budget"`
	ShippingAddress   *string               `gorm:"column:shipping_address"`
	DeliveryStatus    *enums.DeliveryStatus `gorm:"column:delivery_status;type:text;default:pending"`
	ShippingFee       decimal.NullDecimal   `gorm:"column:shipping_fee;type:numeric(12,2)"`
	AssignedPartnerID *int64                `gorm:"column:assigned_partner_id"`
	SubmittedAt       *time.Time            `gorm:"column:submitted_at"`
	AcceptedAt        *time.Time            `gorm:"column:accepted_at"`
	OutForDeliveryAt  *time.Time            `gorm:"column:out_for_delivery_at"`
	DeliveredAt       *time.Time            `gorm:"column:delivered_at"`
}
