package deliveries

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/artmarket-backend/pkg/enums"
	"github.com/angelmondragon/artmarket-backend/pkg/money"
)

const artworkItemType = "Artwork"

// sourceRow is one scanned row of a backing table that can be mapped into the
// unified model.
type sourceRow interface {
	unify() DeliveryRequest
}

func pickupAddress(street, city, state, country, zip *string) Address {
	return Address{
		Street:  deref(street),
		City:    deref(city),
		State:   deref(state),
		Country: deref(country),
		Zip:     deref(zip),
	}
}

func buyerParty(id int64, name, email, phone *string) Party {
	return Party{
		ID:    id,
		Name:  deref(name),
		Email: deref(email),
		Phone: deref(phone),
	}
}

// statusFromColumn keeps NULL as the empty status; unknown legacy text is
// surfaced as stored.
func statusFromColumn(raw *string) enums.DeliveryStatus {
	if raw == nil {
		return ""
	}
	if parsed, err := enums.ParseDeliveryStatus(*raw); err == nil {
		return parsed
	}
	return enums.DeliveryStatus(*raw)
}

func feeFromColumn(v decimal.NullDecimal) *decimal.Decimal {
	if !v.Valid {
		return nil
	}
	fee := v.Decimal
	return &fee
}

// artworkOrderRow is an artwork order joined with its first line item, that
// item's artwork and artist, and the artist's pickup profile.
type artworkOrderRow struct {
	ID              int64               `gorm:"column:id"`
	ShippingAddress *string             `gorm:"column:shipping_address"`
	TotalAmount     decimal.NullDecimal `gorm:"column:total_amount"`
	OrderDate       *time.Time          `gorm:"column:order_date"`
	ArtworkID       *int64              `gorm:"column:artwork_id"`
	ArtworkTitle    *string             `gorm:"column:artwork_title"`
	Dimensions      *string             `gorm:"column:dimensions"`
	Style           *string             `gorm:"column:style"`
	ArtistID        *int64              `gorm:"column:artist_id"`
	ArtistName      *string             `gorm:"column:artist_name"`
	ItemCount       int                 `gorm:"column:item_count"`

	BuyerID    int64   `gorm:"column:buyer_id"`
	BuyerName  *string `gorm:"column:buyer_name"`
	BuyerEmail *string `gorm:"column:buyer_email"`
	BuyerPhone *string `gorm:"column:buyer_phone"`

	PickupStreet  *string `gorm:"column:pickup_street"`
	PickupCity    *string `gorm:"column:pickup_city"`
	PickupState   *string `gorm:"column:pickup_state"`
	PickupCountry *string `gorm:"column:pickup_country"`
	PickupZip     *string `gorm:"column:pickup_zip"`

	DeliveryStatus    *string             `gorm:"column:delivery_status"`
	ShippingFee       decimal.NullDecimal `gorm:"column:shipping_fee"`
	AssignedPartnerID *int64              `gorm:"column:assigned_partner_id"`
}

func (r artworkOrderRow) unify() DeliveryRequest {
	pickup := pickupAddress(r.PickupStreet, r.PickupCity, r.PickupState, r.PickupCountry, r.PickupZip)
	return DeliveryRequest{
		ID:                r.ID,
		SourceType:        enums.SourceArtworkOrder,
		Buyer:             buyerParty(r.BuyerID, r.BuyerName, r.BuyerEmail, r.BuyerPhone),
		ShippingAddress:   deref(r.ShippingAddress),
		Artist:            Party{ID: derefInt(r.ArtistID), Name: deref(r.ArtistName)},
		PickupAddress:     pickup,
		PickupCity:        pickup.City,
		ItemTitle:         deref(r.ArtworkTitle),
		ItemType:          artworkItemType,
		Dimensions:        nonEmpty(r.Dimensions),
		Style:             nonEmpty(r.Style),
		TotalAmount:       money.FromNullable(r.TotalAmount),
		DeliveryStatus:    statusFromColumn(r.DeliveryStatus),
		ShippingFee:       feeFromColumn(r.ShippingFee),
		AssignedPartnerID: r.AssignedPartnerID,
		OrderDate:         utc(r.OrderDate),
		Artwork: &ArtworkDetails{
			ArtworkID: derefInt(r.ArtworkID),
			ItemCount: r.ItemCount,
		},
	}
}

type commissionRow struct {
	ID              int64      `gorm:"column:id"`
	ArtistID        int64      `gorm:"column:artist_id"`
	ArtistName      *string    `gorm:"column:artist_name"`
	Title           *string    `gorm:"column:title"`
	ArtworkType     *string    `gorm:"column:artwork_type"`
	Dimensions      *string    `gorm:"column:dimensions"`
	Style           *string    `gorm:"column:style"`
	Urgency         *string    `gorm:"column:urgency"`
	Deadline        *time.Time `gorm:"column:deadline"`
	Budget          *string    `gorm:"column:budget"`
	ShippingAddress *string    `gorm:"column:shipping_address"`
	SubmittedAt     *time.Time `gorm:"column:submitted_at"`

	BuyerID    int64   `gorm:"column:buyer_id"`
	BuyerName  *string `gorm:"column:buyer_name"`
	BuyerEmail *string `gorm:"column:buyer_email"`
	BuyerPhone *string `gorm:"column:buyer_phone"`

	PickupStreet  *string `gorm:"column:pickup_street"`
	PickupCity    *string `gorm:"column:pickup_city"`
	PickupState   *string `gorm:"column:pickup_state"`
	PickupCountry *string `gorm:"column:pickup_country"`
	PickupZip     *string `gorm:"column:pickup_zip"`

	DeliveryStatus    *string             `gorm:"column:delivery_status"`
	ShippingFee       decimal.NullDecimal `gorm:"column:shipping_fee"`
	AssignedPartnerID *int64              `gorm:"column:assigned_partner_id"`
}

func (r commissionRow) unify() DeliveryRequest {
	pickup := pickupAddress(r.PickupStreet, r.PickupCity, r.PickupState, r.PickupCountry, r.PickupZip)
	raw := deref(r.Budget)
	return DeliveryRequest{
		ID:                r.ID,
		SourceType:        enums.SourceCommissionRequest,
		Buyer:             buyerParty(r.BuyerID, r.BuyerName, r.BuyerEmail, r.BuyerPhone),
		ShippingAddress:   deref(r.ShippingAddress),
		Artist:            Party{ID: r.ArtistID, Name: deref(r.ArtistName)},
		PickupAddress:     pickup,
		PickupCity:        pickup.City,
		ItemTitle:         deref(r.Title),
		ItemType:          deref(r.ArtworkType),
		Dimensions:        nonEmpty(r.Dimensions),
		Style:             nonEmpty(r.Style),
		Urgency:           nonEmpty(r.Urgency),
		Deadline:          utc(r.Deadline),
		TotalAmount:       money.ParseBudget(raw),
		DeliveryStatus:    statusFromColumn(r.DeliveryStatus),
		ShippingFee:       feeFromColumn(r.ShippingFee),
		AssignedPartnerID: r.AssignedPartnerID,
		OrderDate:         utc(r.SubmittedAt),
		Commission:        &CommissionDetails{RawBudget: raw},
	}
}

func unifyAll[T sourceRow](rows []T) []DeliveryRequest {
	out := make([]DeliveryRequest, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.unify())
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
