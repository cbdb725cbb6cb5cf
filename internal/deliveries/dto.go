package deliveries

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/artmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/artmarket-backend/pkg/errors"
)

// Key identifies a delivery request. Ids are only unique within a source, so
// the pair is the identity everywhere in this package.
type Key struct {
	ID     int64            `json:"id"`
	Source enums.SourceType `json:"source_type"`
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%d", k.Source, k.ID)
}

func (k Key) validate() error {
	if k.ID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery id must be positive")
	}
	if !k.Source.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown delivery source type").
			WithDetails(map[string]any{"source_type": k.Source})
	}
	return nil
}

// ParseKey builds a Key from raw path values.
func ParseKey(rawSource string, id int64) (Key, error) {
	source, err := enums.ParseSourceType(rawSource)
	if err != nil {
		return Key{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid source type")
	}
	key := Key{ID: id, Source: source}
	if err := key.validate(); err != nil {
		return Key{}, err
	}
	return key, nil
}

type Party struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
	Zip     string `json:"zip"`
}

// ArtworkDetails carries the fields only catalog purchases have.
type ArtworkDetails struct {
	ArtworkID int64 `json:"artwork_id,omitempty"`
	ItemCount int   `json:"item_count"`
}

// CommissionDetails carries the fields only commission requests have.
type CommissionDetails struct {
	RawBudget string `json:"raw_budget"`
}

// DeliveryRequest is the unified read model over artwork orders and commission
// requests. Exactly one of Artwork or Commission is set, matching SourceType.
type DeliveryRequest struct {
	ID                int64                `json:"id"`
	SourceType        enums.SourceType     `json:"source_type"`
	Buyer             Party                `json:"buyer"`
	ShippingAddress   string               `json:"shipping_address"`
	Artist            Party                `json:"artist"`
	PickupAddress     Address              `json:"pickup_address"`
	PickupCity        string               `json:"pickup_city"`
	ItemTitle         string               `json:"item_title"`
	ItemType          string               `json:"item_type"`
	Dimensions        *string              `json:"dimensions,omitempty"`
	Style             *string              `json:"style,omitempty"`
	Urgency           *string              `json:"urgency,omitempty"`
	Deadline          *time.Time           `json:"deadline,omitempty"`
	TotalAmount       decimal.Decimal      `json:"total_amount"`
	DeliveryStatus    enums.DeliveryStatus `json:"delivery_status"`
	ShippingFee       *decimal.Decimal     `json:"shipping_fee"`
	AssignedPartnerID *int64               `json:"assigned_partner_id"`
	OrderDate         *time.Time           `json:"order_date"`
	Artwork           *ArtworkDetails      `json:"artwork,omitempty"`
	Commission        *CommissionDetails   `json:"commission,omitempty"`
}

func (d DeliveryRequest) Key() Key {
	return Key{ID: d.ID, Source: d.SourceType}
}

// DeliveryList is a listing result. DegradedSources names sources whose query
// failed and therefore contributed nothing.
type DeliveryList struct {
	Requests        []DeliveryRequest  `json:"requests"`
	DegradedSources []enums.SourceType `json:"degraded_sources,omitempty"`
}

// AcceptInput is the payload of a pending to accepted transition.
type AcceptInput struct {
	Key         Key
	ShippingFee decimal.Decimal
	PartnerID   int64
	Actor       Actor
}

// SetStatusInput is the administrative override payload.
type SetStatusInput struct {
	Key         Key
	Status      enums.DeliveryStatus
	ShippingFee *decimal.Decimal
	Actor       Actor
}

// Actor is who triggered a transition, recorded on the outbox event.
type Actor struct {
	UserID int64
	Role   enums.UserRole
}

// Statistics is the dashboard aggregate. Every metric is computed live and
// defaults to zero when its query fails; failed metrics are listed in
// DegradedMetrics.
type Statistics struct {
	Total                int64                `json:"total"`
	Active               int64                `json:"active"`
	Completed            int64                `json:"completed"`
	Pending              int64                `json:"pending"`
	TotalRevenue         decimal.Decimal      `json:"total_revenue"`
	CommissionRevenue    decimal.Decimal      `json:"commission_revenue"`
	CombinedRevenue      decimal.Decimal      `json:"combined_revenue"`
	PartnerCount         int64                `json:"partner_count"`
	AverageDeliveryHours float64              `json:"average_delivery_hours"`
	AverageRating        float64              `json:"average_rating"`
	PartnerPerformance   []PartnerPerformance `json:"partner_performance"`
	DegradedMetrics      []string             `json:"degraded_metrics,omitempty"`
}

type PartnerPerformance struct {
	PartnerID    int64           `json:"partner_id"`
	PartnerName  string          `json:"partner_name"`
	Assigned     int64           `json:"assigned"`
	Delivered    int64           `json:"delivered"`
	ShippingFees decimal.Decimal `json:"shipping_fees"`
}

// StatsConfig holds the dashboard values that are configured rather than measured.
type StatsConfig struct {
	AverageDeliveryHours float64
	AverageRating        float64
}
