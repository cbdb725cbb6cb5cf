package deliveries

import (
	"fmt"

	"github.com/angelmondragon/artmarket-backend/pkg/enums"
)

// sourceSpec describes how one backing table is read and written. Filter SQL
// is generated from it so both sources honour the same predicates.
type sourceSpec struct {
	source          enums.SourceType
	table           string
	alias           string
	timestampColumn string
	selectSQL       string
	artistPredicate string
}

func (s sourceSpec) col(name string) string {
	return fmt.Sprintf("%s.%s", s.alias, name)
}

func (s sourceSpec) orderBy() string {
	ts := s.col(s.timestampColumn)
	return fmt.Sprintf("ORDER BY (%s IS NULL), %s DESC, %s DESC", ts, ts, s.col("id"))
}

// The first line item (lowest id) decides artist and pickup data for a
// purchase. Every join is LEFT so missing profile data never drops the order.
const artworkOrderSelect = `
SELECT
	o.id,
	o.buyer_id,
	b.name AS buyer_name,
	b.email AS buyer_email,
	b.phone AS buyer_phone,
	o.shipping_address,
	o.total_amount,
	o.delivery_status,
	o.shipping_fee,
	o.assigned_partner_id,
	o.order_date,
	aw.id AS artwork_id,
	aw.title AS artwork_title,
	aw.dimensions,
	aw.style,
	ar.id AS artist_id,
	ar.name AS artist_name,
	ap.street AS pickup_street,
	ap.city AS pickup_city,
	ap.state AS pickup_state,
	ap.country AS pickup_country,
	ap.zip AS pickup_zip,
	(SELECT COUNT(*) FROM artwork_order_items ic WHERE ic.order_id = o.id) AS item_count
FROM artwork_orders o
LEFT JOIN users b ON b.id = o.buyer_id
LEFT JOIN artwork_order_items fi ON fi.id = (
	SELECT MIN(i.id) FROM artwork_order_items i WHERE i.order_id = o.id
)
LEFT JOIN artworks aw ON aw.id = fi.artwork_id
LEFT JOIN users ar ON ar.id = aw.artist_id
LEFT JOIN artist_profiles ap ON ap.artist_id = aw.artist_id`

const commissionSelect = `
SELECT
	c.id,
	c.buyer_id,
	b.name AS buyer_name,
	b.email AS buyer_email,
	b.phone AS buyer_phone,
	c.artist_id,
	ar.name AS artist_name,
	c.title,
	c.artwork_type,
	c.dimensions,
	c.style,
	c.urgency,
	c.deadline,
	c.budget,
	c.shipping_address,
	c.delivery_status,
	c.shipping_fee,
	c.assigned_partner_id,
	c.submitted_at,
	ap.street AS pickup_street,
	ap.city AS pickup_city,
	ap.state AS pickup_state,
	ap.country AS pickup_country,
	ap.zip AS pickup_zip
FROM commission_requests c
LEFT JOIN users b ON b.id = c.buyer_id
LEFT JOIN users ar ON ar.id = c.artist_id
LEFT JOIN artist_profiles ap ON ap.artist_id = c.artist_id`

var artworkOrderSource = sourceSpec{
	source:          enums.SourceArtworkOrder,
	table:           "artwork_orders",
	alias:           "o",
	timestampColumn: "order_date",
	selectSQL:       artworkOrderSelect,
	artistPredicate: `EXISTS (
	SELECT 1 FROM artwork_order_items ai
	JOIN artworks aa ON aa.id = ai.artwork_id
	WHERE ai.order_id = o.id AND aa.artist_id = ?
)`,
}

var commissionSource = sourceSpec{
	source:          enums.SourceCommissionRequest,
	table:           "commission_requests",
	alias:           "c",
	timestampColumn: "submitted_at",
	selectSQL:       commissionSelect,
	artistPredicate: "c.artist_id = ?",
}

func specFor(source enums.SourceType) (sourceSpec, error) {
	switch source {
	case enums.SourceArtworkOrder:
		return artworkOrderSource, nil
	case enums.SourceCommissionRequest:
		return commissionSource, nil
	default:
		return sourceSpec{}, fmt.Errorf("unsupported delivery source %q", source)
	}
}

// timestampColumnFor maps a status to the column stamped when it is entered.
func timestampColumnFor(status enums.DeliveryStatus) string {
	switch status {
	case enums.DeliveryStatusAccepted:
		return "accepted_at"
	case enums.DeliveryStatusOutForDelivery:
		return "out_for_delivery_at"
	case enums.DeliveryStatusDelivered:
		return "delivered_at"
	default:
		return ""
	}
}

// storedSpellings lists every value a status may be persisted as. Rows written
// by older storefront code still carry the camelCase and N/A spellings.
func storedSpellings(status enums.DeliveryStatus) []string {
	switch status {
	case enums.DeliveryStatusOutForDelivery:
		return []string{string(status), "outForDelivery"}
	case enums.DeliveryStatusNotApplicable:
		return []string{string(status), "N/A"}
	default:
		return []string{string(status)}
	}
}
