package deliveries

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/artmarket-backend/pkg/enums"
)

// Repository reads and writes the delivery columns of both source tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListSource(ctx context.Context, source enums.SourceType, filters Filters) ([]DeliveryRequest, error)
	FindByKey(ctx context.Context, key Key) (*DeliveryRequest, error)
	FindStatus(ctx context.Context, key Key) (enums.DeliveryStatus, error)
	AcceptPending(ctx context.Context, key Key, fee decimal.Decimal, partnerID int64, at time.Time) (int64, error)
	Advance(ctx context.Context, key Key, from, to enums.DeliveryStatus, at time.Time) (int64, error)
	Override(ctx context.Context, key Key, status enums.DeliveryStatus, fee *decimal.Decimal, at time.Time) (int64, error)
	CountByStatus(ctx context.Context, source enums.SourceType) ([]StatusCount, error)
	SumDeliveredArtworkTotals(ctx context.Context) (decimal.Decimal, error)
	ListDeliveredCommissionBudgets(ctx context.Context) ([]string, error)
	CountPartners(ctx context.Context) (int64, error)
	PartnerTotals(ctx context.Context, source enums.SourceType) ([]PartnerPerformance, error)
}

// StatusCount is one bucket of a GROUP BY delivery_status. Status is nil for NULL.
type StatusCount struct {
	Status *string `gorm:"column:status"`
	Total  int64   `gorm:"column:total"`
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a deliveries repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListSource(ctx context.Context, source enums.SourceType, filters Filters) ([]DeliveryRequest, error) {
	spec, err := specFor(source)
	if err != nil {
		return nil, err
	}
	where, args := filters.clauses(spec)
	query := spec.selectSQL
	if len(where) > 0 {
		query += "\nWHERE " + strings.Join(where, " AND ")
	}
	query += "\n" + spec.orderBy()
	return r.scan(ctx, spec, query, args...)
}

func (r *repository) FindByKey(ctx context.Context, key Key) (*DeliveryRequest, error) {
	spec, err := specFor(key.Source)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("%s\nWHERE %s = ?", spec.selectSQL, spec.col("id"))
	found, err := r.scan(ctx, spec, query, key.ID)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &found[0], nil
}

func (r *repository) scan(ctx context.Context, spec sourceSpec, query string, args ...any) ([]DeliveryRequest, error) {
	switch spec.source {
	case enums.SourceArtworkOrder:
		var rows []artworkOrderRow
		if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
			return nil, err
		}
		return unifyAll(rows), nil
	default:
		var rows []commissionRow
		if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
			return nil, err
		}
		return unifyAll(rows), nil
	}
}

func (r *repository) FindStatus(ctx context.Context, key Key) (enums.DeliveryStatus, error) {
	spec, err := specFor(key.Source)
	if err != nil {
		return "", err
	}
	var rows []struct {
		DeliveryStatus *string `gorm:"column:delivery_status"`
	}
	err = r.db.WithContext(ctx).
		Table(spec.table).
		Select("delivery_status").
		Where("id = ?", key.ID).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", gorm.ErrRecordNotFound
	}
	return statusFromColumn(rows[0].DeliveryStatus), nil
}

// AcceptPending is the single conditional write behind accept. Zero rows means
// the record is missing or was not pending at write time.
func (r *repository) AcceptPending(ctx context.Context, key Key, fee decimal.Decimal, partnerID int64, at time.Time) (int64, error) {
	spec, err := specFor(key.Source)
	if err != nil {
		return 0, err
	}
	res := r.db.WithContext(ctx).
		Table(spec.table).
		Where("id = ? AND delivery_status IN ?", key.ID, storedSpellings(enums.DeliveryStatusPending)).
		Updates(map[string]any{
			"delivery_status":     string(enums.DeliveryStatusAccepted),
			"shipping_fee":        fee,
			"assigned_partner_id": partnerID,
			"accepted_at":         at,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) Advance(ctx context.Context, key Key, from, to enums.DeliveryStatus, at time.Time) (int64, error) {
	spec, err := specFor(key.Source)
	if err != nil {
		return 0, err
	}
	updates := map[string]any{"delivery_status": string(to)}
	if col := timestampColumnFor(to); col != "" {
		updates[col] = at
	}
	res := r.db.WithContext(ctx).
		Table(spec.table).
		Where("id = ? AND delivery_status IN ?", key.ID, storedSpellings(from)).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) Override(ctx context.Context, key Key, status enums.DeliveryStatus, fee *decimal.Decimal, at time.Time) (int64, error) {
	spec, err := specFor(key.Source)
	if err != nil {
		return 0, err
	}
	updates := map[string]any{"delivery_status": string(status)}
	if fee != nil {
		updates["shipping_fee"] = *fee
	}
	if col := timestampColumnFor(status); col != "" {
		updates[col] = at
	}
	res := r.db.WithContext(ctx).
		Table(spec.table).
		Where("id = ?", key.ID).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) CountByStatus(ctx context.Context, source enums.SourceType) ([]StatusCount, error) {
	spec, err := specFor(source)
	if err != nil {
		return nil, err
	}
	var rows []StatusCount
	err = r.db.WithContext(ctx).
		Table(spec.table).
		Select("delivery_status AS status, COUNT(*) AS total").
		Group("delivery_status").
		Scan(&rows).Error
	return rows, err
}

func (r *repository) SumDeliveredArtworkTotals(ctx context.Context) (decimal.Decimal, error) {
	var row struct {
		Total decimal.NullDecimal `gorm:"column:total"`
	}
	err := r.db.WithContext(ctx).
		Table(artworkOrderSource.table).
		Select("COALESCE(SUM(total_amount), 0) AS total").
		Where("delivery_status IN ?", storedSpellings(enums.DeliveryStatusDelivered)).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !row.Total.Valid {
		return decimal.Zero, nil
	}
	return row.Total.Decimal, nil
}

// ListDeliveredCommissionBudgets returns raw budget text; parsing happens on read.
func (r *repository) ListDeliveredCommissionBudgets(ctx context.Context) ([]string, error) {
	var budgets []*string
	err := r.db.WithContext(ctx).
		Table(commissionSource.table).
		Where("delivery_status IN ?", storedSpellings(enums.DeliveryStatusDelivered)).
		Pluck("budget", &budgets).Error
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, deref(b))
	}
	return out, nil
}

func (r *repository) CountPartners(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("users").
		Where("role = ?", string(enums.UserRoleDeliveryPartner)).
		Count(&count).Error
	return count, err
}

func (r *repository) PartnerTotals(ctx context.Context, source enums.SourceType) ([]PartnerPerformance, error) {
	spec, err := specFor(source)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
SELECT
	t.assigned_partner_id AS partner_id,
	u.name AS partner_name,
	COUNT(*) AS assigned,
	SUM(CASE WHEN t.delivery_status IN ? THEN 1 ELSE 0 END) AS delivered,
	COALESCE(SUM(t.shipping_fee), 0) AS shipping_fees
FROM %s t
LEFT JOIN users u ON u.id = t.assigned_partner_id
WHERE t.assigned_partner_id IS NOT NULL
GROUP BY t.assigned_partner_id, u.name
ORDER BY t.assigned_partner_id`, spec.table)

	var rows []struct {
		PartnerID    int64               `gorm:"column:partner_id"`
		PartnerName  *string             `gorm:"column:partner_name"`
		Assigned     int64               `gorm:"column:assigned"`
		Delivered    int64               `gorm:"column:delivered"`
		ShippingFees decimal.NullDecimal `gorm:"column:shipping_fees"`
	}
	if err := r.db.WithContext(ctx).Raw(query, storedSpellings(enums.DeliveryStatusDelivered)).Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]PartnerPerformance, 0, len(rows))
	for _, row := range rows {
		fees := decimal.Zero
		if row.ShippingFees.Valid {
			fees = row.ShippingFees.Decimal
		}
		out = append(out, PartnerPerformance{
			PartnerID:    row.PartnerID,
			PartnerName:  deref(row.PartnerName),
			Assigned:     row.Assigned,
			Delivered:    row.Delivered,
			ShippingFees: fees,
		})
	}
	return out, nil
}
