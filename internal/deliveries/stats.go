package deliveries

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/artmarket-backend/pkg/enums"
	"github.com/angelmondragon/artmarket-backend/pkg/money"
)

// Statistics computes the dashboard aggregate live. Individual metric failures
// are logged, zeroed and listed in DegradedMetrics; the call itself never fails.
func (s *service) Statistics(ctx context.Context) (*Statistics, error) {
	stats := &Statistics{
		TotalRevenue:         decimal.Zero,
		CommissionRevenue:    decimal.Zero,
		CombinedRevenue:      decimal.Zero,
		AverageDeliveryHours: s.stats.AverageDeliveryHours,
		AverageRating:        s.stats.AverageRating,
		PartnerPerformance:   []PartnerPerformance{},
	}

	for _, source := range enums.AllSourceTypes() {
		counts, err := s.repo.CountByStatus(ctx, source)
		if err != nil {
			s.degrade(ctx, stats, "status_counts."+string(source), err)
			continue
		}
		for _, c := range counts {
			addStatusCount(stats, statusFromColumn(c.Status), c.Total)
		}
	}

	if total, err := s.repo.SumDeliveredArtworkTotals(ctx); err != nil {
		s.degrade(ctx, stats, "total_revenue", err)
	} else {
		stats.TotalRevenue = total
	}

	if budgets, err := s.repo.ListDeliveredCommissionBudgets(ctx); err != nil {
		s.degrade(ctx, stats, "commission_revenue", err)
	} else {
		parsed := make([]decimal.Decimal, 0, len(budgets))
		for _, raw := range budgets {
			parsed = append(parsed, money.ParseBudget(raw))
		}
		stats.CommissionRevenue = money.Sum(parsed...)
	}
	stats.CombinedRevenue = stats.TotalRevenue.Add(stats.CommissionRevenue)

	if count, err := s.repo.CountPartners(ctx); err != nil {
		s.degrade(ctx, stats, "partner_count", err)
	} else {
		stats.PartnerCount = count
	}

	byPartner := map[int64]*PartnerPerformance{}
	for _, source := range enums.AllSourceTypes() {
		rows, err := s.repo.PartnerTotals(ctx, source)
		if err != nil {
			s.degrade(ctx, stats, "partner_performance."+string(source), err)
			continue
		}
		for _, row := range rows {
			current, ok := byPartner[row.PartnerID]
			if !ok {
				copied := row
				byPartner[row.PartnerID] = &copied
				continue
			}
			current.Assigned += row.Assigned
			current.Delivered += row.Delivered
			current.ShippingFees = current.ShippingFees.Add(row.ShippingFees)
			if current.PartnerName == "" {
				current.PartnerName = row.PartnerName
			}
		}
	}
	for _, p := range byPartner {
		stats.PartnerPerformance = append(stats.PartnerPerformance, *p)
	}
	sort.Slice(stats.PartnerPerformance, func(i, j int) bool {
		return stats.PartnerPerformance[i].PartnerID < stats.PartnerPerformance[j].PartnerID
	})

	return stats, nil
}

// addStatusCount buckets one status. Unset and not_applicable rows count as
// pending, matching how the dashboard has always reported them.
func addStatusCount(stats *Statistics, status enums.DeliveryStatus, n int64) {
	stats.Total += n
	switch {
	case status.IsActive():
		stats.Active += n
	case status == enums.DeliveryStatusDelivered:
		stats.Completed += n
	case status == enums.DeliveryStatusPending, status == enums.DeliveryStatusNotApplicable, status == "":
		stats.Pending += n
	}
}

func (s *service) degrade(ctx context.Context, stats *Statistics, metric string, err error) {
	logCtx := s.logg.WithField(ctx, "metric", metric)
	s.logg.Error(logCtx, "delivery statistic unavailable", err)
	s.metrics.IncDegraded("stats:" + metric)
	stats.DegradedMetrics = append(stats.DegradedMetrics, metric)
}
