package deliveries

import (
	"context"
	"time"

	"github.com/angelmondragon/artmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/artmarket-backend/pkg/errors"
)

func (s *service) ListAll(ctx context.Context) (*DeliveryList, error) {
	return s.ListFiltered(ctx, Filters{})
}

func (s *service) ListByStatus(ctx context.Context, status enums.DeliveryStatus) (*DeliveryList, error) {
	return s.ListFiltered(ctx, Filters{Status: &status})
}

func (s *service) ListByDateRange(ctx context.Context, from, to time.Time) (*DeliveryList, error) {
	if from.IsZero() || to.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from and to are required")
	}
	return s.ListFiltered(ctx, Filters{From: &from, To: &to})
}

// ListFiltered queries each relevant source independently and merges the
// results by date. A source whose query fails is reported as degraded and
// contributes no rows; only invalid filters fail the call.
func (s *service) ListFiltered(ctx context.Context, filters Filters) (*DeliveryList, error) {
	if err := filters.validate(); err != nil {
		return nil, err
	}

	result := &DeliveryList{Requests: []DeliveryRequest{}}
	var perSource [][]DeliveryRequest
	for _, source := range filters.sources() {
		rows, err := s.repo.ListSource(ctx, source, filters)
		if err != nil {
			logCtx := s.logg.WithField(ctx, "delivery_source", string(source))
			s.logg.Error(logCtx, "delivery source query failed, returning partial listing", err)
			s.metrics.IncDegraded("list:" + string(source))
			result.DegradedSources = append(result.DegradedSources, source)
			continue
		}
		perSource = append(perSource, rows)
	}

	for _, rows := range perSource {
		result.Requests = MergeByDate(result.Requests, rows)
	}
	return result, nil
}
