package deliveries

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/artmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/artmarket-backend/pkg/errors"
	"github.com/angelmondragon/artmarket-backend/pkg/logger"
	"github.com/angelmondragon/artmarket-backend/pkg/metrics"
	"github.com/angelmondragon/artmarket-backend/pkg/outbox"
	"github.com/angelmondragon/artmarket-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Notifier is told about committed forward transitions. Implementations must
// return quickly; delivery of the resulting messages is their concern.
type Notifier interface {
	DeliveryChanged(ctx context.Context, status enums.DeliveryStatus, delivery DeliveryRequest)
}

// Service exposes the delivery read model, transitions and dashboard stats.
type Service interface {
	ListAll(ctx context.Context) (*DeliveryList, error)
	ListByStatus(ctx context.Context, status enums.DeliveryStatus) (*DeliveryList, error)
	ListByDateRange(ctx context.Context, from, to time.Time) (*DeliveryList, error)
	ListFiltered(ctx context.Context, filters Filters) (*DeliveryList, error)
	GetByID(ctx context.Context, key Key) (*DeliveryRequest, error)

	Accept(ctx context.Context, input AcceptInput) (*DeliveryRequest, error)
	// MarkOutForDelivery and MarkDelivered succeed without notifying anyone
	// when the request is already in the target status.
	MarkOutForDelivery(ctx context.Context, key Key, actor Actor) (*DeliveryRequest, error)
	MarkDelivered(ctx context.Context, key Key, actor Actor) (*DeliveryRequest, error)
	SetStatus(ctx context.Context, input SetStatusInput) (*DeliveryRequest, error)

	Statistics(ctx context.Context) (*Statistics, error)
}

// ServiceParams wires the deliveries service.
type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Outbox   outboxPublisher
	Notifier Notifier
	Logger   *logger.Logger
	Metrics  *metrics.DeliveryMetrics
	Stats    StatsConfig
	Now      func() time.Time
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	notifier Notifier
	logg     *logger.Logger
	metrics  *metrics.DeliveryMetrics
	stats    StatsConfig
	now      func() time.Time
}

// NewService builds the deliveries service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("deliveries repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		outbox:   params.Outbox,
		notifier: params.Notifier,
		logg:     params.Logger,
		metrics:  params.Metrics,
		stats:    params.Stats,
		now:      now,
	}, nil
}

func (s *service) GetByID(ctx context.Context, key Key) (*DeliveryRequest, error) {
	if err := key.validate(); err != nil {
		return nil, err
	}
	record, err := s.repo.FindByKey(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(key)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery request")
	}
	return record, nil
}

func (s *service) Accept(ctx context.Context, input AcceptInput) (*DeliveryRequest, error) {
	if err := input.Key.validate(); err != nil {
		return nil, err
	}
	if input.ShippingFee.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping fee must not be negative")
	}
	if input.PartnerID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "partner id must be positive")
	}

	const op = "accept"
	started := time.Now()
	ctx = s.logg.WithDelivery(ctx, string(input.Key.Source), input.Key.ID)
	at := s.now().UTC()

	var updated *DeliveryRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rows, err := repo.AcceptPending(ctx, input.Key, input.ShippingFee, input.PartnerID, at)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accept delivery request")
		}
		if rows == 0 {
			return s.classifyMiss(ctx, repo, input.Key, enums.DeliveryStatusPending)
		}
		record, err := repo.FindByKey(ctx, input.Key)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload delivery request")
		}
		fee := input.ShippingFee
		partner := input.PartnerID
		if err := s.emitChange(ctx, tx, input.Actor, payloads.DeliveryStatusChangedEvent{
			SourceType:        input.Key.Source,
			DeliveryID:        input.Key.ID,
			FromStatus:        enums.DeliveryStatusPending,
			ToStatus:          enums.DeliveryStatusAccepted,
			AssignedPartnerID: &partner,
			ShippingFee:       &fee,
			ChangedAt:         at,
		}); err != nil {
			return err
		}
		updated = record
		return nil
	})
	s.record(input.Key.Source, enums.DeliveryStatusAccepted, op, started, err)
	if err != nil {
		return nil, err
	}

	s.logg.Info(ctx, "delivery request accepted")
	s.notifier.DeliveryChanged(ctx, enums.DeliveryStatusAccepted, *updated)
	return updated, nil
}

func (s *service) MarkOutForDelivery(ctx context.Context, key Key, actor Actor) (*DeliveryRequest, error) {
	return s.advance(ctx, "out_for_delivery", key, enums.DeliveryStatusOutForDelivery, actor)
}

// MarkDelivered notifies only on the out_for_delivery to delivered step; a
// repeated call returns the current record and sends nothing.
func (s *service) MarkDelivered(ctx context.Context, key Key, actor Actor) (*DeliveryRequest, error) {
	return s.advance(ctx, "delivered", key, enums.DeliveryStatusDelivered, actor)
}

// advance moves a request one step forward. Repeating a step that already
// happened succeeds without writing, emitting or notifying.
func (s *service) advance(ctx context.Context, op string, key Key, to enums.DeliveryStatus, actor Actor) (*DeliveryRequest, error) {
	if err := key.validate(); err != nil {
		return nil, err
	}
	from, ok := predecessor(to)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status has no forward transition").
			WithDetails(map[string]any{"status": to})
	}

	started := time.Now()
	ctx = s.logg.WithDelivery(ctx, string(key.Source), key.ID)
	at := s.now().UTC()

	var (
		updated *DeliveryRequest
		changed bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rows, err := repo.Advance(ctx, key, from, to, at)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update delivery status")
		}
		if rows == 0 {
			if err := s.classifyMiss(ctx, repo, key, from, to); err != nil {
				return err
			}
		} else {
			changed = true
			if err := s.emitChange(ctx, tx, actor, payloads.DeliveryStatusChangedEvent{
				SourceType: key.Source,
				DeliveryID: key.ID,
				FromStatus: from,
				ToStatus:   to,
				ChangedAt:  at,
			}); err != nil {
				return err
			}
		}
		record, err := repo.FindByKey(ctx, key)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload delivery request")
		}
		updated = record
		return nil
	})
	if err == nil && !changed {
		s.metrics.IncTransition(string(key.Source), string(to), "noop")
		s.logg.Debug(ctx, "delivery request already in target status")
		return updated, nil
	}
	s.record(key.Source, to, op, started, err)
	if err != nil {
		return nil, err
	}

	s.logg.Info(ctx, fmt.Sprintf("delivery request moved to %s", to))
	s.notifier.DeliveryChanged(ctx, to, *updated)
	return updated, nil
}

// SetStatus writes a status without checking the current one. It exists for
// administrators repairing records and never notifies.
func (s *service) SetStatus(ctx context.Context, input SetStatusInput) (*DeliveryRequest, error) {
	if err := input.Key.validate(); err != nil {
		return nil, err
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery status").
			WithDetails(map[string]any{"status": input.Status})
	}
	if input.ShippingFee != nil && input.ShippingFee.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping fee must not be negative")
	}

	const op = "set_status"
	started := time.Now()
	ctx = s.logg.WithDelivery(ctx, string(input.Key.Source), input.Key.ID)
	at := s.now().UTC()

	var updated *DeliveryRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		previous, err := repo.FindStatus(ctx, input.Key)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound(input.Key)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery status")
		}
		rows, err := repo.Override(ctx, input.Key, input.Status, input.ShippingFee, at)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "override delivery status")
		}
		if rows == 0 {
			return notFound(input.Key)
		}
		if err := s.emitChange(ctx, tx, input.Actor, payloads.DeliveryStatusChangedEvent{
			SourceType:  input.Key.Source,
			DeliveryID:  input.Key.ID,
			FromStatus:  previous,
			ToStatus:    input.Status,
			ShippingFee: input.ShippingFee,
			Override:    true,
			ChangedAt:   at,
		}); err != nil {
			return err
		}
		record, err := repo.FindByKey(ctx, input.Key)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload delivery request")
		}
		updated = record
		return nil
	})
	s.record(input.Key.Source, input.Status, op, started, err)
	if err != nil {
		return nil, err
	}
	s.logg.Warn(ctx, fmt.Sprintf("delivery status overridden to %s", input.Status))
	return updated, nil
}

// classifyMiss explains why a guarded update touched no rows. A nil return
// means the record already sits in one of the idempotent statuses.
func (s *service) classifyMiss(ctx context.Context, repo Repository, key Key, required enums.DeliveryStatus, idempotent ...enums.DeliveryStatus) error {
	current, err := repo.FindStatus(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(key)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery status")
	}
	for _, status := range idempotent {
		if current == status {
			return nil
		}
	}
	shown := string(current)
	if shown == "" {
		shown = "unset"
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery request is not in the required status").
		WithDetails(map[string]any{
			"current_status":  shown,
			"required_status": required,
		})
}

func (s *service) emitChange(ctx context.Context, tx *gorm.DB, actor Actor, event payloads.DeliveryStatusChangedEvent) error {
	key := Key{ID: event.DeliveryID, Source: event.SourceType}
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventDeliveryStatusChanged,
		AggregateType: enums.AggregateDelivery,
		AggregateID:   key.String(),
		Actor:         actorRef(actor),
		Data:          event,
		OccurredAt:    event.ChangedAt,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit delivery status event")
	}
	return nil
}

func (s *service) record(source enums.SourceType, status enums.DeliveryStatus, op string, started time.Time, err error) {
	s.metrics.ObserveTransition(op, time.Since(started))
	s.metrics.IncTransition(string(source), string(status), transitionResult(err))
}

func transitionResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		return "not_found"
	case pkgerrors.IsCode(err, pkgerrors.CodeStateConflict):
		return "state_conflict"
	case pkgerrors.IsCode(err, pkgerrors.CodeValidation):
		return "invalid"
	default:
		return "error"
	}
}

func predecessor(to enums.DeliveryStatus) (enums.DeliveryStatus, bool) {
	for _, from := range []enums.DeliveryStatus{
		enums.DeliveryStatusPending,
		enums.DeliveryStatusAccepted,
		enums.DeliveryStatusOutForDelivery,
	} {
		if next, ok := from.Next(); ok && next == to {
			return from, true
		}
	}
	return "", false
}

func actorRef(actor Actor) *outbox.ActorRef {
	if actor.UserID == 0 && actor.Role == "" {
		return nil
	}
	return &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)}
}

func notFound(key Key) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "delivery request not found").
		WithDetails(map[string]any{"source_type": key.Source, "id": key.ID})
}
