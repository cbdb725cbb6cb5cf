package outbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/artmarket-backend/pkg/db/models"
	"github.com/angelmondragon/artmarket-backend/pkg/enums"
	"github.com/angelmondragon/artmarket-backend/pkg/logger"
)

// DomainEvent is what producers hand to Emit. AggregateType may be left empty
// and is then derived from EventType. Version and OccurredAt default to 1 and now.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   string
	Actor         *ActorRef
	Data          any
	Version       int
	OccurredAt    time.Time
}

var (
	errTxRequired          = errors.New("transaction required")
	errAggregateIDRequired = errors.New("aggregate id required")
)

type Service struct {
	repo *Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg, now: time.Now}
}

// Emit stores event inside the caller's tx so it commits or rolls back with the
// state change it describes. The row id is the envelope event id consumers dedupe on.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errTxRequired
	}
	if strings.TrimSpace(event.AggregateID) == "" {
		return errAggregateIDRequired
	}
	if !event.EventType.IsValid() {
		return fmt.Errorf("unknown event type %q", event.EventType)
	}
	switch want := event.EventType.Aggregate(); event.AggregateType {
	case "":
		event.AggregateType = want
	case want:
	default:
		return fmt.Errorf("event %s belongs to aggregate %s, not %s", event.EventType, want, event.AggregateType)
	}
	if event.Version == 0 {
		event.Version = 1
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now().UTC()
	}

	id := uuid.New()
	payload, err := encodeEnvelope(id, event)
	if err != nil {
		return err
	}
	if err := s.repo.Insert(tx, models.OutboxEvent{
		ID:            id,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       payload,
	}); err != nil {
		return err
	}

	if s.logg != nil {
		if ctx == nil {
			ctx = context.Background()
		}
		ctx = s.logg.WithEvent(ctx, id.String(), string(event.EventType))
		s.logg.Debug(s.logg.WithField(ctx, "aggregate_id", event.AggregateID), "outbox event queued")
	}
	return nil
}
