package notifications

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/artmarket-backend/pkg/enums"
	"github.com/angelmondragon/artmarket-backend/pkg/logger"
	"github.com/angelmondragon/artmarket-backend/pkg/outbox"
	"github.com/angelmondragon/artmarket-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// OutboxSink records each message as a delivery_notification_requested outbox
// event in its own transaction. The outbox publisher relays it to Pub/Sub.
type OutboxSink struct {
	tx     txRunner
	outbox outboxPublisher
}

func NewOutboxSink(tx txRunner, publisher outboxPublisher) (*OutboxSink, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &OutboxSink{tx: tx, outbox: publisher}, nil
}

func (s *OutboxSink) Send(ctx context.Context, msg Message) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDeliveryNotificationRequested,
			AggregateType: enums.AggregateNotification,
			AggregateID:   msg.Delivery.String(),
			Data: payloads.DeliveryNotificationRequestedEvent{
				RecipientID:   msg.RecipientID,
				RecipientRole: msg.RecipientRole,
				Type:          msg.Type,
				Title:         msg.Title,
				Message:       msg.Text,
				SourceType:    msg.Delivery.Source,
				DeliveryID:    msg.Delivery.ID,
			},
		})
	})
}

// LogSink writes messages to the log only. Used for local runs without Pub/Sub.
type LogSink struct {
	logg *logger.Logger
}

func NewLogSink(logg *logger.Logger) *LogSink {
	return &LogSink{logg: logg}
}

func (s *LogSink) Send(ctx context.Context, msg Message) error {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"recipient_id":      msg.RecipientID,
		"recipient_role":    msg.RecipientRole,
		"notification_type": msg.Type,
		"title":             msg.Title,
		"text":              msg.Text,
	})
	s.logg.Info(logCtx, "notification")
	return nil
}
