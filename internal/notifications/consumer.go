package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/artmarket-backend/pkg/db/models"
	"github.com/angelmondragon/artmarket-backend/pkg/enums"
	"github.com/angelmondragon/artmarket-backend/pkg/logger"
	"github.com/angelmondragon/artmarket-backend/pkg/metrics"
	"github.com/angelmondragon/artmarket-backend/pkg/outbox"
	"github.com/angelmondragon/artmarket-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/artmarket-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/artmarket-backend/pkg/outbox/registry"
)

const notificationConsumer = "notification-worker"

type notificationStore interface {
	Create(ctx context.Context, notification *models.Notification) (bool, error)
}

type payloadDecoder interface {
	Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (any, error)
}

type processedGuard interface {
	Run(ctx context.Context, consumer string, eventID uuid.UUID, fn func(context.Context) error) error
}

// Consumer persists delivery notification requests relayed through Pub/Sub.
type Consumer struct {
	repo         notificationStore
	subscription *pubsub.Subscriber
	idempotency  processedGuard
	decoder      payloadDecoder
	logg         *logger.Logger
	metrics      *metrics.DeliveryMetrics
}

// ConsumerParams wires the notification consumer.
type ConsumerParams struct {
	Repo         notificationStore
	Subscription *pubsub.Subscriber
	Idempotency  *idempotency.Manager
	Decoder      payloadDecoder
	Logger       *logger.Logger
	Metrics      *metrics.DeliveryMetrics
}

// NewConsumer builds a delivery notification consumer.
func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if params.Subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if params.Idempotency == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if params.Decoder == nil {
		return nil, fmt.Errorf("payload decoder required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         params.Repo,
		subscription: params.Subscription,
		idempotency:  params.Idempotency,
		decoder:      params.Decoder,
		logg:         params.Logger,
		metrics:      params.Metrics,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg.ID, msg.Attributes, msg.Data)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

// process handles one message. Malformed messages are acked so they do not
// redeliver forever; only storage failures are nacked for retry.
func (c *Consumer) process(ctx context.Context, messageID string, attributes map[string]string, data []byte) processResult {
	eventType := attributes["event_type"]
	logCtx := c.logg.WithField(ctx, "message_id", messageID)

	if eventType != string(enums.EventDeliveryNotificationRequested) {
		c.logg.Debug(logCtx, "skipping non-notification event")
		return processResult{ack: true}
	}

	envelope, eventID, err := outbox.DecodeEnvelope(data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}
	logCtx = c.logg.WithEvent(logCtx, eventID.String(), eventType)

	decoded, err := c.decoder.Decode(enums.EventDeliveryNotificationRequested, envelope.SchemaVersion(), envelope.Data)
	switch {
	case errors.Is(err, registry.ErrNoDecoder):
		c.logg.Warn(c.logg.WithField(logCtx, "version", envelope.SchemaVersion()), "unsupported payload version")
		return processResult{ack: true}
	case err != nil:
		c.logg.Error(logCtx, "failed to parse payload", err)
		return processResult{ack: true}
	}
	payload, ok := decoded.(*payloads.DeliveryNotificationRequestedEvent)
	if !ok {
		c.logg.Error(logCtx, "unexpected payload type", fmt.Errorf("got %T", decoded))
		return processResult{ack: true}
	}
	if err := validatePayload(payload); err != nil {
		c.logg.Error(logCtx, "invalid notification payload", err)
		return processResult{ack: true}
	}

	logCtx = c.logg.WithDelivery(logCtx, string(payload.SourceType), payload.DeliveryID)
	err = c.idempotency.Run(ctx, notificationConsumer, eventID, func(ctx context.Context) error {
		created, err := c.repo.Create(ctx, &models.Notification{
			EventID:        eventID,
			UserID:         payload.RecipientID,
			RecipientRole:  payload.RecipientRole,
			Type:           payload.Type,
			Title:          payload.Title,
			Message:        payload.Message,
			DeliverySource: payload.SourceType,
			DeliveryID:     payload.DeliveryID,
		})
		if err != nil {
			return err
		}
		if !created {
			c.logg.Info(logCtx, "notification already stored")
		}
		return nil
	})
	switch {
	case errors.Is(err, idempotency.ErrAlreadyProcessed):
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	case err != nil:
		c.metrics.IncNotification(string(payload.Type), "store_failed")
		c.logg.Error(logCtx, "notification handling failed", err)
		return processResult{nack: true}
	}

	c.metrics.IncNotification(string(payload.Type), "stored")
	c.logg.Info(logCtx, "notification stored")
	return processResult{ack: true}
}

func validatePayload(p *payloads.DeliveryNotificationRequestedEvent) error {
	switch {
	case p.RecipientID <= 0:
		return fmt.Errorf("recipient id missing")
	case !p.RecipientRole.IsValid():
		return fmt.Errorf("invalid recipient role %q", p.RecipientRole)
	case !p.Type.IsValid():
		return fmt.Errorf("invalid notification type %q", p.Type)
	case !p.SourceType.IsValid():
		return fmt.Errorf("invalid delivery source %q", p.SourceType)
	case p.DeliveryID <= 0:
		return fmt.Errorf("delivery id missing")
	}
	return nil
}
