package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/artmarket-backend/pkg/config"
	"github.com/angelmondragon/artmarket-backend/pkg/db/models"
	"github.com/angelmondragon/artmarket-backend/pkg/enums"
	"github.com/angelmondragon/artmarket-backend/pkg/outbox"
	"github.com/angelmondragon/artmarket-backend/pkg/outbox/payloads"
)

func TestEventRegistryResolveSuccess(t *testing.T) {
	reg := newTestEventRegistry(t)

	partner := int64(3)
	fee := decimal.NewFromInt(500)
	payloadBytes := mustMarshal(t, payloads.DeliveryStatusChangedEvent{
		SourceType:        enums.SourceArtworkOrder,
		DeliveryID:        7,
		FromStatus:        enums.DeliveryStatusPending,
		ToStatus:          enums.DeliveryStatusAccepted,
		AssignedPartnerID: &partner,
		ShippingFee:       &fee,
		ChangedAt:         time.Now().UTC(),
	})

	event := models.OutboxEvent{
		EventType:     enums.EventDeliveryStatusChanged,
		AggregateType: enums.AggregateDelivery,
		AggregateID:   "artwork_order:7",
		Payload:       mustEnvelope(t, payloadBytes),
	}

	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Descriptor.Topic != "delivery-topic" {
		t.Fatalf("unexpected topic %q", resolved.Descriptor.Topic)
	}
	payload, ok := resolved.Payload.(*payloads.DeliveryStatusChangedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", resolved.Payload)
	}
	if payload.DeliveryID != 7 || payload.ToStatus != enums.DeliveryStatusAccepted {
		t.Fatalf("payload mismatch %+v", payload)
	}
	if payload.ShippingFee == nil || !payload.ShippingFee.Equal(fee) {
		t.Fatalf("fee lost in round trip: %+v", payload.ShippingFee)
	}
	if resolved.Envelope.EventID == "" {
		t.Fatalf("envelope missing event id")
	}
}

func TestEventRegistryRoutesNotificationsToNotificationTopic(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventDeliveryNotificationRequested,
		AggregateType: enums.AggregateNotification,
		AggregateID:   "commission_request:12",
		Payload: mustEnvelope(t, mustMarshal(t, payloads.DeliveryNotificationRequestedEvent{
			RecipientID:   4,
			RecipientRole: enums.RecipientArtist,
			Type:          enums.NotificationPreparePickup,
		})),
	}

	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Descriptor.Topic != "notification-topic" {
		t.Fatalf("unexpected topic %q", resolved.Descriptor.Topic)
	}
}

func TestEventRegistryRejectsBadRows(t *testing.T) {
	reg := newTestEventRegistry(t)

	cases := map[string]models.OutboxEvent{
		"unknown event": {
			EventType:     "delivery_exploded",
			AggregateType: enums.AggregateDelivery,
			AggregateID:   "artwork_order:1",
			Payload:       mustEnvelope(t, []byte(`{}`)),
		},
		"aggregate mismatch": {
			EventType:     enums.EventDeliveryStatusChanged,
			AggregateType: enums.AggregateNotification,
			AggregateID:   "artwork_order:1",
			Payload:       mustEnvelope(t, []byte(`{}`)),
		},
		"missing aggregate": {
			EventType:     enums.EventDeliveryStatusChanged,
			AggregateType: enums.AggregateDelivery,
			AggregateID:   " ",
			Payload:       mustEnvelope(t, []byte(`{}`)),
		},
		"null payload": {
			EventType:     enums.EventDeliveryStatusChanged,
			AggregateType: enums.AggregateDelivery,
			AggregateID:   "artwork_order:1",
			Payload:       mustEnvelope(t, []byte("null")),
		},
		"non-uuid event id": {
			EventType:     enums.EventDeliveryStatusChanged,
			AggregateType: enums.AggregateDelivery,
			AggregateID:   "artwork_order:1",
			Payload:       json.RawMessage(`{"eventId":"seven","data":{}}`),
		},
		"broken envelope": {
			EventType:     enums.EventDeliveryStatusChanged,
			AggregateType: enums.AggregateDelivery,
			AggregateID:   "artwork_order:1",
			Payload:       json.RawMessage(`{"data":`),
		},
	}

	for name, event := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(event)
			if err == nil {
				t.Fatalf("expected error")
			}
			var nonRetry NonRetryableError
			if !errors.As(err, &nonRetry) {
				t.Fatalf("expected non-retryable error, got %T", err)
			}
		})
	}
}

func TestNewEventRegistryRequiresTopics(t *testing.T) {
	if _, err := NewEventRegistry(config.PubSubConfig{NotificationTopic: "n"}); err == nil {
		t.Fatalf("expected missing delivery topic error")
	}
	if _, err := NewEventRegistry(config.PubSubConfig{DeliveryTopic: "d"}); err == nil {
		t.Fatalf("expected missing notification topic error")
	}
}

func TestTopicsAreDistinctAndSorted(t *testing.T) {
	reg := newTestEventRegistry(t)
	topics := reg.Topics()
	if len(topics) != 2 || topics[0] != "delivery-topic" || topics[1] != "notification-topic" {
		t.Fatalf("unexpected topics %v", topics)
	}

	shared, err := NewEventRegistry(config.PubSubConfig{DeliveryTopic: "events", NotificationTopic: "events"})
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	if got := shared.Topics(); len(got) != 1 || got[0] != "events" {
		t.Fatalf("expected a single shared topic, got %v", got)
	}
}

func TestUnknownEventIsDistinguishable(t *testing.T) {
	reg := newTestEventRegistry(t)
	_, err := reg.Resolve(models.OutboxEvent{EventType: "delivery_exploded", AggregateID: "artwork_order:1"})
	if !errors.Is(err, ErrUnsupportedEvent) {
		t.Fatalf("expected ErrUnsupportedEvent, got %v", err)
	}
}

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	cfg := config.PubSubConfig{
		DeliveryTopic:     "delivery-topic",
		NotificationTopic: "notification-topic",
	}
	reg, err := NewEventRegistry(cfg)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return reg
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func mustEnvelope(t *testing.T, payload []byte) json.RawMessage {
	t.Helper()
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       payload,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return data
}
