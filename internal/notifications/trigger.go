package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/artmarket-backend/internal/deliveries"
	"github.com/angelmondragon/artmarket-backend/pkg/enums"
	"github.com/angelmondragon/artmarket-backend/pkg/logger"
	"github.com/angelmondragon/artmarket-backend/pkg/metrics"
)

// Message is one in-app notification addressed to a buyer or an artist.
type Message struct {
	RecipientID   int64
	RecipientRole enums.RecipientRole
	Type          enums.NotificationType
	Title         string
	Text          string
	Delivery      deliveries.Key
}

// Compose returns the messages a committed transition produces. Statuses that
// notify nobody yield nil, as do recipients without an id.
func Compose(status enums.DeliveryStatus, d deliveries.DeliveryRequest) []Message {
	item := quoted(d.ItemTitle, "your item")
	buyer := fallback(d.Buyer.Name, "the buyer")
	key := d.Key()

	var out []Message
	add := func(recipient int64, role enums.RecipientRole, typ enums.NotificationType, title, text string) {
		if recipient <= 0 {
			return
		}
		out = append(out, Message{
			RecipientID:   recipient,
			RecipientRole: role,
			Type:          typ,
			Title:         title,
			Text:          text,
			Delivery:      key,
		})
	}

	switch status {
	case enums.DeliveryStatusAccepted:
		fee := "not set"
		if d.ShippingFee != nil {
			fee = d.ShippingFee.StringFixed(2)
		}
		add(d.Buyer.ID, enums.RecipientBuyer, enums.NotificationDeliveryAccepted,
			"Delivery accepted",
			fmt.Sprintf("Your order %s has been accepted for delivery. Shipping fee: %s.", item, fee))
		add(d.Artist.ID, enums.RecipientArtist, enums.NotificationPreparePickup,
			"Prepare for pickup",
			fmt.Sprintf("Please prepare %s for pickup. It was ordered by %s.", item, buyer))
	case enums.DeliveryStatusOutForDelivery:
		add(d.Buyer.ID, enums.RecipientBuyer, enums.NotificationOutForDelivery,
			"Out for delivery",
			fmt.Sprintf("Your order %s is out for delivery.", item))
	case enums.DeliveryStatusDelivered:
		add(d.Buyer.ID, enums.RecipientBuyer, enums.NotificationDelivered,
			"Delivered",
			fmt.Sprintf("Your order %s has been delivered.", item))
		add(d.Artist.ID, enums.RecipientArtist, enums.NotificationDeliveredToBuyer,
			"Delivered to buyer",
			fmt.Sprintf("%s was delivered to %s.", item, buyer))
	}
	return out
}

func quoted(value, empty string) string {
	if strings.TrimSpace(value) == "" {
		return empty
	}
	return fmt.Sprintf("%q", value)
}

func fallback(value, empty string) string {
	if strings.TrimSpace(value) == "" {
		return empty
	}
	return value
}

type dispatcher interface {
	Dispatch(ctx context.Context, msg Message) error
}

// Trigger turns committed transitions into queued messages. It never blocks
// the caller and never reports failure back to it.
type Trigger struct {
	dispatcher dispatcher
	logg       *logger.Logger
	metrics    *metrics.DeliveryMetrics
}

// NewTrigger wires the notification trigger.
func NewTrigger(d dispatcher, logg *logger.Logger, m *metrics.DeliveryMetrics) (*Trigger, error) {
	if d == nil {
		return nil, fmt.Errorf("dispatcher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Trigger{dispatcher: d, logg: logg, metrics: m}, nil
}

func (t *Trigger) DeliveryChanged(ctx context.Context, status enums.DeliveryStatus, delivery deliveries.DeliveryRequest) {
	for _, msg := range Compose(status, delivery) {
		err := t.dispatcher.Dispatch(ctx, msg)
		if err == nil {
			continue
		}
		t.metrics.IncNotification(string(msg.Type), "dropped")
		logCtx := t.logg.WithFields(ctx, map[string]any{
			"notification_type": msg.Type,
			"recipient_id":      msg.RecipientID,
			"reason":            err.Error(),
		})
		t.logg.Warn(logCtx, "notification dropped")
	}
}

var _ deliveries.Notifier = (*Trigger)(nil)
