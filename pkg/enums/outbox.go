package enums

// OutboxAggregateType is the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateDelivery     OutboxAggregateType = "delivery"
	AggregateNotification OutboxAggregateType = "notification"
)

// OutboxEventType is the event_type column of outbox_events. Every event type
// belongs to exactly one aggregate type.
type OutboxEventType string

const (
	EventDeliveryStatusChanged         OutboxEventType = "delivery_status_changed"
	EventDeliveryNotificationRequested OutboxEventType = "delivery_notification_requested"
)

var eventAggregates = map[OutboxEventType]OutboxAggregateType{
	EventDeliveryStatusChanged:         AggregateDelivery,
	EventDeliveryNotificationRequested: AggregateNotification,
}

func (e OutboxEventType) IsValid() bool {
	_, ok := eventAggregates[e]
	return ok
}

// Aggregate returns the aggregate type e is emitted for, or "" when e is unknown.
func (e OutboxEventType) Aggregate() OutboxAggregateType {
	return eventAggregates[e]
}

// OutboxDLQErrorReason records why a row was parked in outbox_dlq instead of published.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	OutboxDLQReasonUnknownEvent OutboxDLQErrorReason = "unknown_event"
)

func (r OutboxDLQErrorReason) String() string {
	return string(r)
}
