package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/artmarket-backend/pkg/enums"
)

// OutboxEvent is one row of outbox_events, written in the same transaction as
// the state change it announces. PublishedAt stays nil until the publisher
// relays it; AggregateID is "<source>:<id>" for deliveries.
type OutboxEvent struct {
	ID            uuid.UUID                 `gorm:"type:uuid;primaryKey"`
	EventType     enums.OutboxEventType     `gorm:"type:text;not null"`
	AggregateType enums.OutboxAggregateType `gorm:"type:text;not null"`
	AggregateID   string                    `gorm:"type:text;not null"`
	Payload       json.RawMessage           `gorm:"type:jsonb;not null"`
	CreatedAt     time.Time                 `gorm:"autoCreateTime"`
	PublishedAt   *time.Time
	AttemptCount  int `gorm:"not null;default:0"`
	LastError     *string
}

func (OutboxEvent) TableName() string { return "outbox_events" }

// OutboxDLQ is a parked copy of an outbox row the publisher gave up on.
type OutboxDLQ struct {
	ID            uuid.UUID                  `gorm:"type:uuid;primaryKey"`
	EventID       uuid.UUID                  `gorm:"type:uuid;not null"`
	EventType     enums.OutboxEventType      `gorm:"type:text;not null"`
	AggregateType enums.OutboxAggregateType  `gorm:"type:text;not null"`
	AggregateID   string                     `gorm:"type:text;not null"`
	Payload       json.RawMessage            `gorm:"column:payload_json;type:jsonb;not null"`
	ErrorReason   enums.OutboxDLQErrorReason `gorm:"type:text;not null"`
	ErrorMessage  *string
	AttemptCount  int       `gorm:"not null;default:0"`
	FailedAt      time.Time `gorm:"not null"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

func (OutboxDLQ) TableName() string { return "outbox_dlq" }
