package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/artmarket-backend/pkg/enums"
)

// Notification stores in-app delivery notifications addressed to a single user.
type Notification struct {
	ID             uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	EventID        uuid.UUID              `gorm:"column:event_id;type:uuid;not null;uniqueIndex"`
	UserID         int64                  `gorm:"column:user_id;not null"`
	RecipientRole  enums.RecipientRole    `gorm:"column:recipient_role;type:text;not null"`
	Type           enums.NotificationType `gorm:"column:type;type:text;not null"`
	Title          string                 `gorm:"column:title;type:text;not null"`
	Message        string                 `gorm:"column:message;type:text;not null"`
	DeliverySource enums.SourceType       `gorm:"column:delivery_source;type:text;not null"`
	DeliveryID     int64                  `gorm:"column:delivery_id;not null"`
	ReadAt         *time.Time             `gorm:"column:read_at"`
	CreatedAt      time.Time              `gorm:"column:created_at;autoCreateTime"`
}
