package models

import (
	"time"

	"github.com/angelmondragon/artmarket-backend/pkg/enums"
)

// User is the marketplace identity row shared by buyers, artists and delivery partners.
type User struct {
	ID        int64          `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string         `gorm:"column:name;not null"`
	Email     string         `gorm:"column:email;not null;uniqueIndex"`
	Phone     *string        `gorm:"column:phone"`
	Role      enums.UserRole `gorm:"column:role;type:text;not null;default:'buyer'"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
}
