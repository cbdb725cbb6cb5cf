package models

import "github.com/shopspring/decimal"

type Artwork struct {
	ID         int64           `gorm:"column:id;primaryKey;autoIncrement"`
	ArtistID   int64           `gorm:"column:artist_id;not null"`
	Title      string          `gorm:"column:title;not null"`
	Dimensions *string         `gorm:"column:dimensions"`
	Style      *string         `gorm:"column:style"`
	Price      decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null;default:0"`
}
