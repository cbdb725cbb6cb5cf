package models

// ArtistProfile holds the pickup address an artist ships from.
type ArtistProfile struct {
	ArtistID int64   `gorm:"column:artist_id;primaryKey"`
	Street   *string `gorm:"column:street"`
	City     *string `gorm:"column:city"`
	State    *string `gorm:"column:state"`
	Country  *string `gorm:"column:country"`
	Zip      *string `gorm:"column:zip"`
}
