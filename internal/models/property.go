package models

import "time"

type Property struct {
	ID            uint    `gorm:"primaryKey" json:"id"`
	Name          string  `gorm:"not null" json:"name"`
	Location      string  `json:"location"`
	Description   string  `gorm:"type:text" json:"description"`
	PricePerNight float64 `gorm:"not null" json:"price_per_night"`
	MaxGuests     int     `gorm:"not null;default:2" json:"max_guests"`
	Bedrooms      int     `json:"bedrooms"`
	Bathrooms     int     `json:"bathrooms"`
	// Soft delete: inactive properties disappear from the storefront but
	// keep their bookings and ledger history.
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
