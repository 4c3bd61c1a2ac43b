package models

import "time"

type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSuccess SyncStatus = "success"
	SyncFailed  SyncStatus = "failed"
)

// CalendarFeed registers an external ICS URL (Airbnb, Booking.com, ...)
// whose events are imported into the availability ledger.
type CalendarFeed struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	PropertyID uint       `gorm:"not null;index" json:"property_id"`
	Platform   string     `gorm:"not null" json:"platform"`
	URL        string     `gorm:"not null" json:"url"`
	IsActive   bool       `gorm:"not null;default:true" json:"is_active"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
	SyncStatus SyncStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"sync_status"`
	SyncError  string     `json:"sync_error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	Property *Property `gorm:"foreignKey:PropertyID" json:"property,omitempty"`
}
