package models

import "time"

type BlockSource string

const (
	SourceDirectBooking   BlockSource = "direct_booking"
	SourceExternalBooking BlockSource = "external_booking"
	SourceManual          BlockSource = "manual"
)

// BlockedDate is one row of the availability ledger: a [StartDate, EndDate)
// interval during which a property cannot be booked. Rows are deactivated,
// never deleted, so cancellations keep their audit trail.
//
// Uniqueness is enforced by two partial indexes created in pkg/database:
// at most one active row per booking_id, and one row per
// (property_id, external_id) for feed-imported blocks.
type BlockedDate struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	PropertyID uint        `gorm:"not null;index" json:"property_id"`
	StartDate  time.Time   `gorm:"type:date;not null" json:"start_date"`
	EndDate    time.Time   `gorm:"type:date;not null" json:"end_date"`
	Reason     string      `json:"reason"`
	Source     BlockSource `gorm:"type:varchar(20);not null;default:'manual'" json:"source"`
	BookingID  *uint       `gorm:"index" json:"booking_id,omitempty"`
	// ExternalID is the UID of the imported calendar event; empty for
	// rows that did not come from a feed.
	ExternalID string    `gorm:"index" json:"external_id,omitempty"`
	IsActive   bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Booking *Booking `gorm:"foreignKey:BookingID" json:"booking,omitempty"`
}
