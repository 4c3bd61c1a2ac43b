package models

import "time"

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Booking is one guest's reservation request for a property over a
// [CheckIn, CheckOut) range. The checkout day itself is not blocked.
type Booking struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Reference  string `gorm:"type:varchar(36);uniqueIndex" json:"reference"`
	PropertyID uint   `gorm:"not null;index" json:"property_id"`

	GuestName  string `gorm:"not null" json:"guest_name"`
	GuestEmail string `gorm:"not null;index" json:"guest_email"`
	GuestPhone string `json:"guest_phone"`
	Adults     int    `gorm:"not null;default:1" json:"adults"`
	Children   int    `json:"children"`

	CheckIn  time.Time `gorm:"type:date;not null" json:"check_in"`
	CheckOut time.Time `gorm:"type:date;not null" json:"check_out"`

	TotalAmount   float64 `gorm:"not null" json:"total_amount"`
	Currency      string  `gorm:"type:varchar(3);not null;default:'usd'" json:"currency"`
	PaymentMethod string  `json:"payment_method"`

	Status        BookingStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"payment_status"`

	// Correlation keys for payment-provider events.
	PaymentIntentID   string `gorm:"index" json:"payment_intent_id,omitempty"`
	CheckoutSessionID string `gorm:"index" json:"checkout_session_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Property *Property `gorm:"foreignKey:PropertyID" json:"property,omitempty"`
}

// Nights returns the number of billable nights in the range.
func (b *Booking) Nights() int {
	return int(b.CheckOut.Sub(b.CheckIn).Hours() / 24)
}
