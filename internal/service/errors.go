package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrPropertyNotFound = errors.New("property not found")
	ErrPropertyInactive = errors.New("property is not active")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrInvalidDateRange = errors.New("check_in must be before check_out")
	ErrFeedNotFound     = errors.New("calendar feed not found")
	// ErrPaymentRefRequired guards admin edits: a booking cannot be marked
	// paid without a payment correlation id to audit against.
	ErrPaymentRefRequired = errors.New("payment_intent_id is required to mark payment completed")
	ErrCheckoutFailed     = errors.New("failed to create checkout session")
)

// BookingConflict identifies one booking that blocks a requested range,
// with enough detail for an operator to resolve the clash.
type BookingConflict struct {
	BookingID uint      `json:"booking_id"`
	GuestName string    `json:"guest_name"`
	CheckIn   time.Time `json:"check_in"`
	CheckOut  time.Time `json:"check_out"`
}

// ConflictError is returned when a requested [CheckIn, CheckOut) range
// overlaps active blocks for the property. Handlers render it as 409.
type ConflictError struct {
	PropertyID uint
	CheckIn    time.Time
	CheckOut   time.Time
	Conflicts  []BookingConflict
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("dates %s to %s are no longer available for property %d",
		e.CheckIn.Format("2006-01-02"), e.CheckOut.Format("2006-01-02"), e.PropertyID)
}

// FetchError reports a failed calendar-feed download. It is recorded on
// the feed and never surfaces to guest-facing flows.
type FetchError struct {
	URL    string
	Status int
	Cause  error
}

func (e *FetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Cause)
	}
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Status)
}

func (e *FetchError) Unwrap() error { return e.Cause }
