package dto

import (
	"time"

	"github.com/palmhaven/booking-api/internal/models"
	"github.com/palmhaven/booking-api/internal/service"
)

const dateLayout = "2006-01-02"

type BookingResponse struct {
	ID            uint                 `json:"id"`
	Reference     string               `json:"reference"`
	PropertyID    uint                 `json:"property_id"`
	GuestName     string               `json:"guest_name"`
	GuestEmail    string               `json:"guest_email"`
	CheckIn       string               `json:"check_in"`
	CheckOut      string               `json:"check_out"`
	Adults        int                  `json:"adults"`
	Children      int                  `json:"children"`
	TotalAmount   float64              `json:"total_amount"`
	Currency      string               `json:"currency"`
	Status        models.BookingStatus `json:"status"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	CreatedAt     time.Time            `json:"created_at"`
}

type CreateBookingResponse struct {
	Booking           BookingResponse `json:"booking"`
	CheckoutSessionID string          `json:"checkout_session_id,omitempty"`
	CheckoutURL       string          `json:"checkout_url,omitempty"`
}

// BlockedDateResponse is shaped for the front-end calendar widget; the end
// date is checkout-exclusive, so the checkout day stays selectable.
type BlockedDateResponse struct {
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate"`
	Reason     string `json:"reason,omitempty"`
	Source     string `json:"source"`
	BookingID  *uint  `json:"bookingId,omitempty"`
	ExternalID string `json:"externalId,omitempty"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

type ConflictResponse struct {
	Message   string                    `json:"message"`
	Conflicts []service.BookingConflict `json:"conflicts"`
}

type WebhookResponse struct {
	Received bool `json:"received"`
}

type SyncFeedResponse struct {
	Imported int    `json:"imported"`
	Error    string `json:"error,omitempty"`
}

func ToBookingResponse(b *models.Booking) BookingResponse {
	return BookingResponse{
		ID:            b.ID,
		Reference:     b.Reference,
		PropertyID:    b.PropertyID,
		GuestName:     b.GuestName,
		GuestEmail:    b.GuestEmail,
		CheckIn:       b.CheckIn.Format(dateLayout),
		CheckOut:      b.CheckOut.Format(dateLayout),
		Adults:        b.Adults,
		Children:      b.Children,
		TotalAmount:   b.TotalAmount,
		Currency:      b.Currency,
		Status:        b.Status,
		PaymentStatus: b.PaymentStatus,
		CreatedAt:     b.CreatedAt,
	}
}

func ToBlockedDateResponse(b *models.BlockedDate) BlockedDateResponse {
	return BlockedDateResponse{
		StartDate:  b.StartDate.Format(dateLayout),
		EndDate:    b.EndDate.Format(dateLayout),
		Reason:     b.Reason,
		Source:     string(b.Source),
		BookingID:  b.BookingID,
		ExternalID: b.ExternalID,
	}
}
