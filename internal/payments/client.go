// Package payments isolates the payment provider behind one small client
// interface: raw webhook bytes in, a normalized Event out, plus checkout
// session creation. Reconciliation logic never sees provider SDK types.
package payments

import (
	"context"
	"errors"
)

var ErrSignature = errors.New("payments: webhook signature verification failed")

type EventType string

const (
	// EventPaymentSucceeded and EventCheckoutCompleted may both arrive
	// for one logical payment, in either order; reconciliation treats
	// them identically.
	EventPaymentSucceeded  EventType = "payment_succeeded"
	EventCheckoutCompleted EventType = "checkout_completed"
	EventPaymentFailed     EventType = "payment_failed"
	// EventIgnored covers valid-but-unhandled provider events; the
	// webhook endpoint acknowledges them so the provider stops retrying.
	EventIgnored EventType = "ignored"
)

// Event is a provider webhook event reduced to what reconciliation needs.
type Event struct {
	ID           string
	Type         EventType
	ProviderType string

	// Correlation keys, best first. BookingID comes from metadata set at
	// checkout creation; PaymentRef is the payment intent id; SessionID
	// the checkout session id; PropertyID/GuestEmail feed the legacy
	// fallback match.
	BookingID  uint
	PropertyID uint
	PaymentRef string
	SessionID  string
	GuestEmail string
}

type CheckoutParams struct {
	BookingID    uint
	PropertyID   uint
	PropertyName string
	Amount       float64
	Currency     string
	GuestEmail   string
	SuccessURL   string
	CancelURL    string
}

type CheckoutSession struct {
	ID  string
	URL string
}

type Client interface {
	// VerifyWebhook authenticates the raw, unparsed request body against
	// the provider signature header. Callers must pass the delivered
	// bytes untouched; a re-serialized body will not verify.
	VerifyWebhook(payload []byte, signature string) (Event, error)
	CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error)
}
