package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"
)

type StripeClient struct {
	webhookSecret string
}

func NewStripeClient(secretKey, webhookSecret string) *StripeClient {
	stripe.Key = secretKey
	return &StripeClient{webhookSecret: webhookSecret}
}

func (c *StripeClient) VerifyWebhook(payload []byte, signature string) (Event, error) {
	ev, err := webhook.ConstructEvent(payload, signature, c.webhookSecret)
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrSignature, err)
	}
	return c.normalize(ev)
}

func (c *StripeClient) normalize(ev stripe.Event) (Event, error) {
	out := Event{ID: ev.ID, ProviderType: string(ev.Type), Type: EventIgnored}

	switch string(ev.Type) {
	case "payment_intent.succeeded", "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
			return out, fmt.Errorf("stripe: decode payment_intent: %w", err)
		}
		if string(ev.Type) == "payment_intent.succeeded" {
			out.Type = EventPaymentSucceeded
		} else {
			out.Type = EventPaymentFailed
		}
		out.PaymentRef = pi.ID
		out.GuestEmail = pi.ReceiptEmail
		fillFromMetadata(&out, pi.Metadata)

	case "checkout.session.completed":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &cs); err != nil {
			return out, fmt.Errorf("stripe: decode checkout.session: %w", err)
		}
		out.Type = EventCheckoutCompleted
		out.SessionID = cs.ID
		if cs.PaymentIntent != nil {
			out.PaymentRef = cs.PaymentIntent.ID
		}
		if cs.CustomerDetails != nil {
			out.GuestEmail = cs.CustomerDetails.Email
		}
		fillFromMetadata(&out, cs.Metadata)
		if out.BookingID == 0 && cs.ClientReferenceID != "" {
			if id, err := strconv.ParseUint(cs.ClientReferenceID, 10, 64); err == nil {
				out.BookingID = uint(id)
			}
		}
	}

	return out, nil
}

func fillFromMetadata(out *Event, md map[string]string) {
	if md == nil {
		return
	}
	if v, err := strconv.ParseUint(md["booking_id"], 10, 64); err == nil {
		out.BookingID = uint(v)
	}
	if v, err := strconv.ParseUint(md["property_id"], 10, 64); err == nil {
		out.PropertyID = uint(v)
	}
}

func (c *StripeClient) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	metadata := map[string]string{
		"booking_id":  strconv.FormatUint(uint64(p.BookingID), 10),
		"property_id": strconv.FormatUint(uint64(p.PropertyID), 10),
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(p.SuccessURL),
		CancelURL:         stripe.String(p.CancelURL),
		CustomerEmail:     stripe.String(p.GuestEmail),
		ClientReferenceID: stripe.String(strconv.FormatUint(uint64(p.BookingID), 10)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(p.Currency),
					UnitAmount: stripe.Int64(int64(p.Amount * 100)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(p.PropertyName),
					},
				},
			},
		},
		// Metadata rides on both the session and the payment intent so
		// either webhook event can be matched back to the booking.
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: metadata,
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	cs, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}
	return &CheckoutSession{ID: cs.ID, URL: cs.URL}, nil
}
